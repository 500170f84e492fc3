// Package redis provides a Redis implementation of the
// reconcile.ProfileStore interface. Records are stored as JSON values with
// a native key TTL, which gives the bounded retention window for free.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Coded-hub/ghl-stripe-webhook/pkg/reconcile"
)

// Config holds Redis store configuration.
type Config struct {
	// KeyPrefix is prepended to all Redis keys (default: "ghlsw:profile:")
	KeyPrefix string

	// ProfileTTL is the retention window for unreconciled profile records
	// (0 = no expiration).
	ProfileTTL time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		KeyPrefix:  "ghlsw:profile:",
		ProfileTTL: 24 * time.Hour,
	}
}

// Store implements reconcile.ProfileStore using Redis.
type Store struct {
	client redis.UniversalClient
	config Config
}

// New creates a new Redis store adapter.
// The client can be *redis.Client, *redis.ClusterClient, or *redis.Ring.
func New(client redis.UniversalClient, config Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "ghlsw:profile:"
	}
	return &Store{client: client, config: config}, nil
}

// Put implements reconcile.ProfileStore. SET is atomic per key, so
// concurrent writers to the same key serialize last-write-wins and writers
// to different keys never contend.
func (s *Store) Put(ctx context.Context, rec *reconcile.ProfileRecord) error {
	if rec == nil || rec.Key == "" {
		return fmt.Errorf("invalid profile record")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal profile record: %w", err)
	}

	if err := s.client.Set(ctx, s.key(rec.Key), data, s.config.ProfileTTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get implements reconcile.ProfileStore.
func (s *Store) Get(ctx context.Context, key reconcile.IdentityKey) (*reconcile.ProfileRecord, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, reconcile.ErrProfileNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var rec reconcile.ProfileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal profile record: %w", err)
	}
	return &rec, nil
}

func (s *Store) key(key reconcile.IdentityKey) string {
	return s.config.KeyPrefix + string(key)
}
