package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Coded-hub/ghl-stripe-webhook/pkg/reconcile"
)

// setupTestRedis creates a Redis client for testing
// Requires Redis running on localhost:6379
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use DB 15 for testing
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test database: %v", err)
	}

	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNew(t *testing.T) {
	_, err := New(nil, DefaultConfig())
	assert.Error(t, err)

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	s, err := New(client, Config{})
	require.NoError(t, err)
	assert.Equal(t, "ghlsw:profile:", s.config.KeyPrefix)
}

func TestPutGet(t *testing.T) {
	client := setupTestRedis(t)
	s, err := New(client, DefaultConfig())
	require.NoError(t, err)

	ctx := context.Background()
	rec := &reconcile.ProfileRecord{
		Key:          "x@y.com",
		BusinessName: "Acme",
		TaxID:        "RO123",
		ReceivedAt:   time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.Put(ctx, rec))

	got, err := s.Get(ctx, "x@y.com")
	require.NoError(t, err)
	assert.Equal(t, rec.BusinessName, got.BusinessName)
	assert.Equal(t, rec.TaxID, got.TaxID)
	assert.True(t, rec.ReceivedAt.Equal(got.ReceivedAt))
}

func TestGet_NotFound(t *testing.T) {
	client := setupTestRedis(t)
	s, err := New(client, DefaultConfig())
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "absent@y.com")
	assert.ErrorIs(t, err, reconcile.ErrProfileNotFound)
}

func TestPut_LastWriteWins(t *testing.T) {
	client := setupTestRedis(t)
	s, err := New(client, DefaultConfig())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, &reconcile.ProfileRecord{Key: "x@y.com", BusinessName: "Old", TaxID: "RO1"}))
	require.NoError(t, s.Put(ctx, &reconcile.ProfileRecord{Key: "x@y.com", BusinessName: "New"}))

	got, err := s.Get(ctx, "x@y.com")
	require.NoError(t, err)
	assert.Equal(t, "New", got.BusinessName)
	assert.Equal(t, "", got.TaxID)
}

func TestPut_AppliesTTL(t *testing.T) {
	client := setupTestRedis(t)
	cfg := DefaultConfig()
	cfg.ProfileTTL = time.Hour
	s, err := New(client, cfg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, &reconcile.ProfileRecord{Key: "x@y.com"}))

	ttl, err := client.TTL(ctx, "ghlsw:profile:x@y.com").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
}

func TestPut_Invalid(t *testing.T) {
	client := setupTestRedis(t)
	s, err := New(client, DefaultConfig())
	require.NoError(t, err)

	assert.Error(t, s.Put(context.Background(), nil))
	assert.Error(t, s.Put(context.Background(), &reconcile.ProfileRecord{}))
}
