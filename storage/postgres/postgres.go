// Package postgres provides a PostgreSQL implementation of the
// reconcile.ProfileStore interface. Upserts use ON CONFLICT for
// last-write-wins semantics; row-level locking keeps the critical section
// per key.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Coded-hub/ghl-stripe-webhook/pkg/reconcile"
)

// Config holds PostgreSQL store configuration.
type Config struct {
	// ConnectionString is the PostgreSQL connection string
	ConnectionString string

	// Pool configuration
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// ProfileTTL is the retention window for unreconciled profile records
	// (0 = no expiration). Expired rows are invisible to Get and removed
	// by PurgeExpired.
	ProfileTTL time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
		ProfileTTL:      24 * time.Hour,
	}
}

// Store implements reconcile.ProfileStore using PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	config Config
}

// New creates a new PostgreSQL store adapter.
func New(ctx context.Context, config Config) (*Store, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required")
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}
	if config.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = config.MaxConnLifetime
	}
	if config.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = config.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool, config: config}, nil
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS profile_records (
			identity_key  TEXT PRIMARY KEY,
			business_name TEXT NOT NULL DEFAULT '',
			tax_id        TEXT NOT NULL DEFAULT '',
			received_at   TIMESTAMPTZ NOT NULL,
			expires_at    TIMESTAMPTZ
		)`)
	if err != nil {
		return fmt.Errorf("failed to create profile_records table: %w", err)
	}
	return nil
}

// Put implements reconcile.ProfileStore.
func (s *Store) Put(ctx context.Context, rec *reconcile.ProfileRecord) error {
	if rec == nil || rec.Key == "" {
		return fmt.Errorf("invalid profile record")
	}

	var expiresAt *time.Time
	if s.config.ProfileTTL > 0 {
		t := time.Now().UTC().Add(s.config.ProfileTTL)
		expiresAt = &t
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO profile_records (identity_key, business_name, tax_id, received_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (identity_key) DO UPDATE SET
			business_name = EXCLUDED.business_name,
			tax_id        = EXCLUDED.tax_id,
			received_at   = EXCLUDED.received_at,
			expires_at    = EXCLUDED.expires_at`,
		string(rec.Key), rec.BusinessName, rec.TaxID, rec.ReceivedAt, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to upsert profile record: %w", err)
	}
	return nil
}

// Get implements reconcile.ProfileStore.
func (s *Store) Get(ctx context.Context, key reconcile.IdentityKey) (*reconcile.ProfileRecord, error) {
	rec := reconcile.ProfileRecord{Key: key}
	err := s.pool.QueryRow(ctx, `
		SELECT business_name, tax_id, received_at
		FROM profile_records
		WHERE identity_key = $1
		  AND (expires_at IS NULL OR expires_at > now())`,
		string(key)).Scan(&rec.BusinessName, &rec.TaxID, &rec.ReceivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reconcile.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to query profile record: %w", err)
	}
	return &rec, nil
}

// PurgeExpired removes expired rows and returns how many were deleted.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM profile_records WHERE expires_at IS NOT NULL AND expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired records: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
