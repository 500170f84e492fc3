// Package memory provides an in-memory implementation of the
// reconcile.ProfileStore interface. Records are lost on restart; this is
// the documented behavior for the default deployment, where upstream
// redelivery is the recovery mechanism.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Coded-hub/ghl-stripe-webhook/pkg/reconcile"
)

type entry struct {
	rec       reconcile.ProfileRecord
	expiresAt time.Time
}

// Store implements reconcile.ProfileStore using an in-memory map.
type Store struct {
	mu      sync.RWMutex
	records map[reconcile.IdentityKey]entry
	ttl     time.Duration
	now     func() time.Time
}

// New creates a new in-memory store. ttl bounds how long an unreconciled
// profile record is retained; zero means records never expire.
func New(ttl time.Duration) *Store {
	return &Store{
		records: make(map[reconcile.IdentityKey]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put implements reconcile.ProfileStore.
func (s *Store) Put(ctx context.Context, rec *reconcile.ProfileRecord) error {
	if rec == nil || rec.Key == "" {
		return fmt.Errorf("invalid profile record")
	}

	e := entry{rec: *rec}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Key] = e
	return nil
}

// Get implements reconcile.ProfileStore. Expired records are treated as
// absent even before the janitor removes them.
func (s *Store) Get(ctx context.Context, key reconcile.IdentityKey) (*reconcile.ProfileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.records[key]
	if !ok {
		return nil, reconcile.ErrProfileNotFound
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		return nil, reconcile.ErrProfileNotFound
	}

	// Return a copy to prevent external mutations
	rec := e.rec
	return &rec, nil
}

// Purge removes expired records and returns how many were dropped.
func (s *Store) Purge() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for key, e := range s.records {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(s.records, key)
			dropped++
		}
	}
	return dropped
}

// StartJanitor purges expired records every interval until ctx is
// cancelled. Intended to be run in its own goroutine.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Purge()
		}
	}
}

// Len returns the number of records currently held, including expired
// records not yet purged.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Clear removes all data (useful for testing).
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[reconcile.IdentityKey]entry)
}
