// Package firestore provides a Google Cloud Firestore implementation of
// the reconcile.ProfileStore interface. Each identity key maps to one
// document; document writes are atomic per key.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Coded-hub/ghl-stripe-webhook/pkg/reconcile"
)

// Config holds Firestore store configuration.
type Config struct {
	// Collection is the Firestore collection for profile records.
	// Default: "profile_records"
	Collection string

	// ProfileTTL is the retention window for unreconciled profile records
	// (0 = no expiration). Expired documents are invisible to Get; actual
	// deletion is left to a Firestore TTL policy on the expires_at field.
	ProfileTTL time.Duration
}

// Store implements reconcile.ProfileStore using Google Cloud Firestore.
type Store struct {
	client     *firestore.Client
	collection string
	ttl        time.Duration
}

type profileDoc struct {
	BusinessName string     `firestore:"business_name"`
	TaxID        string     `firestore:"tax_id"`
	ReceivedAt   time.Time  `firestore:"received_at"`
	ExpiresAt    *time.Time `firestore:"expires_at,omitempty"`
}

// New creates a new Firestore store adapter.
func New(client *firestore.Client, config Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client is required")
	}
	if config.Collection == "" {
		config.Collection = "profile_records"
	}
	return &Store{
		client:     client,
		collection: config.Collection,
		ttl:        config.ProfileTTL,
	}, nil
}

// Put implements reconcile.ProfileStore.
func (s *Store) Put(ctx context.Context, rec *reconcile.ProfileRecord) error {
	if rec == nil || rec.Key == "" {
		return fmt.Errorf("invalid profile record")
	}

	doc := profileDoc{
		BusinessName: rec.BusinessName,
		TaxID:        rec.TaxID,
		ReceivedAt:   rec.ReceivedAt,
	}
	if s.ttl > 0 {
		t := time.Now().UTC().Add(s.ttl)
		doc.ExpiresAt = &t
	}

	_, err := s.client.Collection(s.collection).Doc(string(rec.Key)).Set(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to write profile record: %w", err)
	}
	return nil
}

// Get implements reconcile.ProfileStore.
func (s *Store) Get(ctx context.Context, key reconcile.IdentityKey) (*reconcile.ProfileRecord, error) {
	snap, err := s.client.Collection(s.collection).Doc(string(key)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, reconcile.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to read profile record: %w", err)
	}

	var doc profileDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode profile record: %w", err)
	}
	if doc.ExpiresAt != nil && !time.Now().UTC().Before(*doc.ExpiresAt) {
		return nil, reconcile.ErrProfileNotFound
	}

	return &reconcile.ProfileRecord{
		Key:          key,
		BusinessName: doc.BusinessName,
		TaxID:        doc.TaxID,
		ReceivedAt:   doc.ReceivedAt,
	}, nil
}
