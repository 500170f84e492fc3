package reconcile

import "context"

// ProfileStore is the correlation store: a keyed last-write-wins mapping
// from identity key to the most recent profile record. It is the only
// mutable shared state in the engine.
//
// Implementations must make concurrent Puts to different keys proceed
// without contention and make a Put followed by a Get on the same key
// linearizable. Records may be evicted after a bounded retention window;
// a successful reconciliation never requires deletion (replayed payment
// events must be able to re-apply).
type ProfileStore interface {
	// Put stores rec under rec.Key, overwriting any previous record.
	Put(ctx context.Context, rec *ProfileRecord) error

	// Get returns the record stored for key, or ErrProfileNotFound.
	Get(ctx context.Context, key IdentityKey) (*ProfileRecord, error)
}
