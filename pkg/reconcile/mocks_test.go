package reconcile

import (
	"context"
	"sync"
)

// applyCall records one ApplyBusinessInfo invocation.
type applyCall struct {
	customerRef  string
	businessName string
	taxID        string
}

// mockDirectory implements Directory with overridable behavior per method.
type mockDirectory struct {
	mu             sync.Mutex
	lookupCustomer func(ctx context.Context, ref string) (string, error)
	lookupCharge   func(ctx context.Context, ref string) (string, error)
	apply          func(ctx context.Context, ref, name, taxID string) error

	customerLookups []string
	chargeLookups   []string
	applyCalls      []applyCall
}

func (m *mockDirectory) LookupCustomerEmail(ctx context.Context, ref string) (string, error) {
	m.mu.Lock()
	m.customerLookups = append(m.customerLookups, ref)
	m.mu.Unlock()
	if m.lookupCustomer == nil {
		return "", ErrNotFound
	}
	return m.lookupCustomer(ctx, ref)
}

func (m *mockDirectory) LookupChargeEmail(ctx context.Context, ref string) (string, error) {
	m.mu.Lock()
	m.chargeLookups = append(m.chargeLookups, ref)
	m.mu.Unlock()
	if m.lookupCharge == nil {
		return "", ErrNotFound
	}
	return m.lookupCharge(ctx, ref)
}

func (m *mockDirectory) ApplyBusinessInfo(ctx context.Context, ref, name, taxID string) error {
	m.mu.Lock()
	m.applyCalls = append(m.applyCalls, applyCall{customerRef: ref, businessName: name, taxID: taxID})
	m.mu.Unlock()
	if m.apply == nil {
		return nil
	}
	return m.apply(ctx, ref, name, taxID)
}

// mockStore implements ProfileStore over a plain map, tracking access.
type mockStore struct {
	mu      sync.Mutex
	records map[IdentityKey]ProfileRecord
	getErr  error
	gets    int
}

func newMockStore() *mockStore {
	return &mockStore{records: make(map[IdentityKey]ProfileRecord)}
}

func (m *mockStore) Put(ctx context.Context, rec *ProfileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Key] = *rec
	return nil
}

func (m *mockStore) Get(ctx context.Context, key IdentityKey) (*ProfileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.records[key]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return &rec, nil
}
