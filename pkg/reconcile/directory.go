package reconcile

import "context"

// Directory is the external sync adapter: the downstream customer
// directory the reconciler applies updates to, plus the lookup capability
// used as identity-derivation fallbacks.
type Directory interface {
	// LookupCustomerEmail returns the email held for the customer
	// reference, or ErrNotFound.
	LookupCustomerEmail(ctx context.Context, customerRef string) (string, error)

	// LookupChargeEmail returns the billing email held for the charge
	// reference, or ErrNotFound.
	LookupChargeEmail(ctx context.Context, chargeRef string) (string, error)

	// ApplyBusinessInfo applies the business name and tax identifier to the
	// referenced customer. Implementations must be idempotent: applying the
	// same tuple twice yields the same end state and no error, because the
	// upstream sender redelivers events at least once.
	ApplyBusinessInfo(ctx context.Context, customerRef, businessName, taxID string) error
}
