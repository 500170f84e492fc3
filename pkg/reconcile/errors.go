package reconcile

import "errors"

var (
	// ErrEmailMissing is returned when a profile payload has no resolvable
	// email under any known shape
	ErrEmailMissing = errors.New("email missing from profile payload")

	// ErrProfileNotFound is returned by ProfileStore.Get when no record is
	// stored for the key
	ErrProfileNotFound = errors.New("profile not found")

	// ErrUnresolvable is returned when every identity-derivation fallback
	// has been exhausted
	ErrUnresolvable = errors.New("identity key unresolvable")

	// ErrNotFound is returned by Directory lookups when the referenced
	// resource does not exist or carries no email
	ErrNotFound = errors.New("not found in customer directory")
)
