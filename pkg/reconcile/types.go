// Package reconcile implements the correlation engine that joins the
// profile stream (form submissions carrying business metadata) with the
// payment stream (verified payment-processor events) on a shared identity
// key, and applies the joined record to the downstream customer directory.
package reconcile

import (
	"strings"
	"time"
)

// IdentityKey is the normalized email address that joins the two streams.
// Always produce it through NormalizeIdentity so that differently-cased
// submissions of the same address resolve to the same key.
type IdentityKey string

// NormalizeIdentity lower-cases and trims an email address into an
// IdentityKey. Returns the empty key when the input is blank.
func NormalizeIdentity(email string) IdentityKey {
	return IdentityKey(strings.ToLower(strings.TrimSpace(email)))
}

// ProfileRecord is the business-metadata half of a reconciliation, held in
// the correlation store until a matching payment event arrives. Successive
// submissions for the same key overwrite each other (last write wins);
// partial fields are never merged across submissions.
type ProfileRecord struct {
	Key          IdentityKey
	BusinessName string
	TaxID        string
	ReceivedAt   time.Time
}

// PaymentEvent is the payment half of a reconciliation. It is request-scoped
// and never persisted beyond the reconciliation attempt.
type PaymentEvent struct {
	// EventID is the processor-assigned unique event id (used for logging
	// and duplicate diagnosis, not for deduplication).
	EventID string

	// Type is the processor event type. Only payment-succeeded events reach
	// the reconciler.
	Type string

	// CustomerRef is the processor's customer reference, the target of the
	// downstream update.
	CustomerRef string

	// ChargeRef is the processor's charge reference, used as the last
	// identity-derivation fallback.
	ChargeRef string

	// ReceiptEmail and BillingEmail are identity candidates carried inline
	// on the event payload, tried before any directory lookup.
	ReceiptEmail string
	BillingEmail string

	Amount     int64
	Currency   string
	ReceivedAt time.Time
}

// ReconciledRecord pairs a stored profile with the payment event that
// completed it. It is handed to the directory and never persisted.
type ReconciledRecord struct {
	Key     IdentityKey
	Profile ProfileRecord
	Payment PaymentEvent
}

// Outcome classifies the terminal state of processing one payment event.
type Outcome string

const (
	// OutcomeApplied means the directory update succeeded.
	OutcomeApplied Outcome = "applied"

	// OutcomeSkipped means the event was valid but no update was possible;
	// Result.Reason carries why. Skips are acknowledged, not retried.
	OutcomeSkipped Outcome = "skipped"

	// OutcomeUnresolvable means no identity key could be derived after all
	// fallbacks. A terminal no-op, acknowledged to the sender.
	OutcomeUnresolvable Outcome = "unresolvable"
)

// Skip reasons reported in Result.Reason.
const (
	ReasonNoProfileData = "no profile data"
	ReasonNoCustomerRef = "no customer reference"
)

// Result is the outcome of Reconciler.Reconcile or Reconciler.Process.
type Result struct {
	Outcome Outcome
	Reason  string
}
