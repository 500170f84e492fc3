package reconcile

import "time"

// Metrics defines the interface for tracking reconciliation operations.
// All methods are optional - components should gracefully handle nil metrics.
type Metrics interface {
	// RecordProfileEvent records a profile submission.
	// status: "stored", "rejected", or "store_error"
	RecordProfileEvent(status string)

	// RecordPaymentEvent records a payment-stream event and its terminal
	// outcome ("applied", "skipped", "unresolvable", "ignored", "error").
	RecordPaymentEvent(eventType, outcome string)

	// RecordReconcileDuration records how long one reconciliation attempt took.
	RecordReconcileDuration(outcome string, duration time.Duration)

	// RecordLookupFallback records an identity-derivation fallback step.
	// step: "receipt_email", "billing_email", "customer_lookup", "charge_lookup"
	// status: "hit", "miss", or "error"
	RecordLookupFallback(step, status string)

	// RecordAdapterCall records a call to the customer directory.
	// operation: "lookup_customer", "lookup_charge", "apply_business_info"
	// status: "success" or "error"
	RecordAdapterCall(operation, status string)

	// RecordWebhookError records an ingress-level failure.
	// errorType: "auth_failed", "invalid_payload", "payload_too_large"
	RecordWebhookError(stream, errorType string)
}

// NoopMetrics is a no-op implementation of the Metrics interface.
type NoopMetrics struct{}

func (n *NoopMetrics) RecordProfileEvent(_ string)                       {}
func (n *NoopMetrics) RecordPaymentEvent(_, _ string)                    {}
func (n *NoopMetrics) RecordReconcileDuration(_ string, _ time.Duration) {}
func (n *NoopMetrics) RecordLookupFallback(_, _ string)                  {}
func (n *NoopMetrics) RecordAdapterCall(_, _ string)                     {}
func (n *NoopMetrics) RecordWebhookError(_, _ string)                    {}
