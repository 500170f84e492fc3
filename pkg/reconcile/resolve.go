package reconcile

import (
	"context"
	"errors"
	"time"
)

// Resolver derives the identity key for a payment event. Derivation is a
// fixed fallback chain: the receipt email carried on the event, the billing
// email on the embedded charge, a customer lookup against the directory,
// and finally a charge lookup. Lookup failures are logged and the next
// fallback is attempted; exhausting the chain yields ErrUnresolvable,
// which is a valid terminal outcome, not a retryable failure.
type Resolver struct {
	directory Directory
	timeout   time.Duration
	logger    Logger
	metrics   Metrics
}

// NewResolver creates a Resolver. Each directory lookup is bounded by
// timeout (<= 0 means the default). Logger and metrics may be nil.
func NewResolver(directory Directory, timeout time.Duration, logger Logger, metrics Metrics) *Resolver {
	if timeout <= 0 {
		timeout = defaultAdapterTimeout
	}
	if logger == nil {
		logger = &NoopLogger{}
	}
	if metrics == nil {
		metrics = &NoopMetrics{}
	}
	return &Resolver{directory: directory, timeout: timeout, logger: logger, metrics: metrics}
}

// Resolve returns the identity key for ev, or ErrUnresolvable.
func (r *Resolver) Resolve(ctx context.Context, ev *PaymentEvent) (IdentityKey, error) {
	if key := NormalizeIdentity(ev.ReceiptEmail); key != "" {
		r.metrics.RecordLookupFallback("receipt_email", "hit")
		return key, nil
	}
	r.metrics.RecordLookupFallback("receipt_email", "miss")

	if key := NormalizeIdentity(ev.BillingEmail); key != "" {
		r.metrics.RecordLookupFallback("billing_email", "hit")
		return key, nil
	}
	r.metrics.RecordLookupFallback("billing_email", "miss")

	if key := r.lookup(ctx, "customer_lookup", ev.CustomerRef, ev, r.directory.LookupCustomerEmail); key != "" {
		return key, nil
	}

	if key := r.lookup(ctx, "charge_lookup", ev.ChargeRef, ev, r.directory.LookupChargeEmail); key != "" {
		return key, nil
	}

	r.logger.Info("identity unresolvable, acknowledging without action",
		Field{Key: "event_id", Value: ev.EventID},
		Field{Key: "customer_ref", Value: ev.CustomerRef},
		Field{Key: "charge_ref", Value: ev.ChargeRef})
	return "", ErrUnresolvable
}

// lookup runs one directory fallback step under the per-call timeout. Any
// failure, including a transport error or a stalled call, falls through to
// the next step.
func (r *Resolver) lookup(
	ctx context.Context, step, ref string, ev *PaymentEvent,
	fn func(context.Context, string) (string, error),
) IdentityKey {
	if ref == "" {
		r.metrics.RecordLookupFallback(step, "miss")
		return ""
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	email, err := fn(lookupCtx, ref)
	if err != nil {
		status := "error"
		if errors.Is(err, ErrNotFound) {
			status = "miss"
		}
		r.metrics.RecordLookupFallback(step, status)
		r.logger.Warn("identity lookup failed, trying next fallback",
			Field{Key: "event_id", Value: ev.EventID},
			Field{Key: "step", Value: step},
			Field{Key: "ref", Value: ref},
			Field{Key: "error", Value: err.Error()})
		return ""
	}

	key := NormalizeIdentity(email)
	if key == "" {
		r.metrics.RecordLookupFallback(step, "miss")
		return ""
	}
	r.metrics.RecordLookupFallback(step, "hit")
	return key
}
