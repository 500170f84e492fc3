package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const defaultAdapterTimeout = 10 * time.Second

// Config holds the reconciler's collaborators.
type Config struct {
	// Store is the correlation store holding pending profile records (required).
	Store ProfileStore

	// Directory is the downstream customer directory (required).
	Directory Directory

	// AdapterTimeout bounds each directory call, the identity lookups and
	// the final update alike. Defaults to 10s. A timed-out update is an
	// adapter error, not a skip; a timed-out lookup falls through to the
	// next derivation step.
	AdapterTimeout time.Duration

	// Logger is optional; defaults to a no-op logger.
	Logger Logger

	// Metrics is optional; defaults to no-op metrics.
	Metrics Metrics
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Store == nil {
		return fmt.Errorf("store is required")
	}
	if c.Directory == nil {
		return fmt.Errorf("directory is required")
	}
	return nil
}

// Reconciler is the sole consumer of the correlation store. Given a
// verified payment event it decides whether enough information exists to
// apply a downstream update, and if so invokes the directory once per
// completed reconciliation.
type Reconciler struct {
	store     ProfileStore
	directory Directory
	resolver  *Resolver
	timeout   time.Duration
	logger    Logger
	metrics   Metrics
}

// NewReconciler creates a Reconciler from config.
func NewReconciler(config Config) (*Reconciler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := config.Logger
	if logger == nil {
		logger = &NoopLogger{}
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = &NoopMetrics{}
	}
	timeout := config.AdapterTimeout
	if timeout <= 0 {
		timeout = defaultAdapterTimeout
	}

	return &Reconciler{
		store:     config.Store,
		directory: config.Directory,
		resolver:  NewResolver(config.Directory, timeout, logger, metrics),
		timeout:   timeout,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

// Process derives the identity key for ev and reconciles it. This is the
// short-circuiting pipeline the payment ingress drives: resolve, look up
// the stored profile, apply downstream. An unresolvable identity is a
// terminal no-op, not an error.
func (r *Reconciler) Process(ctx context.Context, ev *PaymentEvent) (Result, error) {
	key, err := r.resolver.Resolve(ctx, ev)
	if err != nil {
		if errors.Is(err, ErrUnresolvable) {
			return Result{Outcome: OutcomeUnresolvable}, nil
		}
		return Result{}, err
	}
	return r.Reconcile(ctx, key, ev)
}

// Reconcile looks up the correlation store for key and, when a profile is
// present and the event carries a customer reference, applies the joined
// record to the directory.
//
// A missing profile or missing customer reference is a skip: acknowledged,
// no side effect, no retry expected from upstream. A store or directory
// failure is returned as an error so the ingress layer surfaces a
// retryable status and upstream's at-least-once redelivery recovers it.
// The profile record is not deleted on success, so a redelivered event
// re-applies idempotently.
func (r *Reconciler) Reconcile(ctx context.Context, key IdentityKey, ev *PaymentEvent) (Result, error) {
	start := time.Now()

	rec, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			r.logger.Info("no profile data for payment, skipping",
				Field{Key: "identity_key", Value: string(key)},
				Field{Key: "event_id", Value: ev.EventID})
			r.metrics.RecordReconcileDuration(string(OutcomeSkipped), time.Since(start))
			return Result{Outcome: OutcomeSkipped, Reason: ReasonNoProfileData}, nil
		}
		return Result{}, fmt.Errorf("correlation store lookup for %q: %w", key, err)
	}

	if ev.CustomerRef == "" {
		r.logger.Warn("payment event has no customer reference, skipping",
			Field{Key: "identity_key", Value: string(key)},
			Field{Key: "event_id", Value: ev.EventID})
		r.metrics.RecordReconcileDuration(string(OutcomeSkipped), time.Since(start))
		return Result{Outcome: OutcomeSkipped, Reason: ReasonNoCustomerRef}, nil
	}

	applyCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.directory.ApplyBusinessInfo(applyCtx, ev.CustomerRef, rec.BusinessName, rec.TaxID); err != nil {
		r.metrics.RecordAdapterCall("apply_business_info", "error")
		r.metrics.RecordReconcileDuration("error", time.Since(start))
		r.logger.Error("directory update failed",
			Field{Key: "identity_key", Value: string(key)},
			Field{Key: "event_id", Value: ev.EventID},
			Field{Key: "customer_ref", Value: ev.CustomerRef},
			Field{Key: "error", Value: err.Error()})
		return Result{}, fmt.Errorf("apply business info for %s: %w", ev.CustomerRef, err)
	}

	r.metrics.RecordAdapterCall("apply_business_info", "success")
	r.metrics.RecordReconcileDuration(string(OutcomeApplied), time.Since(start))
	r.logger.Info("reconciliation applied",
		Field{Key: "identity_key", Value: string(key)},
		Field{Key: "event_id", Value: ev.EventID},
		Field{Key: "customer_ref", Value: ev.CustomerRef})
	return Result{Outcome: OutcomeApplied}, nil
}
