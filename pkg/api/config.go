package api

import (
	"fmt"

	"github.com/Coded-hub/ghl-stripe-webhook/pkg/reconcile"
	"github.com/Coded-hub/ghl-stripe-webhook/pkg/webhook"
)

const defaultMaxBodyBytes = 256 * 1024

// Config holds configuration for the ingress handlers.
type Config struct {
	// Store is the correlation store profile submissions are written to (required).
	Store reconcile.ProfileStore

	// Reconciler processes verified payment events (required).
	Reconciler *reconcile.Reconciler

	// Verifier authenticates raw payment-stream payloads (required).
	Verifier *webhook.Verifier

	// MaxBodyBytes caps request bodies. Defaults to 256 KiB.
	MaxBodyBytes int64

	// Logger is optional; defaults to a no-op logger.
	Logger reconcile.Logger

	// Metrics is optional; defaults to no-op metrics.
	Metrics reconcile.Metrics
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Store == nil {
		return fmt.Errorf("store is required")
	}
	if c.Reconciler == nil {
		return fmt.Errorf("reconciler is required")
	}
	if c.Verifier == nil {
		return fmt.Errorf("verifier is required")
	}
	return nil
}

// NewHandler creates the ingress handler set with the given configuration.
func NewHandler(config Config) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaultMaxBodyBytes
	}
	if config.Logger == nil {
		config.Logger = &reconcile.NoopLogger{}
	}
	if config.Metrics == nil {
		config.Metrics = &reconcile.NoopMetrics{}
	}
	return &Handler{config: config}, nil
}
