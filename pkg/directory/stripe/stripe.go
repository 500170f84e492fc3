// Package stripe implements the customer directory on the Stripe API:
// customer and charge email lookups used as identity fallbacks, and the
// idempotent business-info update applied on reconciliation.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v83"

	"github.com/Coded-hub/ghl-stripe-webhook/pkg/reconcile"
)

const defaultTaxIDType = "eu_vat"

// Config holds Stripe directory configuration.
type Config struct {
	// APIKey is the Stripe secret key (required).
	APIKey string

	// TaxIDType is the Stripe tax id type registered for reconciled tax
	// identifiers. Defaults to "eu_vat".
	TaxIDType string

	// Metrics is optional; defaults to no-op metrics.
	Metrics reconcile.Metrics
}

// Directory implements reconcile.Directory against the Stripe API.
type Directory struct {
	client    *stripe.Client
	taxIDType string
	metrics   reconcile.Metrics
}

// New creates a Stripe-backed directory.
func New(config Config) (*Directory, error) {
	apiKey := strings.TrimSpace(config.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("stripe API key is required")
	}

	taxIDType := config.TaxIDType
	if taxIDType == "" {
		taxIDType = defaultTaxIDType
	}

	metrics := config.Metrics
	if metrics == nil {
		metrics = &reconcile.NoopMetrics{}
	}

	return &Directory{
		client:    stripe.NewClient(apiKey),
		taxIDType: taxIDType,
		metrics:   metrics,
	}, nil
}

// LookupCustomerEmail implements reconcile.Directory.
func (d *Directory) LookupCustomerEmail(ctx context.Context, customerRef string) (string, error) {
	cust, err := d.client.V1Customers.Retrieve(ctx, customerRef, nil)
	if err != nil {
		d.metrics.RecordAdapterCall("lookup_customer", "error")
		if isNotFound(err) {
			return "", reconcile.ErrNotFound
		}
		return "", fmt.Errorf("retrieve customer %s: %w", customerRef, err)
	}
	d.metrics.RecordAdapterCall("lookup_customer", "success")

	if cust.Email == "" {
		return "", reconcile.ErrNotFound
	}
	return cust.Email, nil
}

// LookupChargeEmail implements reconcile.Directory. The billing email on
// the charge is preferred over its receipt email.
func (d *Directory) LookupChargeEmail(ctx context.Context, chargeRef string) (string, error) {
	ch, err := d.client.V1Charges.Retrieve(ctx, chargeRef, nil)
	if err != nil {
		d.metrics.RecordAdapterCall("lookup_charge", "error")
		if isNotFound(err) {
			return "", reconcile.ErrNotFound
		}
		return "", fmt.Errorf("retrieve charge %s: %w", chargeRef, err)
	}
	d.metrics.RecordAdapterCall("lookup_charge", "success")

	email := ""
	if ch.BillingDetails != nil {
		email = ch.BillingDetails.Email
	}
	if email == "" {
		email = ch.ReceiptEmail
	}
	if email == "" {
		return "", reconcile.ErrNotFound
	}
	return email, nil
}

// ApplyBusinessInfo implements reconcile.Directory. Empty fields are left
// unchanged on the customer. The update is idempotent: the customer name
// converges on repeated application, and the tax id is only created when
// the same value is not already registered, so a redelivered payment event
// re-applies without error.
func (d *Directory) ApplyBusinessInfo(ctx context.Context, customerRef, businessName, taxID string) error {
	if customerRef == "" {
		return fmt.Errorf("customer reference is required")
	}

	if businessName != "" {
		params := &stripe.CustomerUpdateParams{
			Name: stripe.String(businessName),
		}
		if _, err := d.client.V1Customers.Update(ctx, customerRef, params); err != nil {
			return fmt.Errorf("update customer %s: %w", customerRef, err)
		}
	}

	if taxID == "" {
		return nil
	}

	registered, err := d.taxIDRegistered(ctx, customerRef, taxID)
	if err != nil {
		return err
	}
	if registered {
		return nil
	}

	createParams := &stripe.TaxIDCreateParams{
		Customer: stripe.String(customerRef),
		Type:     stripe.String(d.taxIDType),
		Value:    stripe.String(taxID),
	}
	if _, err := d.client.V1TaxIDs.Create(ctx, createParams); err != nil {
		// A concurrent replay may have registered the same value between
		// the list and the create; that still satisfies the contract.
		if isDuplicateTaxID(err) {
			return nil
		}
		return fmt.Errorf("create tax id for %s: %w", customerRef, err)
	}
	return nil
}

// taxIDRegistered reports whether the customer already carries taxID.
func (d *Directory) taxIDRegistered(ctx context.Context, customerRef, taxID string) (bool, error) {
	params := &stripe.TaxIDListParams{
		Customer: stripe.String(customerRef),
	}
	for tid, err := range d.client.V1TaxIDs.List(ctx, params) {
		if err != nil {
			return false, fmt.Errorf("list tax ids for %s: %w", customerRef, err)
		}
		if tid.Value == taxID {
			return true, nil
		}
	}
	return false, nil
}

func isNotFound(err error) bool {
	var serr *stripe.Error
	if errors.As(err, &serr) {
		return serr.HTTPStatusCode == http.StatusNotFound
	}
	return false
}

func isDuplicateTaxID(err error) bool {
	var serr *stripe.Error
	if errors.As(err, &serr) {
		return serr.Code == "tax_id_invalid" && strings.Contains(strings.ToLower(serr.Msg), "already exists")
	}
	return false
}
