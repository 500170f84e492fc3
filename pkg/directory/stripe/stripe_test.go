package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83"

	"github.com/Coded-hub/ghl-stripe-webhook/pkg/reconcile"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{APIKey: "   "})
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	d, err := New(Config{APIKey: "sk_test_123"})
	require.NoError(t, err)

	assert.Equal(t, defaultTaxIDType, d.taxIDType)
	assert.IsType(t, &reconcile.NoopMetrics{}, d.metrics)
}

func TestNew_CustomTaxIDType(t *testing.T) {
	d, err := New(Config{APIKey: "sk_test_123", TaxIDType: "ro_tin"})
	require.NoError(t, err)

	assert.Equal(t, "ro_tin", d.taxIDType)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&stripe.Error{HTTPStatusCode: http.StatusNotFound}))
	assert.True(t, isNotFound(fmt.Errorf("retrieve: %w", &stripe.Error{HTTPStatusCode: http.StatusNotFound})))

	assert.False(t, isNotFound(&stripe.Error{HTTPStatusCode: http.StatusForbidden}))
	assert.False(t, isNotFound(errors.New("connection refused")))
	assert.False(t, isNotFound(nil))
}

func TestIsDuplicateTaxID(t *testing.T) {
	dup := &stripe.Error{
		Code: "tax_id_invalid",
		Msg:  "A tax ID with value 'RO123' already exists on this customer.",
	}
	assert.True(t, isDuplicateTaxID(dup))
	assert.True(t, isDuplicateTaxID(fmt.Errorf("create: %w", dup)))

	assert.False(t, isDuplicateTaxID(&stripe.Error{
		Code: "tax_id_invalid",
		Msg:  "The tax ID is not valid for type eu_vat.",
	}))
	assert.False(t, isDuplicateTaxID(&stripe.Error{
		Code: "resource_missing",
		Msg:  "No such customer.",
	}))
	assert.False(t, isDuplicateTaxID(errors.New("connection refused")))
	assert.False(t, isDuplicateTaxID(nil))
}

func TestApplyBusinessInfo_RequiresCustomerRef(t *testing.T) {
	d, err := New(Config{APIKey: "sk_test_123"})
	require.NoError(t, err)

	err = d.ApplyBusinessInfo(context.Background(), "", "Acme", "RO123")
	assert.Error(t, err)
}
