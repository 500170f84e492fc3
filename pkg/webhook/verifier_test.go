package webhook

import (
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripewebhook "github.com/stripe/stripe-go/v83/webhook"
)

const testSecret = "whsec_test_secret"

var testPayload = []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","created":1700000000,"data":{"object":{"id":"pi_1"}}}`)

// signHeader builds a valid signature header for payload signed at t.
func signHeader(t time.Time, payload []byte, secret string) string {
	sig := stripewebhook.ComputeSignature(t, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", t.Unix(), hex.EncodeToString(sig))
}

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(Config{Secret: testSecret})
	require.NoError(t, err)
	return v
}

func TestNewVerifier_RequiresSecret(t *testing.T) {
	_, err := NewVerifier(Config{Secret: "   "})
	assert.Error(t, err)
}

func TestVerify_Valid(t *testing.T) {
	v := newTestVerifier(t)

	event, err := v.Verify(testPayload, signHeader(time.Now(), testPayload, testSecret))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, "payment_intent.succeeded", string(event.Type))
	require.NotNil(t, event.Data)
	assert.NotEmpty(t, event.Data.Raw)
}

func TestVerify_MissingHeader(t *testing.T) {
	v := newTestVerifier(t)
	_, err := v.Verify(testPayload, "")
	assert.ErrorIs(t, err, ErrMissingSignature)
}

func TestVerify_MalformedHeader(t *testing.T) {
	v := newTestVerifier(t)

	tests := []struct {
		name   string
		header string
	}{
		{"garbage", "not-a-signature"},
		{"non-numeric timestamp", "t=soon,v1=abcdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(testPayload, tt.header)
			assert.ErrorIs(t, err, ErrMalformedSignature)
		})
	}
}

func TestVerify_NoUsableSignature(t *testing.T) {
	// A parseable header carrying no decodable v1 signature cannot match
	// anything.
	v := newTestVerifier(t)
	now := time.Now().Unix()

	tests := []struct {
		name   string
		header string
	}{
		{"timestamp only", fmt.Sprintf("t=%d", now)},
		{"only undecodable signatures", fmt.Sprintf("t=%d,v1=zzzz", now)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(testPayload, tt.header)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}

func TestVerify_MissingTimestamp(t *testing.T) {
	// Without a t pair the timestamp is the zero time, which is always
	// outside the tolerance window.
	v := newTestVerifier(t)
	sig := stripewebhook.ComputeSignature(time.Now(), testPayload, testSecret)

	_, err := v.Verify(testPayload, fmt.Sprintf("v1=%s", hex.EncodeToString(sig)))
	assert.ErrorIs(t, err, ErrTimestampExpired)
}

func TestVerify_TamperedBody(t *testing.T) {
	// Any single-byte mutation of the signed body must invalidate the
	// signature.
	v := newTestVerifier(t)
	header := signHeader(time.Now(), testPayload, testSecret)

	for i := range testPayload {
		tampered := make([]byte, len(testPayload))
		copy(tampered, testPayload)
		tampered[i] ^= 0x01

		if _, err := v.Verify(tampered, header); err == nil {
			t.Fatalf("mutation at byte %d verified", i)
		}
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	v := newTestVerifier(t)

	_, err := v.Verify(testPayload, signHeader(time.Now(), testPayload, "whsec_other"))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_StaleTimestamp(t *testing.T) {
	v := newTestVerifier(t)

	stale := time.Now().Add(-DefaultTolerance - time.Minute)
	_, err := v.Verify(testPayload, signHeader(stale, testPayload, testSecret))
	assert.ErrorIs(t, err, ErrTimestampExpired)
}

func TestVerify_FutureTimestampAccepted(t *testing.T) {
	// Tolerance guards against replayed stale payloads; a sender clock
	// running ahead is not a replay.
	v := newTestVerifier(t)

	future := time.Now().Add(time.Hour)
	_, err := v.Verify(testPayload, signHeader(future, testPayload, testSecret))
	assert.NoError(t, err)
}

func TestVerify_WithinTolerance(t *testing.T) {
	v := newTestVerifier(t)

	aged := time.Now().Add(-DefaultTolerance + time.Minute)
	_, err := v.Verify(testPayload, signHeader(aged, testPayload, testSecret))
	assert.NoError(t, err)
}

func TestVerify_MultipleSignatures(t *testing.T) {
	// Secret rotation sends one signature per active secret; any single
	// match verifies.
	v := newTestVerifier(t)
	now := time.Now()

	bad := stripewebhook.ComputeSignature(now, testPayload, "whsec_rotated_out")
	good := stripewebhook.ComputeSignature(now, testPayload, testSecret)
	header := fmt.Sprintf("t=%d,v1=%s,v1=%s",
		now.Unix(), hex.EncodeToString(bad), hex.EncodeToString(good))

	_, err := v.Verify(testPayload, header)
	assert.NoError(t, err)
}

func TestVerify_UnknownSchemeIgnored(t *testing.T) {
	v := newTestVerifier(t)
	now := time.Now()

	sig := stripewebhook.ComputeSignature(now, testPayload, testSecret)
	header := fmt.Sprintf("t=%d,v0=legacy,v1=%s", now.Unix(), hex.EncodeToString(sig))

	_, err := v.Verify(testPayload, header)
	assert.NoError(t, err)
}

func TestVerify_AuthenticatedGarbagePayload(t *testing.T) {
	v := newTestVerifier(t)

	payload := []byte("not json")
	_, err := v.Verify(payload, signHeader(time.Now(), payload, testSecret))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestVerify_AuthenticatedNonEventPayload(t *testing.T) {
	v := newTestVerifier(t)

	payload := []byte(`{"id":"ch_1","object":"charge"}`)
	_, err := v.Verify(payload, signHeader(time.Now(), payload, testSecret))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestVerify_CustomTolerance(t *testing.T) {
	v, err := NewVerifier(Config{
		Secret:    testSecret,
		Tolerance: time.Minute,
	})
	require.NoError(t, err)

	aged := time.Now().Add(-2 * time.Minute)
	_, err = v.Verify(testPayload, signHeader(aged, testPayload, testSecret))
	assert.ErrorIs(t, err, ErrTimestampExpired)
}
