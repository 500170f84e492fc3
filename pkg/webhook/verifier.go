// Package webhook authenticates raw payment-processor webhook payloads.
//
// The processor signs the exact bytes it sends: the signature header
// carries a unix timestamp and one or more HMAC-SHA256 signatures computed
// over "<timestamp>.<body>". Verification therefore has to run against the
// unparsed request body - a body that has been decoded and re-serialized
// by any intermediary will not verify.
//
// The check itself is delegated to the stripe-go webhook package; this
// package pins the configuration and maps its failures onto a stable error
// taxonomy callers can branch on with errors.Is.
package webhook

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v83"
	stripewebhook "github.com/stripe/stripe-go/v83/webhook"
)

// DefaultTolerance is the maximum accepted age of the signature timestamp.
const DefaultTolerance = stripewebhook.DefaultTolerance

var (
	// ErrMissingSignature is returned when the signature header is absent.
	ErrMissingSignature = errors.New("signature header is required")

	// ErrMalformedSignature is returned when the header cannot be parsed.
	ErrMalformedSignature = errors.New("malformed signature header")

	// ErrTimestampExpired is returned when the signature timestamp is older
	// than the tolerance window.
	ErrTimestampExpired = errors.New("signature timestamp outside allowed tolerance")

	// ErrInvalidSignature is returned when no signature in the header
	// matches the expected signature for the payload.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInvalidPayload is returned when an authenticated payload is not a
	// valid event envelope.
	ErrInvalidPayload = errors.New("invalid event payload")
)

// Config holds verifier configuration.
type Config struct {
	// Secret is the shared signing secret (required).
	Secret string

	// Tolerance bounds the accepted timestamp age. Defaults to
	// DefaultTolerance. Zero or negative means the default; tolerance is
	// always enforced because replayed stale payloads are otherwise valid.
	Tolerance time.Duration
}

// Verifier authenticates raw webhook payloads against a shared secret.
// It has no side effects and must run before any business logic touches
// payment-stream input.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

// NewVerifier creates a Verifier from config.
func NewVerifier(config Config) (*Verifier, error) {
	secret := strings.TrimSpace(config.Secret)
	if secret == "" {
		return nil, fmt.Errorf("signing secret is required")
	}
	tolerance := config.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{secret: secret, tolerance: tolerance}, nil
}

// Verify authenticates payload against header and returns the parsed event
// envelope. payload must be the exact bytes as received on the wire.
func (v *Verifier) Verify(payload []byte, header string) (stripe.Event, error) {
	// The event API version is pinned on the webhook endpoint, not here,
	// so a mismatch with the SDK version is not an authentication failure.
	event, err := stripewebhook.ConstructEventWithOptions(payload, header, v.secret,
		stripewebhook.ConstructEventOptions{
			Tolerance:                v.tolerance,
			IgnoreAPIVersionMismatch: true,
		})
	if err != nil {
		return event, classify(err)
	}
	return event, nil
}

// classify maps stripe-go webhook failures onto this package's errors.
// Anything past signature validation is a payload problem, not an
// authentication problem.
func classify(err error) error {
	switch {
	case errors.Is(err, stripewebhook.ErrNotSigned):
		return ErrMissingSignature
	case errors.Is(err, stripewebhook.ErrInvalidHeader):
		return ErrMalformedSignature
	case errors.Is(err, stripewebhook.ErrTooOld):
		return ErrTimestampExpired
	case errors.Is(err, stripewebhook.ErrNoValidSignature):
		return ErrInvalidSignature
	default:
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
}
