// Package api provides the HTTP ingress for the two event streams: parsed
// profile submissions and raw, signature-checked payment events.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v83"

	"github.com/Coded-hub/ghl-stripe-webhook/pkg/api/internal"
	"github.com/Coded-hub/ghl-stripe-webhook/pkg/reconcile"
	"github.com/Coded-hub/ghl-stripe-webhook/pkg/webhook"
)

const (
	streamProfile = "profile"
	streamPayment = "payment"

	eventPaymentSucceeded = "payment_intent.succeeded"
)

// Handler serves the ingress endpoints.
type Handler struct {
	config Config
}

// HandleProfile receives a profile-stream submission: a JSON object in one
// of the recognized shapes. A resolvable email is required; the record is
// upserted into the correlation store last-write-wins.
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := internal.ReadBodyStrict(w, r, h.config.MaxBodyBytes)
	if err != nil {
		h.rejectBody(w, streamProfile, err)
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		h.config.Metrics.RecordWebhookError(streamProfile, "invalid_payload")
		_ = internal.WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON payload"})
		return
	}

	rec, err := reconcile.NormalizeProfile(payload, time.Now().UTC())
	if err != nil {
		h.config.Metrics.RecordProfileEvent("rejected")
		h.config.Logger.Warn("profile submission rejected",
			reconcile.Field{Key: "error", Value: err.Error()})
		_ = internal.WriteJSON(w, http.StatusBadRequest, ProfileErrorResponse{
			Error:    err.Error(),
			Received: reconcile.ExtractProfileFields(payload),
		})
		return
	}

	if err := h.config.Store.Put(r.Context(), rec); err != nil {
		h.config.Metrics.RecordProfileEvent("store_error")
		h.config.Logger.Error("profile store write failed",
			reconcile.Field{Key: "identity_key", Value: string(rec.Key)},
			reconcile.Field{Key: "error", Value: err.Error()})
		_ = internal.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to store profile"})
		return
	}

	h.config.Metrics.RecordProfileEvent("stored")
	h.config.Logger.Info("profile stored",
		reconcile.Field{Key: "identity_key", Value: string(rec.Key)})
	_ = internal.WriteJSON(w, http.StatusOK, ProfileResponse{Success: true})
}

// HandleStripeWebhook receives a payment-stream event. The body is read
// byte-for-byte and verified against the Stripe-Signature header before
// anything else runs; unverified payment data never reaches the engine.
func (h *Handler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	setSecurityHeaders(w)

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := internal.ReadBodyStrict(w, r, h.config.MaxBodyBytes)
	if err != nil {
		h.rejectBody(w, streamPayment, err)
		return
	}

	sig := r.Header.Get("Stripe-Signature")
	if sig == "" {
		sig = r.Header.Get("stripe-signature")
	}

	event, err := h.config.Verifier.Verify(body, sig)
	if err != nil {
		// An authenticated body that fails to decode is a payload defect,
		// not an authentication failure.
		if errors.Is(err, webhook.ErrInvalidPayload) {
			h.config.Metrics.RecordWebhookError(streamPayment, "invalid_payload")
			h.config.Logger.Warn("webhook event payload undecodable",
				reconcile.Field{Key: "error", Value: err.Error()})
			_ = internal.WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid event payload"})
			return
		}
		h.config.Metrics.RecordWebhookError(streamPayment, "auth_failed")
		h.config.Logger.Warn("webhook signature verification failed",
			reconcile.Field{Key: "error", Value: err.Error()})
		_ = internal.WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "signature verification failed"})
		return
	}

	eventType := string(event.Type)
	if eventType != eventPaymentSucceeded {
		h.config.Metrics.RecordPaymentEvent(eventType, "ignored")
		_ = internal.WriteJSON(w, http.StatusOK, WebhookResponse{Received: true})
		return
	}

	ev, err := paymentEventFromStripe(&event)
	if err != nil {
		h.config.Metrics.RecordWebhookError(streamPayment, "invalid_payload")
		h.config.Logger.Warn("payment event payload undecodable",
			reconcile.Field{Key: "event_id", Value: event.ID},
			reconcile.Field{Key: "error", Value: err.Error()})
		_ = internal.WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid event payload"})
		return
	}

	// The reconciliation side effect must survive a client disconnect: the
	// response is best-effort, the attempt is not cancelled with it.
	res, err := h.config.Reconciler.Process(context.WithoutCancel(r.Context()), ev)
	if err != nil {
		h.config.Metrics.RecordPaymentEvent(eventType, "error")
		// Retryable: the upstream sender's at-least-once redelivery is the
		// only recovery path, there is no durable queue here.
		_ = internal.WriteJSON(w, http.StatusBadGateway, ErrorResponse{Error: "reconciliation failed"})
		return
	}

	h.config.Metrics.RecordPaymentEvent(eventType, string(res.Outcome))
	_ = internal.WriteJSON(w, http.StatusOK, WebhookResponse{
		Received: true,
		Outcome:  string(res.Outcome),
		Reason:   res.Reason,
	})
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = internal.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) rejectBody(w http.ResponseWriter, stream string, err error) {
	if errors.Is(err, internal.ErrPayloadTooLarge) {
		h.config.Metrics.RecordWebhookError(stream, "payload_too_large")
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}
	h.config.Metrics.RecordWebhookError(stream, "invalid_payload")
	http.Error(w, "invalid payload", http.StatusBadRequest)
}

// paymentEventFromStripe maps a verified event envelope to the engine's
// payment event, pulling the inline identity candidates off the payment
// intent and its embedded latest charge.
func paymentEventFromStripe(event *stripe.Event) (*reconcile.PaymentEvent, error) {
	if event.Data == nil {
		return nil, errors.New("event has no data object")
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, err
	}

	ev := &reconcile.PaymentEvent{
		EventID:      event.ID,
		Type:         string(event.Type),
		ReceiptEmail: pi.ReceiptEmail,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		ReceivedAt:   time.Now().UTC(),
	}

	if pi.Customer != nil {
		ev.CustomerRef = pi.Customer.ID
	}
	if pi.LatestCharge != nil {
		ev.ChargeRef = pi.LatestCharge.ID
		if pi.LatestCharge.BillingDetails != nil {
			ev.BillingEmail = pi.LatestCharge.BillingDetails.Email
		}
	}
	return ev, nil
}

func setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
