package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Coded-hub/ghl-stripe-webhook/pkg/reconcile"
)

// Metrics implements reconcile.Metrics using Prometheus.
type Metrics struct {
	profileEventsTotal   *prometheus.CounterVec
	paymentEventsTotal   *prometheus.CounterVec
	reconcileDuration    *prometheus.HistogramVec
	lookupFallbacksTotal *prometheus.CounterVec
	adapterCallsTotal    *prometheus.CounterVec
	webhookErrorsTotal   *prometheus.CounterVec
}

// NewMetrics creates a new Prometheus metrics implementation for the
// reconciliation engine.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		profileEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "profile_events_total",
			Help:      "Total number of profile submissions received.",
		}, []string{"status"}),

		paymentEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "payment_events_total",
			Help:      "Total number of payment events received, by terminal outcome.",
		}, []string{"event_type", "outcome"}),

		reconcileDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "duration_seconds",
			Help:      "Duration of reconciliation attempts in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),

		lookupFallbacksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "lookup_fallbacks_total",
			Help:      "Total number of identity derivation fallback steps attempted.",
		}, []string{"step", "status"}),

		adapterCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "adapter_calls_total",
			Help:      "Total number of customer directory calls.",
		}, []string{"operation", "status"}),

		webhookErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "webhook_errors_total",
			Help:      "Total number of ingress-level webhook failures.",
		}, []string{"stream", "error_type"}),
	}
}

func (m *Metrics) RecordProfileEvent(status string) {
	m.profileEventsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordPaymentEvent(eventType, outcome string) {
	m.paymentEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) RecordReconcileDuration(outcome string, duration time.Duration) {
	m.reconcileDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *Metrics) RecordLookupFallback(step, status string) {
	m.lookupFallbacksTotal.WithLabelValues(step, status).Inc()
}

func (m *Metrics) RecordAdapterCall(operation, status string) {
	m.adapterCallsTotal.WithLabelValues(operation, status).Inc()
}

func (m *Metrics) RecordWebhookError(stream, errorType string) {
	m.webhookErrorsTotal.WithLabelValues(stream, errorType).Inc()
}
