package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Notification outcomes, one per terminal branch of the webhook handler.
const (
	OutcomeDuplicate        = "duplicate"
	OutcomeVerified         = "verified"
	OutcomeValidation       = "validation"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeRequestFailed    = "request_failed"
	OutcomeListenerFailed   = "listener_failed"
)

// Webhook counts gateway notification outcomes. Each instance owns its
// registry so handlers built in tests do not collide.
type Webhook struct {
	registry *prometheus.Registry
	received prometheus.Counter
	outcomes *prometheus.CounterVec
	verify   prometheus.Histogram
}

func NewWebhook() *Webhook {
	w := &Webhook{
		registry: prometheus.NewRegistry(),
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "payu",
			Subsystem: "webhook",
			Name:      "received_total",
			Help:      "Notifications received from the gateway.",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payu",
			Subsystem: "webhook",
			Name:      "notifications_total",
			Help:      "Notifications by handling outcome.",
		}, []string{"outcome"}),
		verify: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "payu",
			Subsystem: "webhook",
			Name:      "verify_duration_seconds",
			Help:      "Time spent verifying a notification against the gateway.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	w.registry.MustRegister(w.received, w.outcomes, w.verify)
	return w
}

func (w *Webhook) Received() {
	w.received.Inc()
}

func (w *Webhook) Outcome(outcome string) {
	w.outcomes.WithLabelValues(outcome).Inc()
}

// ObserveVerify records how long one gateway verification round took.
func (w *Webhook) ObserveVerify(t *Timer) {
	w.verify.Observe(t.Duration().Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (w *Webhook) Handler() http.HandlerFunc {
	return promhttp.HandlerFor(w.registry, promhttp.HandlerOpts{}).ServeHTTP
}
