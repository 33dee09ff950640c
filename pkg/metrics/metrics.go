package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is a no-op.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	checkouts       *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	sessionReuse    *prometheus.CounterVec
}

// New registers the collectors on the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_sessions_total",
		Help: "Checkout session creation attempts by result.",
	}, []string{"result"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Verified Stripe webhook events by type and result.",
	}, []string{"type", "result"})
	sessionReuse := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_session_reuse_total",
		Help: "Recent checkout session lookups by result.",
	}, []string{"result"})
	reg.MustRegister(requests, requestDuration, checkouts, webhookEvents, sessionReuse)
	return &Metrics{
		requests:        requests,
		requestDuration: requestDuration,
		checkouts:       checkouts,
		webhookEvents:   webhookEvents,
		sessionReuse:    sessionReuse,
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	route = normalizeLabel(route)
	m.requests.WithLabelValues(route, method, statusLabel(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// IncCheckout counts a checkout attempt ("created", "rejected", "failed").
func (m *Metrics) IncCheckout(result string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncWebhookEvent counts a dispatched event by its outcome label.
func (m *Metrics) IncWebhookEvent(eventType, result string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

// IncSessionReuse counts a recent-session lookup: "hit", "miss" or "error".
func (m *Metrics) IncSessionReuse(result string) {
	if m == nil {
		return
	}
	m.sessionReuse.WithLabelValues(normalizeLabel(result)).Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
