package facilitator

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// settleDurationBuckets are the settle-latency histogram bucket upper
// bounds, in seconds.
var settleDurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0}

// Metrics is the facilitator's Prometheus registry: verify_requests_total,
// settle_requests_total, settle_duration_seconds, and hmac_failures_total,
// each registered against a private registry so multiple Facilitators in
// one process (as in tests) never collide on the default registerer.
type Metrics struct {
	registry       *prometheus.Registry
	verifyRequests *prometheus.CounterVec
	settleRequests *prometheus.CounterVec
	settleDuration *prometheus.HistogramVec
	hmacFailures   *prometheus.CounterVec
}

// NewMetrics returns an empty metrics registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		verifyRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verify_requests_total",
			Help: "Facilitator verify calls by result.",
		}, []string{"result"}),
		settleRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "settle_requests_total",
			Help: "Facilitator settle calls by result.",
		}, []string{"result"}),
		settleDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "settle_duration_seconds",
			Help:    "Facilitator settle call latency by result.",
			Buckets: settleDurationBuckets,
		}, []string{"result"}),
		hmacFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hmac_failures_total",
			Help: "Facilitator auth rejections by reason.",
		}, []string{"reason"}),
	}
}

// ObserveVerify records the outcome of a verify call ("valid" or
// "invalid").
func (m *Metrics) ObserveVerify(result string) {
	m.verifyRequests.WithLabelValues(result).Inc()
}

// ObserveSettle records the outcome and wall-clock duration of a settle
// call ("success" or "failure").
func (m *Metrics) ObserveSettle(result string, seconds float64) {
	m.settleRequests.WithLabelValues(result).Inc()
	m.settleDuration.WithLabelValues(result).Observe(seconds)
}

// ObserveHMACFailure records a rejected /verify-and-settle request by
// reason ("missing", "malformed", or "mismatch").
func (m *Metrics) ObserveHMACFailure(reason string) {
	m.hmacFailures.WithLabelValues(reason).Inc()
}

// Handler returns an http.Handler serving this registry in Prometheus text
// exposition format, for mounting at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
