package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-wide HTTP and store metrics. Module specific metrics
// live next to their module.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	StoreErrors     *prometheus.CounterVec
	BallotSource    *prometheus.CounterVec
}

// New creates and registers the metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers with reg; tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "safeballot_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safeballot_profile_store_errors_total",
			Help: "Profile store operation failures by operation",
		}, []string{"op"}),
		BallotSource: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safeballot_ballot_fetch_total",
			Help: "Ballot fetches by the source that served them",
		}, []string{"source"}),
	}
}

// ObserveRequest records one request. Nil-safe.
func (m *Metrics) ObserveRequest(route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, status).Observe(seconds)
}

// IncStoreError counts a failed profile store operation. Nil-safe.
func (m *Metrics) IncStoreError(op string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(op).Inc()
}

// IncBallotSource counts a ballot served from source. Nil-safe.
func (m *Metrics) IncBallotSource(source string) {
	if m == nil {
		return
	}
	m.BallotSource.WithLabelValues(source).Inc()
}
