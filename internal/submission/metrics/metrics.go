package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for vote submission.
type Metrics struct {
	// Transport attempts by tier and outcome (success or failure category)
	TierAttempts *prometheus.CounterVec

	// Transport latency by tier
	TierLatency *prometheus.HistogramVec

	// Submission results: durable, local, ineligible, network, validation
	Results *prometheus.CounterVec

	// Overall submission latency including every tier tried
	SubmitLatency prometheus.Histogram
}

// New registers the submission metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TierAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safeballot_vote_transport_attempts_total",
			Help: "Vote transport attempts by tier and outcome",
		}, []string{"tier", "outcome"}),

		TierLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "safeballot_vote_transport_duration_seconds",
			Help:    "Duration of one vote transport attempt by tier",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"tier"}),

		Results: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safeballot_vote_submissions_total",
			Help: "Vote submissions by result",
		}, []string{"result"}),

		SubmitLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "safeballot_vote_submit_duration_seconds",
			Help:    "Duration of a full vote submission",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
	}
}

// ObserveTier records one transport attempt.
func (m *Metrics) ObserveTier(tier, outcome string, d time.Duration) {
	if m != nil {
		m.TierAttempts.WithLabelValues(tier, outcome).Inc()
		m.TierLatency.WithLabelValues(tier).Observe(d.Seconds())
	}
}

// ObserveResult records a finished submission.
func (m *Metrics) ObserveResult(result string, d time.Duration) {
	if m != nil {
		m.Results.WithLabelValues(result).Inc()
		m.SubmitLatency.Observe(d.Seconds())
	}
}
