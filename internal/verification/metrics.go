package verification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Started     *prometheus.CounterVec
	Transitions *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Started: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safeballot_verification_started_total",
			Help: "Verification flows started, by variant; resumed flows use variant=resumed",
		}, []string{"variant"}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safeballot_verification_transitions_total",
			Help: "Verification step transitions",
		}, []string{"variant", "from", "to"}),
	}
}

func (m *Metrics) IncStarted(variant string) {
	if m != nil {
		m.Started.WithLabelValues(variant).Inc()
	}
}

func (m *Metrics) IncTransition(v Variant, from, to State) {
	if m != nil {
		m.Transitions.WithLabelValues(string(v), string(from), string(to)).Inc()
	}
}
