package digitalkey

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Issued *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Issued: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "safeballot_digital_keys_total",
			Help: "Digital keys returned, by provenance",
		}, []string{"provenance"}),
	}
}

func (m *Metrics) IncIssued(p Provenance) {
	if m == nil {
		return
	}
	m.Issued.WithLabelValues(string(p)).Inc()
}
