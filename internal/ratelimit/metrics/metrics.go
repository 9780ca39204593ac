package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ChecksTotal *prometheus.CounterVec
	DeniedTotal *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		ChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verigate_ratelimit_checks_total",
			Help: "Total number of rate limit checks by operation",
		}, []string{"operation"}),
		DeniedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verigate_ratelimit_denied_total",
			Help: "Total number of requests denied by the rate limiter",
		}, []string{"operation"}),
	}
}

func (m *Metrics) ObserveCheck(operation string, allowed bool) {
	m.ChecksTotal.WithLabelValues(operation).Inc()
	if !allowed {
		m.DeniedTotal.WithLabelValues(operation).Inc()
	}
}
