package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SubmissionsTotal prometheus.Counter
	ReviewsTotal     *prometheus.CounterVec
	ReviewDuration   prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		SubmissionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verigate_kyc_submissions_total",
			Help: "Total number of accepted verification submissions",
		}),
		ReviewsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verigate_kyc_reviews_total",
			Help: "Total number of review decisions by outcome",
		}, []string{"decision"}),
		ReviewDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "verigate_kyc_review_duration_seconds",
			Help:    "Time from case creation to review decision",
			Buckets: prometheus.ExponentialBuckets(60, 4, 10),
		}),
	}
}
