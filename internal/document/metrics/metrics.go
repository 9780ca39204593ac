package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	UploadsTotal   *prometheus.CounterVec
	RejectedTotal  *prometheus.CounterVec
	UploadSize     prometheus.Histogram
	DownloadsTotal prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		UploadsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verigate_document_uploads_total",
			Help: "Total number of accepted document uploads by type",
		}, []string{"type"}),
		RejectedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verigate_document_uploads_rejected_total",
			Help: "Total number of rejected document uploads by reason",
		}, []string{"reason"}),
		UploadSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "verigate_document_upload_bytes",
			Help:    "Size distribution of accepted document uploads",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		}),
		DownloadsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verigate_document_downloads_total",
			Help: "Total number of document downloads served",
		}),
	}
}
