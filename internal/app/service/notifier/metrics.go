package notifier

import (
	"github.com/prometheus/client_golang/prometheus"

	pkgmetrics "github.com/nebulahq/nebula/pkg/metrics"
)

var (
	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_webhook_dispatch_total",
			Help: "Webhook dispatch attempts partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	dispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nebula_webhook_dispatch_duration_ms",
			Help:    "Duration of individual webhook posts in milliseconds.",
			Buckets: pkgmetrics.HistogramBuckets,
		},
	)
)

const (
	outcomeSuccess       = "success"
	outcomeFailed        = "failed"
	outcomeTemplateError = "template_error"
	outcomeSkipped       = "skipped"
)

func init() {
	prometheus.MustRegister(dispatchTotal, dispatchDuration)
}
