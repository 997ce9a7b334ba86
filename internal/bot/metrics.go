package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	UpdatesProcessed     *prometheus.CounterVec
	ErrorsTotal          prometheus.Counter
	ExportsTotal         prometheus.Counter
	UpdateProcessingTime prometheus.Histogram
}

// NewMetrics registers the bot metrics with the default registry. Call it
// once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		UpdatesProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bot_updates_total",
			Help: "Telegram updates processed by kind",
		}, []string{"kind"}),

		ErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "telegram_bot_errors_total",
			Help: "Updates that failed unexpectedly",
		}),

		ExportsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "telegram_bot_exports_total",
			Help: "Order exports sent to managers",
		}),

		UpdateProcessingTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "telegram_bot_update_processing_time_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
