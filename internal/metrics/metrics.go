package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	EmailsPrepared    prometheus.Counter
	EmailsDispatched  prometheus.Counter
	DispatchFailures  prometheus.Counter
	DispatchDuration  prometheus.Histogram
	LogLinesProcessed prometheus.Counter
	LogLinesApplied   prometheus.Counter
	LogLinesSkipped   prometheus.Counter
	StatusTransitions *prometheus.CounterVec
	UsageReports      prometheus.Counter
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		EmailsPrepared: promauto.NewCounter(prometheus.CounterOpts{
			Name: "feedcourier_emails_prepared_total",
			Help: "Total number of outbox message artifacts written",
		}),
		EmailsDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "feedcourier_emails_dispatched_total",
			Help: "Total number of messages handed to the relay",
		}),
		DispatchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "feedcourier_dispatch_failures_total",
			Help: "Total number of messages that failed relay hand-off",
		}),
		DispatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedcourier_dispatch_duration_seconds",
			Help:    "Time spent in one dispatch pass",
			Buckets: prometheus.DefBuckets,
		}),
		LogLinesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "feedcourier_log_lines_processed_total",
			Help: "Total number of relay log lines read",
		}),
		LogLinesApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "feedcourier_log_lines_applied_total",
			Help: "Total number of log lines applied to a tracked message",
		}),
		LogLinesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "feedcourier_log_lines_skipped_total",
			Help: "Total number of malformed log lines skipped",
		}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "feedcourier_status_transitions_total",
			Help: "Artifact status-folder transitions by new status",
		}, []string{"status"}),
		UsageReports: promauto.NewCounter(prometheus.CounterOpts{
			Name: "feedcourier_usage_reports_total",
			Help: "Total number of usage records sent to the billing provider",
		}),
	}
}
