package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	AttemptsRecordedTotal   prometheus.Counter
	BlocksTotal             prometheus.Counter
	DeniedTotal             prometheus.Counter
	FailOpenTotal           prometheus.Counter
	EvictionsTotal          prometheus.Counter
	TrackedIdentities       prometheus.Gauge
	CleanupRunsTotal        *prometheus.CounterVec
	CleanupRecordsSwept     prometheus.Counter
	CleanupDurationSeconds  prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		AttemptsRecordedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_attempts_recorded_total",
			Help: "Total number of attempts recorded by the rate limiter",
		}),
		BlocksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_blocks_total",
			Help: "Total number of identities that entered a blocked state",
		}),
		DeniedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_denied_total",
			Help: "Total number of denied rate limit decisions",
		}),
		FailOpenTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_fail_open_total",
			Help: "Total number of decisions that failed open due to an internal fault",
		}),
		EvictionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_evictions_total",
			Help: "Total number of identities evicted by the bounded cache",
		}),
		TrackedIdentities: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "gatekeeper_ratelimit_tracked_identities",
			Help: "Current number of identities tracked by the rate limiter",
		}),
		CleanupRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_cleanup_runs_total",
			Help: "Total number of cleanup runs",
		}, []string{"status"}),
		CleanupRecordsSwept: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_cleanup_records_swept_total",
			Help: "Total number of expired attempt records removed by the cleanup worker",
		}),
		CleanupDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "gatekeeper_ratelimit_cleanup_duration_seconds",
			Help: "Duration of cleanup runs in seconds",
		}),
	}
}
