package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for auth operations.
type Metrics struct {
	UsersCreated        prometheus.Counter
	LoginSuccesses      prometheus.Counter
	AuthFailures        *prometheus.CounterVec
	RateLimitedRequests *prometheus.CounterVec
	TokensIssued        prometheus.Counter
	LoginDurationMs     prometheus.Histogram
	RegisterDurationMs  prometheus.Histogram
}

// New registers and returns auth metrics collectors.
func New() *Metrics {
	return &Metrics{
		UsersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_users_created_total",
			Help: "Total number of users created",
		}),
		LoginSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_login_successes_total",
			Help: "Total number of successful logins",
		}),
		AuthFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_auth_failures_total",
			Help: "Total number of authentication failures",
		}, []string{"operation"}),
		RateLimitedRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_rate_limited_requests_total",
			Help: "Total number of requests rejected by the abuse limiter",
		}, []string{"operation"}),
		TokensIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_tokens_issued_total",
			Help: "Total number of session tokens issued",
		}),
		LoginDurationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gatekeeper_login_duration_ms",
			Help:    "Duration of login operations in milliseconds",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500},
		}),
		RegisterDurationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gatekeeper_register_duration_ms",
			Help:    "Duration of register operations in milliseconds",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500},
		}),
	}
}
