// Package observability holds the Prometheus metrics exported by projectkit.
package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// KeySetFetchesTotal counts key set fetch attempts by result (ok, error, stale).
	KeySetFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "projectkit_keyset_fetches_total",
			Help: "Key set fetch attempts",
		},
		[]string{"result"},
	)

	// AuthFailuresTotal counts rejected requests by failure kind.
	AuthFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "projectkit_auth_failures_total",
			Help: "Authentication failures",
		},
		[]string{"kind"},
	)

	// RequestsTotal counts HTTP requests by method, route and status code.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "projectkit_http_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "projectkit_http_request_duration_seconds",
			Help:    "Request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "projectkit_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"bucket"},
	)
)

func init() {
	prometheus.MustRegister(
		KeySetFetchesTotal,
		AuthFailuresTotal,
		RequestsTotal,
		RequestDuration,
		RateLimitRejectedTotal,
	)
}
