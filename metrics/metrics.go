// Package metrics provides Prometheus metrics for the portal.
//
// HTTP server metrics:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//
// Portal metrics:
//   - portal_api_requests_total: hospital API calls by endpoint and status
//   - portal_api_request_duration_seconds: hospital API latency by endpoint
//   - portal_logins_total: login attempts by result
//   - portal_active_sessions: sessions currently stored
//   - portal_queue_subscribers: open live queue websockets
//   - rate_limiter_buckets_total: per-IP rate limiter buckets
//
// All metrics are registered with the Prometheus default registry during
// package initialization.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	APIRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_api_requests_total",
			Help: "Hospital API requests by endpoint and response status (0 for network errors)",
		},
		[]string{"endpoint", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_api_request_duration_seconds",
			Help:    "Hospital API request latency",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	LoginTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_logins_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_active_sessions",
			Help: "Sessions currently held by the session store",
		},
	)

	QueueSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_queue_subscribers",
			Help: "Open live queue websocket connections",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
		[]string{"limiter"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(APIRequestTotals)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(LoginTotals)
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(QueueSubscribers)
	prometheus.MustRegister(RateLimiterBucketsTotal)
}

// ObserveAPICall records one hospital API call. status is 0 when no
// response was received.
func ObserveAPICall(endpoint string, status int, elapsed time.Duration) {
	APIRequestTotals.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}
