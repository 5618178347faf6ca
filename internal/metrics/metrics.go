// Package metrics holds the Prometheus collectors shared across the proxy.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	upstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_upstream_request_duration_seconds",
			Help:    "Duration of requests to upstream commerce APIs",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "method", "status"},
	)

	cartAuthFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_auth_fallback_total",
			Help: "Cart operations retried as guest after the bearer token was rejected or expired",
		},
		[]string{"operation", "reason"},
	)

	operations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_operations_total",
			Help: "Total number of domain operations by outcome",
		},
		[]string{"operation", "status"},
	)
)

// ObserveHTTP records one served request.
func ObserveHTTP(method, path string, status int, d time.Duration) {
	code := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, path, code).Inc()
	httpRequestDuration.WithLabelValues(method, path, code).Observe(d.Seconds())
}

// ObserveUpstream records one upstream round trip. status is 0 for transport failures.
func ObserveUpstream(service, method string, status int, d time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	upstreamDuration.WithLabelValues(service, method, code).Observe(d.Seconds())
}

// RecordCartFallback counts a cart call that fell back to the guest session.
// reason is "expired_token" or "rejected_token".
func RecordCartFallback(operation, reason string) {
	cartAuthFallbacks.WithLabelValues(operation, reason).Inc()
}

// RecordOperation counts a domain operation.
func RecordOperation(operation string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	operations.WithLabelValues(operation, status).Inc()
}
