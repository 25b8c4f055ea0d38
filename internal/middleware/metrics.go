// Package middleware provides metrics for HTTP middleware components.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricHTTPRequestDuration   = "http_request_duration_seconds"
	MetricHTTPRequestsTotal     = "http_requests_total"
	MetricHTTPResponseSizeBytes = "http_response_size_bytes"
)

// Metrics contains Prometheus metrics for HTTP traffic.
// All operations are thread-safe.
type Metrics struct {
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
	httpResponseSize    *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPRequestDuration,
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1.0, 2.0},
			},
			[]string{"method", "path", "status"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricHTTPRequestsTotal,
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPResponseSizeBytes,
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path", "status"},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.httpRequestDuration,
		m.httpRequestsTotal,
		m.httpResponseSize,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// staticRoutes are paths recorded as-is in metric labels.
var staticRoutes = map[string]bool{
	"/v1/matches/candidates": true,
	"/health":                true,
	"/health/ready":          true,
	"/metrics":               true,
}

// normalizePath collapses unknown paths to a single label to prevent
// cardinality explosion in metrics.
func normalizePath(path string) string {
	if staticRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/v1/") {
		return "/v1/{other}"
	}
	return "/{other}"
}

// HTTPMetrics is a middleware that records request count, duration, and
// response size per method, normalized path, and status.
func HTTPMetrics(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			labels := prometheus.Labels{
				"method": r.Method,
				"path":   normalizePath(r.URL.Path),
				"status": strconv.Itoa(rw.statusCode),
			}
			m.httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
			m.httpRequestsTotal.With(labels).Inc()
			m.httpResponseSize.With(labels).Observe(float64(rw.size))
		})
	}
}
