package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricHTTPRequestDuration = "http_request_duration_seconds"
	MetricHTTPRequestsTotal   = "http_requests_total"
	MetricHTTPResponseSize    = "http_response_size_bytes"
)

// HTTPMetrics contains Prometheus metrics for HTTP request handling.
// All operations are thread-safe.
type HTTPMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	responseSize    *prometheus.HistogramVec
}

// NewHTTPMetrics creates and returns a new HTTPMetrics instance with all
// collectors initialized. The metrics are not registered; call Register to
// register them with a registry.
func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPRequestDuration,
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
			},
			[]string{"method", "path", "status"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricHTTPRequestsTotal,
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		responseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPResponseSize,
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(256, 4, 6),
			},
			[]string{"method", "path"},
		),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *HTTPMetrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.requestDuration,
		m.requestsTotal,
		m.responseSize,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Middleware instruments request handling. The path label uses the route
// pattern group supplied by the caller, not the raw URL, to keep metric
// cardinality bounded.
func (m *HTTPMetrics) Middleware(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w, r.Context())

		next.ServeHTTP(rw, r)

		status := strconv.Itoa(rw.statusCode)
		m.requestDuration.WithLabelValues(r.Method, pattern, status).Observe(time.Since(start).Seconds())
		m.requestsTotal.WithLabelValues(r.Method, pattern, status).Inc()
		m.responseSize.WithLabelValues(r.Method, pattern).Observe(float64(rw.size))
	})
}
