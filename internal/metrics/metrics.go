// Package metrics provides Prometheus metrics for the explorer server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "explorer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Auth metrics
	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_auth_attempts_total",
			Help: "Total OAuth callback attempts",
		},
		[]string{"result"},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "explorer_active_sessions",
			Help: "Number of sessions held in the credential store",
		},
	)

	// Graph metrics
	graphOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "explorer_graph_operation_duration_seconds",
			Help:    "Microsoft Graph call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	graphOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_graph_operations_total",
			Help: "Total Microsoft Graph calls",
		},
		[]string{"operation", "status"},
	)

	contentBytesDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "explorer_content_bytes_downloaded_total",
			Help: "Total bytes downloaded from drives",
		},
	)

	// Summarization metrics
	summariesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_summaries_total",
			Help: "Summarization attempts by outcome",
		},
		[]string{"result"},
	)

	modelRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "explorer_model_request_duration_seconds",
			Help:    "Chat completion latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAuthAttempt records an authentication attempt.
func RecordAuthAttempt(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	authAttemptsTotal.WithLabelValues(result).Inc()
}

// SetActiveSessions sets the number of stored sessions.
func SetActiveSessions(count int) {
	activeSessions.Set(float64(count))
}

// RecordGraphOperation records a Microsoft Graph call.
func RecordGraphOperation(operation string, duration time.Duration, success bool) {
	graphOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	status := "success"
	if !success {
		status = "error"
	}
	graphOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordContentDownload records downloaded drive content.
func RecordContentDownload(bytes int64) {
	contentBytesDownloaded.Add(float64(bytes))
}

// RecordSummary records a summarization outcome
// ("success", "unsupported_format", "model_unavailable").
func RecordSummary(result string) {
	summariesTotal.WithLabelValues(result).Inc()
}

// RecordModelRequest records chat completion latency.
func RecordModelRequest(duration time.Duration) {
	modelRequestDuration.Observe(duration.Seconds())
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns HTTP middleware that records request metrics.
// The route pattern is used as the path label to keep cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		RecordHTTPRequest(r.Method, path, rw.statusCode, time.Since(start))
	})
}
