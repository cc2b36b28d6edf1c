package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/handlescan/handlescan/internal/metrics"
	"github.com/handlescan/handlescan/internal/observability"
)

const (
	requestsTotalName   = "http_requests_total"
	requestDurationName = "http_request_duration_ms"
	requestSizeName     = "http_request_size_bytes"
	responseSizeName    = "http_response_size_bytes"
	errorsTotalName     = "http_errors_total"
)

// inFlight counts requests currently inside the handler chain.
var inFlight atomic.Int64

// responseWriter captures the status code and body size on the way out.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// staticPatterns pins the non-chi mounts to stable label values. Check paths
// carry usernames, so anything under /api/ collapses to a single pattern.
var staticPatterns = map[string]string{
	"/health":         "/health/*",
	"/health/live":    "/health/*",
	"/health/ready":   "/health/*",
	"/health/startup": "/health/*",
	"/version":        "/version",
	"/metrics":        "/metrics",
	"/":               "/",
}

// getEndpointPattern returns a bounded-cardinality endpoint label for r.
func getEndpointPattern(r *http.Request) string {
	if pattern := chi.RouteContext(r.Context()).RoutePattern(); pattern != "" {
		return pattern
	}
	if pattern, ok := staticPatterns[r.URL.Path]; ok {
		return pattern
	}
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return "/api/*"
	}
	return "/unknown"
}

// RequestMetrics instruments every request with count, duration, size, and
// error series, plus a completion log line carrying the correlation id.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if observability.TelemetrySystem == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		requestSize := r.ContentLength
		if requestSize < 0 {
			requestSize = 0
		}

		metrics.SetRequestsInFlight(inFlight.Add(1))
		next.ServeHTTP(wrapped, r)
		metrics.SetRequestsInFlight(inFlight.Add(-1))

		duration := time.Since(start)
		endpoint := getEndpointPattern(r)
		emitRequestSeries(r.Method, endpoint, wrapped, requestSize, duration)

		if observability.ServerLogger != nil {
			observability.ServerLogger.Info("HTTP request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("endpoint", endpoint),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", duration),
				zap.Int64("request_size", requestSize),
				zap.Int64("response_size", wrapped.bytesWritten),
				zap.String("requestID", GetRequestID(r.Context())),
			)
		}
	})
}

// emitRequestSeries publishes the per-request series. Only method, endpoint,
// and status may label them, anything finer-grained belongs in the log line.
func emitRequestSeries(method, endpoint string, wrapped *responseWriter, requestSize int64, duration time.Duration) {
	status := strconv.Itoa(wrapped.statusCode)
	requestLabels := map[string]string{
		"method":   method,
		"endpoint": endpoint,
		"status":   status,
	}
	_ = observability.TelemetrySystem.Counter(requestsTotalName, 1, requestLabels)
	_ = observability.TelemetrySystem.Histogram(requestDurationName, duration, requestLabels)

	sizeLabels := map[string]string{
		"method":   method,
		"endpoint": endpoint,
	}
	_ = observability.TelemetrySystem.Gauge(requestSizeName, float64(requestSize), sizeLabels)
	_ = observability.TelemetrySystem.Gauge(responseSizeName, float64(wrapped.bytesWritten), sizeLabels)

	if wrapped.statusCode >= 400 {
		errorType := "client_error"
		if wrapped.statusCode >= 500 {
			errorType = "server_error"
		}
		_ = observability.TelemetrySystem.Counter(errorsTotalName, 1, map[string]string{
			"method":     method,
			"endpoint":   endpoint,
			"status":     status,
			"error_type": errorType,
		})
	}
}
