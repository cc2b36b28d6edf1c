package server

import (
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/handlescan/handlescan/internal/observability"
)

var metricsProxyClient = &http.Client{
	Timeout: 5 * time.Second,
}

// hopByHopHeaders must not be forwarded by proxies; net/http manages them.
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

func isHopByHop(key string) bool {
	_, ok := hopByHopHeaders[textproto.CanonicalMIMEHeaderKey(key)]
	return ok
}

// exporterMetricsURL points at the internal Prometheus exporter, preferring
// the port it actually bound to over the configured one.
func exporterMetricsURL() string {
	port := observability.GetMetricsPort()
	if port == 0 {
		port = viper.GetInt("metrics.port")
		if port == 0 {
			port = 9090
		}
	}
	return fmt.Sprintf("http://127.0.0.1:%d/metrics", port)
}

// metricsProxyError wraps a proxy failure with the exporter URL so operators
// can tell which hop broke.
func metricsProxyError(code, msg, metricsURL string, err error) error {
	envelope, _ := errors.NewErrorEnvelope(code, msg).
		WithContext(map[string]interface{}{
			"metrics_url":    metricsURL,
			"original_error": err.Error(),
		})
	return envelope
}

// MetricsHandler proxies Prometheus metrics from the internal exporter so
// callers can scrape /metrics on the main HTTP server.
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	if observability.PrometheusExporter == nil {
		HandleError(w, r, errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "Metrics exporter not initialized"))
		return
	}

	metricsURL := exporterMetricsURL()
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, metricsURL, nil)
	if err != nil {
		HandleError(w, r, metricsProxyError("INTERNAL_ERROR", "Unable to construct metrics request", metricsURL, err))
		return
	}

	// Preserve caller hint for content negotiation
	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := metricsProxyClient.Do(req)
	if err != nil {
		HandleError(w, r, metricsProxyError("EXTERNAL_SERVICE_ERROR", "Prometheus exporter unavailable", metricsURL, err))
		return
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			observability.ServerLogger.Warn("Failed to close metrics response body",
				zap.Error(cerr))
		}
	}()

	relayExporterResponse(w, resp)
}

// relayExporterResponse copies the exporter's reply through to the caller,
// stripping hop-by-hop headers and defaulting the Prometheus exposition
// content type when the exporter omitted one.
func relayExporterResponse(w http.ResponseWriter, resp *http.Response) {
	for key, values := range resp.Header {
		if isHopByHop(key) {
			continue
		}
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}

	if resp.Header.Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Failed to write metrics response",
			zap.Error(err))
	}
}
