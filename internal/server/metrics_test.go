package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/telemetry/exporters"

	"github.com/handlescan/handlescan/internal/observability"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// stubMetricsProxy swaps the proxy client for one that returns the canned
// response and restores it when the test ends.
func stubMetricsProxy(t *testing.T, respond func() *http.Response) {
	t.Helper()

	originalClient := metricsProxyClient
	t.Cleanup(func() {
		metricsProxyClient = originalClient
	})

	metricsProxyClient = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return respond(), nil
		}),
	}

	observability.PrometheusExporter = exporters.NewPrometheusExporter("handlescan-test", ":9090")
	t.Cleanup(func() {
		observability.PrometheusExporter = nil
	})
}

func TestMetricsHandlerProxiesExporterOutput(t *testing.T) {
	stubMetricsProxy(t, func() *http.Response {
		body := "# HELP checks_total Completed username checks\nchecks_total{mode=\"server\"} 4\n"
		resp := &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
		}
		resp.Header.Set("Content-Type", "text/plain; version=0.0.4")
		return resp
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	MetricsHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/plain") {
		t.Fatalf("expected text/plain content type, got %s", ct)
	}

	if body := rec.Body.String(); !strings.Contains(body, "checks_total") {
		t.Fatalf("expected Prometheus output to include metric name, got: %s", body)
	}
}

func TestMetricsHandlerDefaultsContentType(t *testing.T) {
	stubMetricsProxy(t, func() *http.Response {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("checks_total 1\n")),
			Header:     make(http.Header),
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	MetricsHandler(rec, req)

	if got := rec.Header().Get("Content-Type"); got != "text/plain; version=0.0.4" {
		t.Fatalf("expected Prometheus exposition content type, got %q", got)
	}
}

func TestMetricsHandlerStripsHopByHopHeaders(t *testing.T) {
	stubMetricsProxy(t, func() *http.Response {
		resp := &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("checks_total 1\n")),
			Header:     make(http.Header),
		}
		resp.Header.Set("Content-Type", "text/plain; version=0.0.4")
		resp.Header.Set("Connection", "keep-alive")
		resp.Header.Set("Transfer-Encoding", "chunked")
		resp.Header.Set("X-Scrape-Source", "exporter")
		return resp
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	MetricsHandler(rec, req)

	if got := rec.Header().Get("Connection"); got != "" {
		t.Fatalf("hop-by-hop Connection header should be dropped, got %q", got)
	}
	if got := rec.Header().Get("Transfer-Encoding"); got != "" {
		t.Fatalf("hop-by-hop Transfer-Encoding header should be dropped, got %q", got)
	}
	if got := rec.Header().Get("X-Scrape-Source"); got != "exporter" {
		t.Fatalf("end-to-end header should be forwarded, got %q", got)
	}
}

func TestMetricsHandlerReturnsServiceUnavailableWithoutExporter(t *testing.T) {
	observability.PrometheusExporter = nil

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	MetricsHandler(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}

	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Error.Code != "SERVICE_UNAVAILABLE" {
		t.Fatalf("expected error code SERVICE_UNAVAILABLE, got %s", resp.Error.Code)
	}
}
