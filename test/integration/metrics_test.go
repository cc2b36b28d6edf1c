package integration

import (
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handlescan/handlescan/internal/core/engine"
	"github.com/handlescan/handlescan/internal/core/registry"
	"github.com/handlescan/handlescan/internal/observability"
	"github.com/handlescan/handlescan/internal/server"
	"github.com/handlescan/handlescan/internal/server/handlers"
)

// isPermissionError matches the assorted shapes a sandboxed kernel gives a
// blocked socket bind across platforms.
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission denied") || strings.Contains(msg, "not permitted")
}

// initMetricsOrSkip starts the exporter on an ephemeral port, skipping when
// the environment refuses socket binds. Cleanup tears down the telemetry
// globals so later tests can bind again.
func initMetricsOrSkip(t *testing.T) {
	t.Helper()

	err := observability.InitMetrics("handlescan", 0, "handlescan")
	if isPermissionError(err) {
		t.Skipf("skipping metrics tests due to sandbox permissions: %v", err)
	}
	require.NoError(t, err)

	t.Cleanup(func() {
		if observability.PrometheusExporter != nil {
			_ = observability.PrometheusExporter.Stop()
			observability.PrometheusExporter = nil
		}
		observability.TelemetrySystem = nil
	})
}

// startCheckServer brings up the real route surface with the built-in
// registry wired into the check handlers. Probes never run because no test
// hits the check endpoint.
func startCheckServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()

	handlers.SetCheckDeps(&engine.Prober{}, registry.BuiltIn())
	handlers.InitHealthManager("integration-test")

	// Bind IPv4 loopback explicitly. IPv6-only or socketless sandboxes
	// show up here as permission errors.
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if isPermissionError(err) {
		t.Skipf("skipping metrics server setup: %v", err)
	}
	require.NoError(t, err)

	srv := server.New("127.0.0.1", 0)
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: srv.Handler()},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts, ts.Client()
}

func TestMetricsEndpoint_Integration(t *testing.T) {
	observability.InitCLILogger("handlescan", false)
	observability.InitServerLogger("handlescan", "info")

	initMetricsOrSkip(t)

	ts, client := startCheckServer(t)
	serverURL := ts.URL

	// Mixed traffic: two API routes, an unrouted path for the error
	// counter, and the health probe.
	paths := []string{"/api/v1/platforms", "/api/v1/platforms/sets", "/no/such/route", "/health"}

	const numRequests = 50
	const numWorkers = 10

	start := time.Now()

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := worker; i < numRequests; i += numWorkers {
				resp, err := client.Get(serverURL + paths[i%len(paths)])
				if err == nil {
					require.NoError(t, resp.Body.Close())
				}
			}
		}(w)
	}
	wg.Wait()

	elapsed := time.Since(start)

	resp, err := client.Get(serverURL + "/metrics")
	require.NoError(t, err)
	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	scrape := string(body)
	assert.Contains(t, scrape, "handlescan_http_requests_total", "request counter missing from scrape")
	assert.Contains(t, scrape, "handlescan_http_request_duration_ms", "duration histogram missing from scrape")
	assert.Contains(t, scrape, "handlescan_http_errors_total", "unrouted paths should feed the error counter")
	assert.Less(t, elapsed, 5*time.Second, "load generation took too long")
	t.Logf("%d requests in %v (%.2f req/s)", numRequests, elapsed, float64(numRequests)/elapsed.Seconds())
}

func TestMetricsEndpoint_PrometheusFormat(t *testing.T) {
	observability.InitCLILogger("handlescan", false)
	observability.InitServerLogger("handlescan", "info")

	initMetricsOrSkip(t)

	ts, client := startCheckServer(t)
	serverURL := ts.URL

	// One request so at least the HTTP family has samples.
	resp, err := client.Get(serverURL + "/version")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(serverURL + "/metrics")
	require.NoError(t, err)
	contentType := resp.Header.Get("Content-Type")
	assert.True(t,
		contentType == "text/plain; version=0.0.4" ||
			contentType == "text/plain; version=0.0.4; charset=utf-8",
		"expected Prometheus content type, got: %s", contentType)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)

	var samples, labeledSamples int
	for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		samples++
		if strings.Contains(line, "{") && len(strings.Fields(line)) >= 2 {
			labeledSamples++
		}
	}

	assert.Greater(t, samples, 0, "expected metric sample lines")
	assert.Greater(t, labeledSamples, 0, "expected labeled samples")
}

func TestMetricsEndpoint_WithTelemetryDisabled(t *testing.T) {
	observability.InitCLILogger("handlescan", false)
	observability.InitServerLogger("handlescan", "info")

	originalExporter := observability.PrometheusExporter
	originalTelemetry := observability.TelemetrySystem
	observability.PrometheusExporter = nil
	observability.TelemetrySystem = nil
	t.Cleanup(func() {
		observability.PrometheusExporter = originalExporter
		observability.TelemetrySystem = originalTelemetry
	})

	t.Setenv("HANDLESCAN_METRICS_ENABLED", "false")

	ts, client := startCheckServer(t)
	serverURL := ts.URL

	resp, err := client.Get(serverURL + "/api/v1/platforms")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Without an exporter the scrape proxy reports unavailable instead of
	// serving stale metrics.
	resp, err = client.Get(serverURL + "/metrics")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
