package observability

import (
	"fmt"
	"net"
	"strconv"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

// Process-wide telemetry handles. Both stay nil until InitMetrics succeeds;
// the recorders in internal/metrics treat nil as telemetry disabled.
var (
	TelemetrySystem    *telemetry.System
	PrometheusExporter *exporters.PrometheusExporter

	// metricsPort is the port the Prometheus exporter actually bound to
	metricsPort int
)

// InitMetrics starts the Prometheus exporter on the given port (0 picks a
// free one) and wires it into a new telemetry system. The optional namespace
// prefixes every metric; it defaults to the service name.
func InitMetrics(serviceName string, port int, namespace ...string) error {
	requested := port
	if requested < 0 {
		requested = 0
	}

	metricNamespace := serviceName
	if len(namespace) > 0 && namespace[0] != "" {
		metricNamespace = namespace[0]
	}

	exporter := exporters.NewPrometheusExporter(metricNamespace, fmt.Sprintf(":%d", requested))
	if err := exporter.Start(); err != nil {
		return err
	}
	PrometheusExporter = exporter
	metricsPort = boundPort(exporter, requested)

	sys, err := telemetry.NewSystem(&telemetry.Config{
		Enabled: true,
		Emitter: exporter,
	})
	if err != nil {
		return err
	}

	TelemetrySystem = sys
	return nil
}

// GetMetricsPort returns the port the Prometheus exporter is listening on.
// It returns 0 when the exporter never started.
func GetMetricsPort() int {
	return metricsPort
}

// boundPort asks the exporter which port it bound. When that cannot be
// determined, a random-port request falls back to the conventional
// Prometheus port and a fixed request is assumed to have been honored.
func boundPort(exporter *exporters.PrometheusExporter, requested int) int {
	_, portStr, err := net.SplitHostPort(exporter.GetAddr())
	if err == nil {
		if actual, convErr := strconv.Atoi(portStr); convErr == nil {
			return actual
		}
	}
	if requested == 0 {
		return 9090
	}
	return requested
}
