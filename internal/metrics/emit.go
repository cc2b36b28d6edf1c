// Package metrics names every series the application emits and provides
// recorders for them. All recorders tolerate an uninitialized telemetry
// system, so CLI commands can share code paths with the server.
package metrics

import (
	"time"

	"github.com/handlescan/handlescan/internal/observability"
)

func count(name string, labels map[string]string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(name, 1, labels)
}

func gauge(name string, value float64, labels map[string]string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(name, value, labels)
}

func histogram(name string, value time.Duration, labels map[string]string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Histogram(name, value, labels)
}
