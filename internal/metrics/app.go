package metrics

import "time"

// Server and storage series.
const (
	StoreOperationsName     = "store_operations_total"
	RequestsInFlightName    = "http_requests_in_flight"
	HealthChecksTotalName   = "health_checks_total"
	HealthCheckDurationName = "health_check_duration_ms"
	ServerStartTimeName     = "server_start_time_seconds"
	ServerUptimeName        = "server_uptime_seconds"
)

// RecordStoreOperation counts one storage operation by outcome. A nil error
// counts as success.
func RecordStoreOperation(operation string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	count(StoreOperationsName, map[string]string{
		"operation": operation,
		"status":    status,
	})
}

// SetRequestsInFlight tracks how many HTTP requests are currently in the
// handler chain.
func SetRequestsInFlight(n int64) {
	gauge(RequestsInFlightName, float64(n), nil)
}

// RecordHealthCheck records one health checker run.
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	count(HealthChecksTotalName, map[string]string{
		"check":  checkName,
		"status": status,
	})
	histogram(HealthCheckDurationName, duration, map[string]string{
		"check": checkName,
	})
}

// SetServerStartTime records when the server came up as a Unix timestamp.
func SetServerStartTime(start time.Time) {
	gauge(ServerStartTimeName, float64(start.Unix()), nil)
}

// SetServerUptime refreshes the uptime gauge.
func SetServerUptime(uptime time.Duration) {
	gauge(ServerUptimeName, uptime.Seconds(), nil)
}
