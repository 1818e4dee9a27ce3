package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"

	// Data freshness
	MetricTelemetryAge    = "bracelet.frame_age_seconds"
	MetricDistanceLatency = "tracking.distance_latency"

	// Availability
	MetricUptime = "service.uptime_percentage"

	// Business
	MetricProximityAlerts = "business.proximity_alerts"
	MetricEscalations     = "business.escalations_sent"
)
