// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DevicesSynced tracks devices processed by provider sync, by outcome.
	DevicesSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devices_synced_total",
			Help: "Total devices processed by provider sync by outcome (created/updated/failed)",
		},
		[]string{"outcome"},
	)

	// SyncDuration tracks provider sync pass duration.
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "device_sync_duration_seconds",
			Help:    "Provider sync pass duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// DevicesEvaluated tracks compliance evaluations by resulting state.
	DevicesEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devices_evaluated_total",
			Help: "Total device compliance evaluations by resulting state",
		},
		[]string{"state"},
	)

	// EvaluationDuration tracks full-fleet evaluation pass duration.
	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "compliance_evaluation_duration_seconds",
			Help:    "Full-fleet compliance evaluation duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// DevicesByState tracks the current device count by effective state.
	DevicesByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "devices_by_state",
			Help: "Current number of devices by effective compliance state",
		},
		[]string{"state"},
	)

	// AlertsSent tracks alerts sent by type and severity.
	AlertsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_sent_total",
			Help: "Total alerts sent by type and severity",
		},
		[]string{"type", "severity"},
	)

	// AlertsSuppressed tracks alerts suppressed by an active cooldown.
	AlertsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_suppressed_total",
			Help: "Total alerts suppressed by an active cooldown, by type",
		},
		[]string{"type"},
	)

	// AlertsFailed tracks alert sends that failed, by type.
	AlertsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_failed_total",
			Help: "Total alert sends that failed, by type",
		},
		[]string{"type"},
	)

	// EmailSendLatency tracks email delivery latency.
	EmailSendLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "email_send_latency_seconds",
			Help:    "Email delivery latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// HTTPRequestsTotal tracks total HTTP requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request duration.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ProviderRequestsTotal tracks Graph API requests by operation and status.
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Total device provider API requests by operation and status",
		},
		[]string{"operation", "status"},
	)

	// DatabaseQueryDuration tracks database query duration.
	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// JobRuns tracks background job runs by job name and status.
	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_runs_total",
			Help: "Total background job runs by job and status",
		},
		[]string{"job", "status"},
	)
)

// RegisterMetricsEndpoint registers the /metrics endpoint on a Gin router.
func RegisterMetricsEndpoint(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// MetricsHandler returns the Prometheus HTTP handler.
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// RecordDeviceSynced records one device sync outcome.
func RecordDeviceSynced(outcome string) {
	DevicesSynced.WithLabelValues(outcome).Inc()
}

// RecordSyncDuration records a provider sync pass duration.
func RecordSyncDuration(seconds float64) {
	SyncDuration.Observe(seconds)
}

// RecordDeviceEvaluated records one device evaluation by resulting state.
func RecordDeviceEvaluated(state string) {
	DevicesEvaluated.WithLabelValues(state).Inc()
}

// RecordEvaluationDuration records a fleet evaluation pass duration.
func RecordEvaluationDuration(seconds float64) {
	EvaluationDuration.Observe(seconds)
}

// SetDevicesByState sets the device count gauge for one state.
func SetDevicesByState(state string, count float64) {
	DevicesByState.WithLabelValues(state).Set(count)
}

// RecordAlertSent records an alert sent event.
func RecordAlertSent(alertType, severity string) {
	AlertsSent.WithLabelValues(alertType, severity).Inc()
}

// RecordAlertSuppressed records a cooldown suppression.
func RecordAlertSuppressed(alertType string) {
	AlertsSuppressed.WithLabelValues(alertType).Inc()
}

// RecordAlertFailed records a failed alert send.
func RecordAlertFailed(alertType string) {
	AlertsFailed.WithLabelValues(alertType).Inc()
}

// RecordEmailSendLatency records email delivery latency.
func RecordEmailSendLatency(seconds float64) {
	EmailSendLatency.Observe(seconds)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(method, path, status string) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(method, path string, seconds float64) {
	HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

// RecordProviderRequest records a device provider API request.
func RecordProviderRequest(operation, status string) {
	ProviderRequestsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDatabaseQuery records a database query duration.
func RecordDatabaseQuery(operation string, seconds float64) {
	DatabaseQueryDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordJobRun records a background job run.
func RecordJobRun(job, status string) {
	JobRuns.WithLabelValues(job, status).Inc()
}
