// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	RegisterMetricsEndpoint(router)

	// Test that /metrics endpoint works
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# HELP")
}

func TestMetricsHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := MetricsHandler()

	require.NotNil(t, handler)
}

func TestRecordDeviceSynced(t *testing.T) {
	// This should not panic
	RecordDeviceSynced("created")
	RecordDeviceSynced("updated")
	RecordDeviceSynced("failed")
}

func TestRecordSyncDuration(t *testing.T) {
	// This should not panic
	RecordSyncDuration(0.5)
	RecordSyncDuration(12.3)
}

func TestRecordDeviceEvaluated(t *testing.T) {
	// This should not panic
	RecordDeviceEvaluated("compliant")
	RecordDeviceEvaluated("noncompliant")
	RecordDeviceEvaluated("approaching_end_of_support")
}

func TestRecordEvaluationDuration(t *testing.T) {
	// This should not panic
	RecordEvaluationDuration(0.05)
	RecordEvaluationDuration(1.2)
}

func TestSetDevicesByState(t *testing.T) {
	// This should not panic
	SetDevicesByState("compliant", 120)
	SetDevicesByState("noncompliant", 7)
	SetDevicesByState("unknown", 0)
}

func TestRecordAlertSent(t *testing.T) {
	// This should not panic
	RecordAlertSent("eos-expired", "critical")
	RecordAlertSent("eos-60-days", "warning")
	RecordAlertSent("compliance-critical", "critical")
}

func TestRecordAlertSuppressed(t *testing.T) {
	// This should not panic
	RecordAlertSuppressed("eos-30-days")
	RecordAlertSuppressed("compliance-critical")
}

func TestRecordAlertFailed(t *testing.T) {
	// This should not panic
	RecordAlertFailed("eos-expired")
}

func TestRecordEmailSendLatency(t *testing.T) {
	// This should not panic
	RecordEmailSendLatency(0.4)
	RecordEmailSendLatency(2.1)
}

func TestRecordHTTPRequest(t *testing.T) {
	// This should not panic
	RecordHTTPRequest("GET", "/api/v1/devices", "200")
	RecordHTTPRequest("POST", "/api/v1/rules", "201")
	RecordHTTPRequest("GET", "/api/v1/devices/123", "404")
}

func TestRecordHTTPRequestDuration(t *testing.T) {
	// This should not panic
	RecordHTTPRequestDuration("GET", "/api/v1/devices", 0.05)
	RecordHTTPRequestDuration("POST", "/api/v1/rules", 0.2)
}

func TestRecordProviderRequest(t *testing.T) {
	// This should not panic
	RecordProviderRequest("listManagedDevices", "success")
	RecordProviderRequest("sendMail", "failed")
}

func TestRecordDatabaseQuery(t *testing.T) {
	// This should not panic
	RecordDatabaseQuery("select", 0.005)
	RecordDatabaseQuery("upsert", 0.01)
}

func TestRecordJobRun(t *testing.T) {
	// This should not panic
	RecordJobRun("device_sync", "ok")
	RecordJobRun("compliance_evaluation", "failed")
	RecordJobRun("alert_processing", "skipped")
}

func TestMetricsAreRegistered(t *testing.T) {
	// Verify all metrics are registered with Prometheus
	metrics := []prometheus.Collector{
		DevicesSynced,
		SyncDuration,
		DevicesEvaluated,
		EvaluationDuration,
		DevicesByState,
		AlertsSent,
		AlertsSuppressed,
		AlertsFailed,
		EmailSendLatency,
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ProviderRequestsTotal,
		DatabaseQueryDuration,
		JobRuns,
	}

	for _, metric := range metrics {
		assert.NotNil(t, metric)
	}
}
