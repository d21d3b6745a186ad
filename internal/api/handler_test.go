package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kneutral-org/compliance-alerting/internal/alerting"
	"github.com/kneutral-org/compliance-alerting/internal/compliance"
	"github.com/kneutral-org/compliance-alerting/internal/device"
	"github.com/kneutral-org/compliance-alerting/internal/platform"
	"github.com/kneutral-org/compliance-alerting/internal/rules"
	"github.com/kneutral-org/compliance-alerting/internal/support"
	"github.com/kneutral-org/compliance-alerting/internal/version"
)

type stubSender struct {
	mu    sync.Mutex
	sends int
}

func (s *stubSender) Send(ctx context.Context, to []string, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends++
	return nil
}

type apiFixture struct {
	devices    *device.InMemoryStore
	rules      *rules.InMemoryStore
	recipients *alerting.InMemoryRecipientStore
	alerts     *alerting.InMemoryAlertStore
	support    *support.InMemoryStore
	router     *gin.Engine
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &apiFixture{
		devices:    device.NewInMemoryStore(),
		rules:      rules.NewInMemoryStore(),
		recipients: alerting.NewInMemoryRecipientStore(),
		alerts:     alerting.NewInMemoryAlertStore(),
		support:    support.NewInMemoryStore(),
	}

	logger := zerolog.Nop()
	evaluator := compliance.NewEvaluator(f.devices, f.rules, f.support, logger)
	dispatcher := alerting.NewDispatcher(f.alerts, f.recipients, alerting.NewInMemoryCooldownStore(), &stubSender{}, logger)
	processor := alerting.NewProcessor(f.devices, dispatcher, logger)

	handler := NewHandler(f.devices, f.rules, f.recipients, f.alerts, evaluator, nil, processor, logger)

	f.router = gin.New()
	handler.RegisterRoutes(f.router.Group("/api/v1"))
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) addDevice(t *testing.T, name string) *device.Device {
	t.Helper()

	d, err := device.New("ext-"+name, name, platform.OSInfo{
		Family:  platform.OSWindows,
		Name:    "Windows 11",
		Version: mustVersion(t, "10.0.22631"),
	}, device.TypeLaptop)
	require.NoError(t, err)
	d.Encrypted = true

	created, err := f.devices.Create(context.Background(), d)
	require.NoError(t, err)
	return created
}

func mustVersion(t *testing.T, s string) version.Version {
	t.Helper()
	v, ok := version.Parse(s)
	require.True(t, ok)
	return v
}

func TestListDevices(t *testing.T) {
	f := newAPIFixture(t)
	f.addDevice(t, "LAPTOP-001")
	f.addDevice(t, "LAPTOP-002")

	rec := f.do(t, http.MethodGet, "/api/v1/devices", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Devices []*device.Device `json:"devices"`
		Count   int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "LAPTOP-001", resp.Devices[0].Name)
}

func TestGetDevice_NotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/devices/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "device not found")
}

func TestGetDevice_InvalidID(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/devices/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluateDevice(t *testing.T) {
	f := newAPIFixture(t)
	d := f.addDevice(t, "LAPTOP-001")

	rule, err := rules.New("Minimum Windows version", "", rules.KindOSVersion,
		rules.SeverityCritical, rules.Config{"minimumVersion": "10.0.26100"}, platform.OSWindows)
	require.NoError(t, err)
	_, err = f.rules.Create(context.Background(), rule)
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/devices/%s/evaluate", d.ID), nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var evaluated device.Device
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &evaluated))
	assert.Equal(t, device.StateNonCompliant, evaluated.State)
	require.Len(t, evaluated.Issues, 1)
	assert.Equal(t, "Minimum Windows version", evaluated.Issues[0].RuleName)
}

func TestCreateRule(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/rules", gin.H{
		"name":               "Encryption required",
		"kind":               "encryption_enabled",
		"severity":           "critical",
		"applicablePlatform": "windows",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var created rules.Rule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, rules.KindEncryptionEnabled, created.Kind)
	assert.Equal(t, rules.SeverityCritical, created.Severity)
	assert.True(t, created.Enabled)
}

func TestCreateRule_Validation(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name string
		body gin.H
		want string
	}{
		{
			name: "missing name",
			body: gin.H{"kind": "os_version", "severity": "warning"},
			want: "Name",
		},
		{
			name: "unknown kind",
			body: gin.H{"name": "x", "kind": "antivirus_age", "severity": "warning"},
			want: "unknown rule kind",
		},
		{
			name: "unknown severity",
			body: gin.H{"name": "x", "kind": "os_version", "severity": "fatal"},
			want: "unknown severity",
		},
		{
			name: "unknown platform",
			body: gin.H{"name": "x", "kind": "os_version", "severity": "warning", "applicablePlatform": "beos"},
			want: "unknown platform",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/v1/rules", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestRuleEnableDisable(t *testing.T) {
	f := newAPIFixture(t)

	rule, err := rules.New("Encryption required", "", rules.KindEncryptionEnabled,
		rules.SeverityCritical, nil, "")
	require.NoError(t, err)
	created, err := f.rules.Create(context.Background(), rule)
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/rules/%s/disable", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := f.rules.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, stored.Enabled)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/rules/%s/enable", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err = f.rules.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, stored.Enabled)
}

func TestUpdateRule_PartialUpdate(t *testing.T) {
	f := newAPIFixture(t)

	rule, err := rules.New("Minimum Windows version", "original", rules.KindOSVersion,
		rules.SeverityWarning, rules.Config{"minimumVersion": "10.0.22621"}, platform.OSWindows)
	require.NoError(t, err)
	created, err := f.rules.Create(context.Background(), rule)
	require.NoError(t, err)

	rec := f.do(t, http.MethodPut, "/api/v1/rules/"+created.ID.String(), gin.H{
		"severity": "critical",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var updated rules.Rule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, rules.SeverityCritical, updated.Severity)
	assert.Equal(t, "Minimum Windows version", updated.Name)
	assert.Equal(t, "original", updated.Description)
}

func TestDeleteRule(t *testing.T) {
	f := newAPIFixture(t)

	rule, err := rules.New("Encryption required", "", rules.KindEncryptionEnabled,
		rules.SeverityCritical, nil, "")
	require.NoError(t, err)
	created, err := f.rules.Create(context.Background(), rule)
	require.NoError(t, err)

	rec := f.do(t, http.MethodDelete, "/api/v1/rules/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/rules/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRecipient(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/recipients", gin.H{
		"email":           "Admin@Example.com",
		"displayName":     "IT Admin",
		"minimumSeverity": "warning",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var created alerting.Recipient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "admin@example.com", created.Email)
	assert.Equal(t, rules.SeverityWarning, created.MinimumSeverity)
	assert.True(t, created.Enabled)
}

func TestCreateRecipient_InvalidEmail(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/recipients", gin.H{
		"email": "not-an-email",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateRecipient(t *testing.T) {
	f := newAPIFixture(t)

	recipient, err := alerting.NewRecipient("admin@example.com", "IT Admin", rules.SeverityInformation)
	require.NoError(t, err)
	created, err := f.recipients.Create(context.Background(), recipient)
	require.NoError(t, err)

	rec := f.do(t, http.MethodPut, "/api/v1/recipients/"+created.ID.String(), gin.H{
		"minimumSeverity": "critical",
		"enabled":         false,
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var updated alerting.Recipient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, rules.SeverityCritical, updated.MinimumSeverity)
	assert.False(t, updated.Enabled)
}

func TestDeleteRecipient_NotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodDelete, "/api/v1/recipients/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListDeviceAlerts(t *testing.T) {
	f := newAPIFixture(t)
	d := f.addDevice(t, "LAPTOP-001")

	alert, err := alerting.NewAlert("CRITICAL: LAPTOP-001 has reached end of support", "<html></html>",
		rules.SeverityCritical, alerting.AlertTypeEOSExpired, &d.ID)
	require.NoError(t, err)
	_, err = f.alerts.Create(context.Background(), alert)
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/devices/%s/alerts", d.ID), nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Alerts []*alerting.Alert `json:"alerts"`
		Count  int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, alerting.AlertTypeEOSExpired, resp.Alerts[0].AlertType)
}

func TestTriggerSync_Unconfigured(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/jobs/sync", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTriggerEvaluation(t *testing.T) {
	f := newAPIFixture(t)
	f.addDevice(t, "LAPTOP-001")

	rec := f.do(t, http.MethodPost, "/api/v1/jobs/evaluate", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var result compliance.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Evaluated)
	assert.Equal(t, 1, result.Compliant)
}

func TestTriggerAlertProcessing(t *testing.T) {
	f := newAPIFixture(t)
	d := f.addDevice(t, "LAPTOP-001")

	recipient, err := alerting.NewRecipient("admin@example.com", "IT Admin", rules.SeverityInformation)
	require.NoError(t, err)
	_, err = f.recipients.Create(context.Background(), recipient)
	require.NoError(t, err)

	now := time.Now().UTC()
	eos := now.AddDate(0, 0, -5)
	d.SetComplianceState(device.StateNonCompliant, &eos, now)
	d.AddIssue("os-eos", "Operating System End of Support",
		"Windows 11 10.0.22631 has reached end of support", rules.SeverityCritical, now)
	_, err = f.devices.Update(context.Background(), d)
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/api/v1/jobs/alerts", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var result alerting.ProcessResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 0, result.Failed)
}

func TestDashboard(t *testing.T) {
	f := newAPIFixture(t)
	d1 := f.addDevice(t, "LAPTOP-001")
	f.addDevice(t, "LAPTOP-002")

	now := time.Now().UTC()
	d1.SetComplianceState(device.StateNonCompliant, nil, now)
	_, err := f.devices.Update(context.Background(), d1)
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/api/v1/dashboard", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp DashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.Devices[device.StateNonCompliant])
	assert.Equal(t, 1, resp.Devices[device.StateUnknown])
}
