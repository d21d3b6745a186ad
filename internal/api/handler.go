// Package api provides the HTTP API for devices, rules, recipients and
// alerts.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kneutral-org/compliance-alerting/internal/alerting"
	"github.com/kneutral-org/compliance-alerting/internal/compliance"
	"github.com/kneutral-org/compliance-alerting/internal/device"
	"github.com/kneutral-org/compliance-alerting/internal/inventory"
	"github.com/kneutral-org/compliance-alerting/internal/platform"
	"github.com/kneutral-org/compliance-alerting/internal/rules"
)

// Handler serves the REST API.
type Handler struct {
	devices    device.Store
	rules      rules.Store
	recipients alerting.RecipientStore
	alerts     alerting.AlertStore
	evaluator  *compliance.Evaluator
	syncer     *inventory.Syncer
	processor  *alerting.Processor
	logger     zerolog.Logger
}

// NewHandler creates an API handler with the provided dependencies.
func NewHandler(
	devices device.Store,
	ruleStore rules.Store,
	recipients alerting.RecipientStore,
	alerts alerting.AlertStore,
	evaluator *compliance.Evaluator,
	syncer *inventory.Syncer,
	processor *alerting.Processor,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		devices:    devices,
		rules:      ruleStore,
		recipients: recipients,
		alerts:     alerts,
		evaluator:  evaluator,
		syncer:     syncer,
		processor:  processor,
		logger:     logger.With().Str("component", "api").Logger(),
	}
}

// RegisterRoutes registers all API routes on the provided router group.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	devices := router.Group("/devices")
	devices.GET("", h.ListDevices)
	devices.GET("/:id", h.GetDevice)
	devices.GET("/:id/alerts", h.ListDeviceAlerts)
	devices.POST("/:id/evaluate", h.EvaluateDevice)

	ruleGroup := router.Group("/rules")
	ruleGroup.GET("", h.ListRules)
	ruleGroup.POST("", h.CreateRule)
	ruleGroup.GET("/:id", h.GetRule)
	ruleGroup.PUT("/:id", h.UpdateRule)
	ruleGroup.DELETE("/:id", h.DeleteRule)
	ruleGroup.POST("/:id/enable", h.EnableRule)
	ruleGroup.POST("/:id/disable", h.DisableRule)

	recipients := router.Group("/recipients")
	recipients.GET("", h.ListRecipients)
	recipients.POST("", h.CreateRecipient)
	recipients.GET("/:id", h.GetRecipient)
	recipients.PUT("/:id", h.UpdateRecipient)
	recipients.DELETE("/:id", h.DeleteRecipient)

	alerts := router.Group("/alerts")
	alerts.GET("", h.ListAlerts)
	alerts.GET("/:id", h.GetAlert)

	jobs := router.Group("/jobs")
	jobs.POST("/sync", h.TriggerSync)
	jobs.POST("/evaluate", h.TriggerEvaluation)
	jobs.POST("/alerts", h.TriggerAlertProcessing)

	router.GET("/dashboard", h.Dashboard)
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: code, Message: message})
}

func respondNotFound(c *gin.Context, message string) {
	respondError(c, http.StatusNotFound, "not_found", message)
}

func respondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, "bad_request", message)
}

func (h *Handler) respondInternal(c *gin.Context, err error, msg string) {
	h.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg(msg)
	respondError(c, http.StatusInternalServerError, "internal_error", msg)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// ListDevices returns all managed devices.
func (h *Handler) ListDevices(c *gin.Context) {
	devices, err := h.devices.List(c.Request.Context())
	if err != nil {
		h.respondInternal(c, err, "failed to list devices")
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices, "count": len(devices)})
}

// GetDevice returns a single device by ID.
func (h *Handler) GetDevice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	d, err := h.devices.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			respondNotFound(c, "device not found")
			return
		}
		h.respondInternal(c, err, "failed to get device")
		return
	}
	c.JSON(http.StatusOK, d)
}

// EvaluateDevice runs a compliance evaluation for a single device and
// returns the updated device.
func (h *Handler) EvaluateDevice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	d, err := h.devices.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			respondNotFound(c, "device not found")
			return
		}
		h.respondInternal(c, err, "failed to get device")
		return
	}

	evaluated, err := h.evaluator.EvaluateOne(c.Request.Context(), d)
	if err != nil {
		h.respondInternal(c, err, "failed to evaluate device")
		return
	}
	c.JSON(http.StatusOK, evaluated)
}

// ListDeviceAlerts returns the alert history for a device.
func (h *Handler) ListDeviceAlerts(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if _, err := h.devices.GetByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			respondNotFound(c, "device not found")
			return
		}
		h.respondInternal(c, err, "failed to get device")
		return
	}

	alerts, err := h.alerts.ListByDevice(c.Request.Context(), id)
	if err != nil {
		h.respondInternal(c, err, "failed to list alerts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "count": len(alerts)})
}

// CreateRuleRequest is the payload for creating a compliance rule.
type CreateRuleRequest struct {
	Name               string       `json:"name" binding:"required"`
	Description        string       `json:"description"`
	Kind               string       `json:"kind" binding:"required"`
	Severity           string       `json:"severity" binding:"required"`
	Config             rules.Config `json:"config"`
	ApplicablePlatform string       `json:"applicablePlatform"`
}

// ListRules returns all compliance rules.
func (h *Handler) ListRules(c *gin.Context) {
	ruleSet, err := h.rules.List(c.Request.Context())
	if err != nil {
		h.respondInternal(c, err, "failed to list rules")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": ruleSet, "count": len(ruleSet)})
}

// CreateRule creates a new compliance rule.
func (h *Handler) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	kind, ok := rules.ParseKind(req.Kind)
	if !ok {
		respondBadRequest(c, "unknown rule kind: "+req.Kind)
		return
	}

	severity, ok := rules.ParseSeverity(req.Severity)
	if !ok {
		respondBadRequest(c, "unknown severity: "+req.Severity)
		return
	}

	var applicable platform.OSFamily
	if req.ApplicablePlatform != "" {
		family, ok := platform.ParseOSFamily(req.ApplicablePlatform)
		if !ok {
			respondBadRequest(c, "unknown platform: "+req.ApplicablePlatform)
			return
		}
		applicable = family
	}

	rule, err := rules.New(req.Name, req.Description, kind, severity, req.Config, applicable)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	created, err := h.rules.Create(c.Request.Context(), rule)
	if err != nil {
		h.respondInternal(c, err, "failed to create rule")
		return
	}

	h.logger.Info().
		Str("ruleId", created.ID.String()).
		Str("name", created.Name).
		Str("kind", string(created.Kind)).
		Msg("rule created")
	c.JSON(http.StatusCreated, created)
}

// GetRule returns a single rule by ID.
func (h *Handler) GetRule(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rule, err := h.rules.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, rules.ErrRuleNotFound) {
			respondNotFound(c, "rule not found")
			return
		}
		h.respondInternal(c, err, "failed to get rule")
		return
	}
	c.JSON(http.StatusOK, rule)
}

// UpdateRuleRequest is the payload for updating a compliance rule. Nil
// fields are left unchanged.
type UpdateRuleRequest struct {
	Name        *string       `json:"name"`
	Description *string       `json:"description"`
	Severity    *string       `json:"severity"`
	Config      *rules.Config `json:"config"`
	Enabled     *bool         `json:"enabled"`
}

// UpdateRule updates an existing rule.
func (h *Handler) UpdateRule(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	rule, err := h.rules.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, rules.ErrRuleNotFound) {
			respondNotFound(c, "rule not found")
			return
		}
		h.respondInternal(c, err, "failed to get rule")
		return
	}

	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Description != nil {
		rule.Description = *req.Description
	}
	if req.Severity != nil {
		severity, ok := rules.ParseSeverity(*req.Severity)
		if !ok {
			respondBadRequest(c, "unknown severity: "+*req.Severity)
			return
		}
		rule.Severity = severity
	}
	if req.Config != nil {
		rule.Config = *req.Config
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	updated, err := h.rules.Update(c.Request.Context(), rule)
	if err != nil {
		h.respondInternal(c, err, "failed to update rule")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteRule deletes a rule.
func (h *Handler) DeleteRule(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.rules.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, rules.ErrRuleNotFound) {
			respondNotFound(c, "rule not found")
			return
		}
		h.respondInternal(c, err, "failed to delete rule")
		return
	}
	c.Status(http.StatusNoContent)
}

// EnableRule enables a rule.
func (h *Handler) EnableRule(c *gin.Context) {
	h.setRuleEnabled(c, true)
}

// DisableRule disables a rule.
func (h *Handler) DisableRule(c *gin.Context) {
	h.setRuleEnabled(c, false)
}

func (h *Handler) setRuleEnabled(c *gin.Context, enabled bool) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.rules.SetEnabled(c.Request.Context(), id, enabled); err != nil {
		if errors.Is(err, rules.ErrRuleNotFound) {
			respondNotFound(c, "rule not found")
			return
		}
		h.respondInternal(c, err, "failed to update rule")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "enabled": enabled})
}

// CreateRecipientRequest is the payload for creating an alert recipient.
type CreateRecipientRequest struct {
	Email           string `json:"email" binding:"required"`
	DisplayName     string `json:"displayName"`
	MinimumSeverity string `json:"minimumSeverity"`
}

// ListRecipients returns all alert recipients.
func (h *Handler) ListRecipients(c *gin.Context) {
	recipients, err := h.recipients.List(c.Request.Context())
	if err != nil {
		h.respondInternal(c, err, "failed to list recipients")
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipients": recipients, "count": len(recipients)})
}

// CreateRecipient creates a new alert recipient.
func (h *Handler) CreateRecipient(c *gin.Context) {
	var req CreateRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	severity := rules.SeverityInformation
	if req.MinimumSeverity != "" {
		parsed, ok := rules.ParseSeverity(req.MinimumSeverity)
		if !ok {
			respondBadRequest(c, "unknown severity: "+req.MinimumSeverity)
			return
		}
		severity = parsed
	}

	recipient, err := alerting.NewRecipient(req.Email, req.DisplayName, severity)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	created, err := h.recipients.Create(c.Request.Context(), recipient)
	if err != nil {
		h.respondInternal(c, err, "failed to create recipient")
		return
	}

	h.logger.Info().
		Str("recipientId", created.ID.String()).
		Str("email", created.Email).
		Msg("recipient created")
	c.JSON(http.StatusCreated, created)
}

// GetRecipient returns a single recipient by ID.
func (h *Handler) GetRecipient(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	recipient, err := h.recipients.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, alerting.ErrRecipientNotFound) {
			respondNotFound(c, "recipient not found")
			return
		}
		h.respondInternal(c, err, "failed to get recipient")
		return
	}
	c.JSON(http.StatusOK, recipient)
}

// UpdateRecipientRequest is the payload for updating a recipient. Nil
// fields are left unchanged.
type UpdateRecipientRequest struct {
	DisplayName     *string `json:"displayName"`
	MinimumSeverity *string `json:"minimumSeverity"`
	Enabled         *bool   `json:"enabled"`
}

// UpdateRecipient updates an existing recipient.
func (h *Handler) UpdateRecipient(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	recipient, err := h.recipients.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, alerting.ErrRecipientNotFound) {
			respondNotFound(c, "recipient not found")
			return
		}
		h.respondInternal(c, err, "failed to get recipient")
		return
	}

	if req.DisplayName != nil {
		recipient.DisplayName = *req.DisplayName
	}
	if req.MinimumSeverity != nil {
		severity, ok := rules.ParseSeverity(*req.MinimumSeverity)
		if !ok {
			respondBadRequest(c, "unknown severity: "+*req.MinimumSeverity)
			return
		}
		recipient.MinimumSeverity = severity
	}
	if req.Enabled != nil {
		recipient.Enabled = *req.Enabled
	}

	updated, err := h.recipients.Update(c.Request.Context(), recipient)
	if err != nil {
		h.respondInternal(c, err, "failed to update recipient")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteRecipient deletes a recipient.
func (h *Handler) DeleteRecipient(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.recipients.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, alerting.ErrRecipientNotFound) {
			respondNotFound(c, "recipient not found")
			return
		}
		h.respondInternal(c, err, "failed to delete recipient")
		return
	}
	c.Status(http.StatusNoContent)
}

// ListAlerts returns the alert history, newest first.
func (h *Handler) ListAlerts(c *gin.Context) {
	alerts, err := h.alerts.List(c.Request.Context())
	if err != nil {
		h.respondInternal(c, err, "failed to list alerts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "count": len(alerts)})
}

// GetAlert returns a single alert by ID.
func (h *Handler) GetAlert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	alert, err := h.alerts.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, alerting.ErrAlertNotFound) {
			respondNotFound(c, "alert not found")
			return
		}
		h.respondInternal(c, err, "failed to get alert")
		return
	}
	c.JSON(http.StatusOK, alert)
}

// TriggerSync runs a device sync pass immediately.
func (h *Handler) TriggerSync(c *gin.Context) {
	if h.syncer == nil {
		respondError(c, http.StatusServiceUnavailable, "unavailable", "device sync is not configured")
		return
	}

	result, err := h.syncer.Sync(c.Request.Context())
	if err != nil {
		h.respondInternal(c, err, "device sync failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

// TriggerEvaluation runs a compliance evaluation pass immediately.
func (h *Handler) TriggerEvaluation(c *gin.Context) {
	result, err := h.evaluator.EvaluateAll(c.Request.Context())
	if err != nil {
		h.respondInternal(c, err, "compliance evaluation failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

// TriggerAlertProcessing runs an alert processing pass immediately.
func (h *Handler) TriggerAlertProcessing(c *gin.Context) {
	result, err := h.processor.ProcessAlerts(c.Request.Context())
	if err != nil {
		h.respondInternal(c, err, "alert processing failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

// DashboardResponse summarizes the device fleet for the dashboard.
type DashboardResponse struct {
	Devices map[device.State]int `json:"devices"`
	Total   int                  `json:"total"`
}

// Dashboard returns fleet compliance counts by effective state.
func (h *Handler) Dashboard(c *gin.Context) {
	counts, err := h.devices.CountByEffectiveState(c.Request.Context())
	if err != nil {
		h.respondInternal(c, err, "failed to count devices")
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	c.JSON(http.StatusOK, DashboardResponse{Devices: counts, Total: total})
}
