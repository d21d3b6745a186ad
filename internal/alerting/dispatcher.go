package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kneutral-org/compliance-alerting/internal/lock"
	"github.com/kneutral-org/compliance-alerting/internal/metrics"
	"github.com/kneutral-org/compliance-alerting/internal/rules"
)

// EmailSender delivers a rendered alert email.
type EmailSender interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// Request describes one alert to dispatch. DeviceID and AlertType
// together key the cooldown; either empty means the alert is never
// throttled.
type Request struct {
	Subject   string
	Body      string
	Severity  rules.Severity
	DeviceID  *uuid.UUID
	AlertType string
}

// Dispatcher sends alert emails with per-device, per-type cooldown
// throttling. The cooldown check and restart are serialized per key, so
// overlapping sends for the same device and type collapse into one
// email.
type Dispatcher struct {
	alerts       AlertStore
	recipients   RecipientStore
	cooldowns    CooldownStore
	sender       EmailSender
	locks        *lock.KeyedMutex
	cooldownDays int
	logger       zerolog.Logger
	now          func() time.Time
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithCooldownDays overrides the cooldown window length.
func WithCooldownDays(days int) DispatcherOption {
	return func(d *Dispatcher) {
		if days > 0 {
			d.cooldownDays = days
		}
	}
}

// WithDispatcherClock overrides the dispatcher clock, for tests.
func WithDispatcherClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// NewDispatcher creates an alert dispatcher.
func NewDispatcher(alerts AlertStore, recipients RecipientStore, cooldowns CooldownStore, sender EmailSender, logger zerolog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		alerts:       alerts,
		recipients:   recipients,
		cooldowns:    cooldowns,
		sender:       sender,
		locks:        lock.NewKeyedMutex(),
		cooldownDays: DefaultCooldownDays,
		logger:       logger.With().Str("component", "alert_dispatcher").Logger(),
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send dispatches one alert. It returns sent=false without error when
// the alert was suppressed by an active cooldown or had no eligible
// recipients. A delivery failure is recorded on the alert and returned;
// the cooldown window stays untouched so the next pass retries.
func (d *Dispatcher) Send(ctx context.Context, req Request) (sent bool, err error) {
	throttled := req.DeviceID != nil && req.AlertType != ""

	if throttled {
		release := d.locks.Lock(req.DeviceID.String() + "|" + req.AlertType)
		defer release()

		active, err := d.inCooldown(ctx, *req.DeviceID, req.AlertType)
		if err != nil {
			return false, err
		}
		if active {
			d.logger.Info().
				Str("device_id", req.DeviceID.String()).
				Str("alert_type", req.AlertType).
				Msg("alert skipped due to cooldown")
			metrics.RecordAlertSuppressed(req.AlertType)
			return false, nil
		}
	}

	eligible, err := d.recipients.ListEligible(ctx, req.Severity)
	if err != nil {
		return false, fmt.Errorf("list eligible recipients: %w", err)
	}
	if len(eligible) == 0 {
		d.logger.Warn().Str("subject", req.Subject).Msg("no eligible recipients for alert")
		return false, nil
	}

	alert, err := NewAlert(req.Subject, req.Body, req.Severity, req.AlertType, req.DeviceID)
	if err != nil {
		return false, err
	}
	for _, r := range eligible {
		alert.AddRecipient(r.Email, r.DisplayName)
	}

	if _, err := d.alerts.Create(ctx, alert); err != nil {
		return false, fmt.Errorf("create alert record: %w", err)
	}

	start := d.now()
	sendErr := d.sender.Send(ctx, alert.RecipientEmails(), req.Subject, req.Body)
	metrics.RecordEmailSendLatency(d.now().Sub(start).Seconds())

	if sendErr != nil {
		alert.MarkFailed(sendErr.Error(), d.now())
		if _, err := d.alerts.Update(ctx, alert); err != nil {
			d.logger.Error().Err(err).Str("subject", req.Subject).Msg("failed to record alert failure")
		}
		metrics.RecordAlertFailed(req.AlertType)
		d.logger.Error().Err(sendErr).Str("subject", req.Subject).Msg("failed to send alert")
		return false, fmt.Errorf("send alert email: %w", sendErr)
	}

	alert.MarkSent(d.now())
	if _, err := d.alerts.Update(ctx, alert); err != nil {
		d.logger.Error().Err(err).Str("subject", req.Subject).Msg("failed to record alert delivery")
	}

	if throttled {
		cooldown := NewCooldown(*req.DeviceID, req.AlertType, d.now(), d.cooldownDays)
		if err := d.cooldowns.Upsert(ctx, cooldown); err != nil {
			d.logger.Error().Err(err).
				Str("device_id", req.DeviceID.String()).
				Str("alert_type", req.AlertType).
				Msg("failed to persist alert cooldown")
		}
	}

	metrics.RecordAlertSent(req.AlertType, req.Severity.String())
	d.logger.Info().
		Str("subject", req.Subject).
		Int("recipients", len(alert.Recipients)).
		Msg("alert sent successfully")

	return true, nil
}

func (d *Dispatcher) inCooldown(ctx context.Context, deviceID uuid.UUID, alertType string) (bool, error) {
	cooldown, err := d.cooldowns.Get(ctx, deviceID, alertType)
	if err != nil {
		if errors.Is(err, ErrCooldownNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get alert cooldown: %w", err)
	}
	return cooldown.InCooldownAt(d.now()), nil
}
