package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kneutral-org/compliance-alerting/internal/device"
	"github.com/kneutral-org/compliance-alerting/internal/rules"
)

// Processor walks the evaluated fleet and dispatches the alerts it
// warrants: end-of-support countdowns first, then critical compliance
// findings for devices with no support date in play.
type Processor struct {
	devices    device.Store
	dispatcher *Dispatcher
	logger     zerolog.Logger
	now        func() time.Time
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithProcessorClock overrides the processor clock, for tests.
func WithProcessorClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		p.now = now
	}
}

// NewProcessor creates an alert processor.
func NewProcessor(devices device.Store, dispatcher *Dispatcher, logger zerolog.Logger, opts ...ProcessorOption) *Processor {
	p := &Processor{
		devices:    devices,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "alert_processor").Logger(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessResult summarizes an alert processing pass.
type ProcessResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// ProcessAlerts runs one alert processing pass over the whole fleet.
// Individual send failures are counted, not fatal.
func (p *Processor) ProcessAlerts(ctx context.Context) (ProcessResult, error) {
	p.logger.Info().Msg("starting alert processing")

	devices, err := p.devices.List(ctx)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("list devices: %w", err)
	}

	var result ProcessResult
	now := p.now()

	for _, d := range devices {
		if d.EndOfSupportAt == nil {
			continue
		}
		if d.State != device.StateApproachingEOS && d.State != device.StateNonCompliant {
			continue
		}

		days := daysUntil(*d.EndOfSupportAt, now)
		escalation, ok := EscalationForDays(days)
		if !ok {
			continue
		}

		subject := fmt.Sprintf("Device %s - End of Support in %d days", d.Name, days)
		if days <= 0 {
			subject = fmt.Sprintf("CRITICAL: %s has reached end of support", d.Name)
		}

		body, err := RenderEndOfSupportBody(d, *d.EndOfSupportAt, days)
		if err != nil {
			p.logger.Error().Err(err).Str("device", d.Name).Msg("failed to render alert body")
			result.Failed++
			continue
		}

		deviceID := d.ID
		sent, err := p.dispatcher.Send(ctx, Request{
			Subject:   subject,
			Body:      body,
			Severity:  escalation.Severity,
			DeviceID:  &deviceID,
			AlertType: escalation.AlertType,
		})
		if err != nil {
			result.Failed++
			continue
		}
		if sent {
			result.Sent++
		}
	}

	for _, d := range devices {
		if d.State != device.StateNonCompliant || d.EndOfSupportAt != nil {
			continue
		}

		critical := d.CriticalIssues()
		if len(critical) == 0 {
			continue
		}

		subject := fmt.Sprintf("Compliance Alert: %s has %d critical issues", d.Name, len(critical))
		body, err := RenderComplianceBody(d, critical)
		if err != nil {
			p.logger.Error().Err(err).Str("device", d.Name).Msg("failed to render alert body")
			result.Failed++
			continue
		}

		deviceID := d.ID
		sent, err := p.dispatcher.Send(ctx, Request{
			Subject:   subject,
			Body:      body,
			Severity:  rules.SeverityCritical,
			DeviceID:  &deviceID,
			AlertType: AlertTypeComplianceCritical,
		})
		if err != nil {
			result.Failed++
			continue
		}
		if sent {
			result.Sent++
		}
	}

	p.logger.Info().
		Int("sent", result.Sent).
		Int("failed", result.Failed).
		Msg("alert processing completed")

	return result, nil
}

// daysUntil returns whole days from now's date to the target date,
// ignoring time of day.
func daysUntil(target, now time.Time) int {
	return int(dateOf(target).Sub(dateOf(now)).Hours() / 24)
}

func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
