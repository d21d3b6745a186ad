package compliance

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kneutral-org/compliance-alerting/internal/device"
	"github.com/kneutral-org/compliance-alerting/internal/metrics"
	"github.com/kneutral-org/compliance-alerting/internal/rules"
	"github.com/kneutral-org/compliance-alerting/internal/support"
)

// DefaultConcurrency bounds parallel device evaluations in a fleet pass.
const DefaultConcurrency = 8

// Evaluator runs the full compliance evaluation for devices: vendor
// support lifecycle first, then the policy rule set, then the overall
// state roll-up.
type Evaluator struct {
	devices     device.Store
	rules       rules.Store
	support     support.Store
	engine      *Engine
	warningDays int
	concurrency int
	logger      zerolog.Logger
	now         func() time.Time
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithWarningDays overrides the approaching-end-of-support window.
func WithWarningDays(days int) EvaluatorOption {
	return func(e *Evaluator) {
		if days > 0 {
			e.warningDays = days
		}
	}
}

// WithConcurrency bounds parallel evaluations during a fleet pass.
func WithConcurrency(n int) EvaluatorOption {
	return func(e *Evaluator) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithClock overrides the evaluation clock, for tests.
func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) {
		e.now = now
	}
}

// NewEvaluator creates a compliance evaluator.
func NewEvaluator(devices device.Store, ruleStore rules.Store, supportStore support.Store, logger zerolog.Logger, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		devices:     devices,
		rules:       ruleStore,
		support:     supportStore,
		engine:      NewEngine(logger),
		warningDays: support.DefaultWarningDays,
		concurrency: DefaultConcurrency,
		logger:      logger.With().Str("component", "compliance_evaluator").Logger(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result summarizes a fleet evaluation pass.
type Result struct {
	Evaluated      int `json:"evaluated"`
	Compliant      int `json:"compliant"`
	NonCompliant   int `json:"nonCompliant"`
	ApproachingEOS int `json:"approachingEndOfSupport"`
}

// Evaluate runs the evaluation for one device in place. The caller owns
// persistence.
func (e *Evaluator) Evaluate(d *device.Device, ruleSet []*rules.Rule, records []*support.Record) {
	now := e.now()
	d.ClearIssues()

	var endOfSupportAt *time.Time
	hasIssues := false
	approachingEOS := false

	if record := support.FindApplicable(d.OS, records); record != nil {
		eos := record.EndOfSupportAt
		endOfSupportAt = &eos

		switch {
		case record.IsEndOfSupportAt(now):
			d.AddIssue("os-eos", "Operating System End of Support",
				fmt.Sprintf("%s %s has reached end of support", d.OS.Name, d.OS.Version),
				rules.SeverityCritical, now)
			hasIssues = true

		case record.IsApproachingEndOfSupportAt(now, e.warningDays):
			days := record.DaysUntilEndOfSupportAt(now)
			severity := rules.SeverityInformation
			switch {
			case days <= 30:
				severity = rules.SeverityCritical
			case days <= 60:
				severity = rules.SeverityWarning
			}

			d.AddIssue("os-approaching-eos", "Operating System Approaching End of Support",
				fmt.Sprintf("%s %s will reach end of support in %d days", d.OS.Name, d.OS.Version, days),
				severity, now)
			approachingEOS = true
		}
	}

	for _, issue := range e.engine.Evaluate(d, ruleSet) {
		d.AddIssue(issue.RuleID, issue.RuleName, issue.Description, issue.Severity, now)
		hasIssues = true
	}

	state := device.StateCompliant
	switch {
	case hasIssues:
		state = device.StateNonCompliant
	case approachingEOS:
		state = device.StateApproachingEOS
	}

	d.SetComplianceState(state, endOfSupportAt, now)

	e.logger.Debug().
		Str("device", d.Name).
		Str("state", string(state)).
		Int("issues", len(d.Issues)).
		Msg("device evaluated")
}

// EvaluateAll evaluates every device in the fleet with bounded
// concurrency and persists each outcome.
func (e *Evaluator) EvaluateAll(ctx context.Context) (Result, error) {
	start := e.now()

	devices, err := e.devices.List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list devices: %w", err)
	}

	ruleSet, err := e.rules.ListEnabled(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list enabled rules: %w", err)
	}

	records, err := e.support.List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list vendor support records: %w", err)
	}

	e.logger.Info().Int("devices", len(devices)).Msg("starting compliance evaluation")

	var compliantCount, nonCompliantCount, approachingCount atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, d := range devices {
		d := d
		g.Go(func() error {
			e.Evaluate(d, ruleSet, records)

			if _, err := e.devices.Update(gctx, d); err != nil {
				return fmt.Errorf("update device %s: %w", d.Name, err)
			}

			switch d.State {
			case device.StateNonCompliant:
				nonCompliantCount.Add(1)
			case device.StateApproachingEOS:
				approachingCount.Add(1)
			default:
				compliantCount.Add(1)
			}
			metrics.RecordDeviceEvaluated(string(d.State))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	e.refreshStateGauge(ctx)
	metrics.RecordEvaluationDuration(e.now().Sub(start).Seconds())

	result := Result{
		Evaluated:      len(devices),
		Compliant:      int(compliantCount.Load()),
		NonCompliant:   int(nonCompliantCount.Load()),
		ApproachingEOS: int(approachingCount.Load()),
	}

	e.logger.Info().
		Int("evaluated", result.Evaluated).
		Int("compliant", result.Compliant).
		Int("noncompliant", result.NonCompliant).
		Int("approaching_eos", result.ApproachingEOS).
		Msg("compliance evaluation completed")

	return result, nil
}

// EvaluateOne evaluates a single stored device by ID and persists the
// outcome.
func (e *Evaluator) EvaluateOne(ctx context.Context, d *device.Device) (*device.Device, error) {
	ruleSet, err := e.rules.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enabled rules: %w", err)
	}

	records, err := e.support.ListByPlatform(ctx, d.OS.Family)
	if err != nil {
		return nil, fmt.Errorf("list vendor support records: %w", err)
	}

	e.Evaluate(d, ruleSet, records)

	updated, err := e.devices.Update(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("update device %s: %w", d.Name, err)
	}
	metrics.RecordDeviceEvaluated(string(updated.State))
	return updated, nil
}

func (e *Evaluator) refreshStateGauge(ctx context.Context) {
	counts, err := e.devices.CountByEffectiveState(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("failed to refresh device state gauge")
		return
	}
	for state, count := range counts {
		metrics.SetDevicesByState(string(state), float64(count))
	}
}
