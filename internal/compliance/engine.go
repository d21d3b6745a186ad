// Package compliance evaluates managed devices against policy rules and
// vendor support lifecycles.
package compliance

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kneutral-org/compliance-alerting/internal/device"
	"github.com/kneutral-org/compliance-alerting/internal/platform"
	"github.com/kneutral-org/compliance-alerting/internal/rules"
)

// Engine evaluates individual policy rules against a device. Rules with
// malformed or incomplete configuration evaluate as compliant; policy
// misconfiguration must never mark a fleet noncompliant.
type Engine struct {
	logger zerolog.Logger
}

// NewEngine creates a rule evaluation engine.
func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{
		logger: logger.With().Str("component", "compliance_engine").Logger(),
	}
}

// result is the outcome of one rule check. description is only set when
// compliant is false.
type result struct {
	compliant   bool
	description string
}

var compliant = result{compliant: true}

// Evaluate runs every applicable rule against the device and returns the
// resulting findings. The device is not mutated.
func (e *Engine) Evaluate(d *device.Device, ruleSet []*rules.Rule) []device.Issue {
	var issues []device.Issue
	for _, rule := range ruleSet {
		if !rule.AppliesTo(d.OS.Family) {
			continue
		}

		res := e.evaluateRule(d, rule)
		if !res.compliant {
			issues = append(issues, device.Issue{
				RuleID:      rule.ID.String(),
				RuleName:    rule.Name,
				Description: res.description,
				Severity:    rule.Severity,
			})
		}
	}
	return issues
}

func (e *Engine) evaluateRule(d *device.Device, rule *rules.Rule) result {
	switch rule.Kind {
	case rules.KindOSVersion:
		return e.evaluateOSVersion(d, rule)
	case rules.KindBrowserVersion:
		return e.evaluateBrowserVersion(d, rule)
	case rules.KindEncryptionEnabled:
		return evaluateEncryption(d)
	case rules.KindFirewallEnabled, rules.KindSecuritySoftware:
		// Needs telemetry the provider sync does not ingest yet.
		return compliant
	default:
		e.logger.Warn().
			Str("rule", rule.Name).
			Str("kind", string(rule.Kind)).
			Msg("unknown rule kind, skipping")
		return compliant
	}
}

func (e *Engine) evaluateOSVersion(d *device.Device, rule *rules.Rule) result {
	minimum, ok := rule.Config.Version("minimumVersion")
	if !ok {
		e.logger.Warn().
			Str("rule", rule.Name).
			Str("device", d.Name).
			Msg("os_version rule missing a valid minimumVersion, skipping")
		return compliant
	}

	if d.OS.Version.Less(minimum) {
		return result{
			description: fmt.Sprintf("OS version %s is below minimum required version %s",
				d.OS.Version, minimum),
		}
	}
	return compliant
}

func (e *Engine) evaluateBrowserVersion(d *device.Device, rule *rules.Rule) result {
	familyName, ok := rule.Config.String("browserFamily")
	if !ok {
		e.logger.Warn().
			Str("rule", rule.Name).
			Str("device", d.Name).
			Msg("browser_version rule missing browserFamily, skipping")
		return compliant
	}

	family, ok := platform.ParseBrowserFamily(familyName)
	if !ok {
		e.logger.Warn().
			Str("rule", rule.Name).
			Str("browserFamily", familyName).
			Msg("browser_version rule names an unknown browser family, skipping")
		return compliant
	}

	minimum, ok := rule.Config.Version("minimumVersion")
	if !ok {
		e.logger.Warn().
			Str("rule", rule.Name).
			Str("device", d.Name).
			Msg("browser_version rule missing a valid minimumVersion, skipping")
		return compliant
	}

	// A device without the browser installed has nothing to check.
	browser, ok := d.BrowserByFamily(family)
	if !ok {
		return compliant
	}

	if browser.Version.Less(minimum) {
		return result{
			description: fmt.Sprintf("%s version %s is below minimum required version %s",
				browser.Name, browser.Version, minimum),
		}
	}
	return compliant
}

func evaluateEncryption(d *device.Device) result {
	if !d.Encrypted {
		return result{description: "Device encryption is not enabled"}
	}
	return compliant
}
