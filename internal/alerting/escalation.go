// Package alerting turns compliance findings into throttled email alerts.
package alerting

import (
	"github.com/kneutral-org/compliance-alerting/internal/rules"
)

// Alert types. The type, together with the device, keys the cooldown
// window, so each escalation tier throttles independently.
const (
	AlertTypeEOSExpired         = "eos-expired"
	AlertTypeEOS30Days          = "eos-30-days"
	AlertTypeEOS60Days          = "eos-60-days"
	AlertTypeEOS90Days          = "eos-90-days"
	AlertTypeComplianceCritical = "compliance-critical"
)

// Escalation is the severity and alert type for an end-of-support
// countdown position.
type Escalation struct {
	Severity  rules.Severity
	AlertType string
}

// EscalationForDays maps days until end of support to an escalation
// tier. ok=false means the date is too far out to alert on.
func EscalationForDays(days int) (Escalation, bool) {
	switch {
	case days <= 0:
		return Escalation{Severity: rules.SeverityCritical, AlertType: AlertTypeEOSExpired}, true
	case days <= 30:
		return Escalation{Severity: rules.SeverityCritical, AlertType: AlertTypeEOS30Days}, true
	case days <= 60:
		return Escalation{Severity: rules.SeverityWarning, AlertType: AlertTypeEOS60Days}, true
	case days <= 90:
		return Escalation{Severity: rules.SeverityInformation, AlertType: AlertTypeEOS90Days}, true
	default:
		return Escalation{}, false
	}
}
