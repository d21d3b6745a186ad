// Package device provides the managed device model and its compliance
// state tracking.
package device

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kneutral-org/compliance-alerting/internal/platform"
	"github.com/kneutral-org/compliance-alerting/internal/rules"
)

// State is a device compliance state. The evaluator only ever computes
// Compliant, NonCompliant and ApproachingEndOfSupport; the remaining values
// mirror what the device-management provider can report.
type State string

// Compliance states.
const (
	StateUnknown        State = "unknown"
	StateCompliant      State = "compliant"
	StateNonCompliant   State = "noncompliant"
	StateApproachingEOS State = "approaching_end_of_support"
	StateInGracePeriod  State = "in_grace_period"
	StateConfigManager  State = "config_manager"
	StateConflict       State = "conflict"
	StateError          State = "error"
)

// ParseReportedState maps a provider-reported compliance state string to a
// State. Unrecognized input maps to Unknown.
func ParseReportedState(s string) State {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "compliant":
		return StateCompliant
	case "noncompliant", "notcompliant":
		return StateNonCompliant
	case "ingraceperiod", "in_grace_period":
		return StateInGracePeriod
	case "configmanager", "config_manager":
		return StateConfigManager
	case "conflict":
		return StateConflict
	case "error":
		return StateError
	default:
		return StateUnknown
	}
}

// Type classifies the device form factor.
type Type string

// Device types.
const (
	TypeUnknown Type = "unknown"
	TypeDesktop Type = "desktop"
	TypeLaptop  Type = "laptop"
	TypeTablet  Type = "tablet"
	TypePhone   Type = "phone"
	TypeVirtual Type = "virtual"
)

// ParseType maps a device type string to a Type. Unrecognized input maps
// to Unknown.
func ParseType(s string) Type {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desktop":
		return TypeDesktop
	case "laptop":
		return TypeLaptop
	case "tablet":
		return TypeTablet
	case "phone", "smartphone":
		return TypePhone
	case "virtual", "vm":
		return TypeVirtual
	default:
		return TypeUnknown
	}
}

// Issue is a point-in-time compliance finding for a device. The issue set
// is cleared and rebuilt on every evaluation pass; issues are not
// historical records.
type Issue struct {
	RuleID      string         `json:"ruleId"`
	RuleName    string         `json:"ruleName"`
	Description string         `json:"description"`
	Severity    rules.Severity `json:"severity"`
	DetectedAt  time.Time      `json:"detectedAt"`
}

// Device is a managed device synced from the device-management provider
// and evaluated against compliance policy.
type Device struct {
	ID                uuid.UUID `json:"id"`
	ExternalID        string    `json:"externalId"`
	Name              string    `json:"name"`
	UserPrincipalName string    `json:"userPrincipalName,omitempty"`
	UserDisplayName   string    `json:"userDisplayName,omitempty"`
	Type              Type      `json:"type"`

	OS       platform.OSInfo        `json:"os"`
	Browsers []platform.BrowserInfo `json:"browsers,omitempty"`

	// State is the internally computed compliance state; ReportedState is
	// what the provider last reported. Consumers read EffectiveState.
	State         State `json:"state"`
	ReportedState State `json:"reportedState"`

	LastSyncAt      *time.Time `json:"lastSyncAt,omitempty"`
	LastEvaluatedAt *time.Time `json:"lastEvaluatedAt,omitempty"`
	EndOfSupportAt  *time.Time `json:"endOfSupportAt,omitempty"`

	Encrypted    bool   `json:"encrypted"`
	Managed      bool   `json:"managed"`
	SerialNumber string `json:"serialNumber,omitempty"`
	Model        string `json:"model,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`

	Issues []Issue `json:"issues,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// New creates a device from provider identity and normalized OS info.
func New(externalID, name string, os platform.OSInfo, deviceType Type) (*Device, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, fmt.Errorf("external device ID is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("device name is required")
	}

	now := time.Now().UTC()
	return &Device{
		ID:            uuid.New(),
		ExternalID:    externalID,
		Name:          name,
		Type:          deviceType,
		OS:            os,
		State:         StateUnknown,
		ReportedState: StateUnknown,
		Managed:       true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ProviderUpdate carries the fields refreshed from the provider on every
// sync pass.
type ProviderUpdate struct {
	Name              string
	UserPrincipalName string
	UserDisplayName   string
	Type              Type
	OS                platform.OSInfo
	ReportedState     State
	LastSyncAt        *time.Time
	Encrypted         bool
	Managed           bool
	SerialNumber      string
	Model             string
	Manufacturer      string
}

// ApplyProviderUpdate refreshes provider-owned fields. The internally
// computed compliance state is untouched.
func (d *Device) ApplyProviderUpdate(u ProviderUpdate, now time.Time) {
	d.Name = u.Name
	d.UserPrincipalName = u.UserPrincipalName
	d.UserDisplayName = u.UserDisplayName
	d.Type = u.Type
	d.OS = u.OS
	d.ReportedState = u.ReportedState
	d.LastSyncAt = u.LastSyncAt
	d.Encrypted = u.Encrypted
	d.Managed = u.Managed
	d.SerialNumber = u.SerialNumber
	d.Model = u.Model
	d.Manufacturer = u.Manufacturer
	d.UpdatedAt = now
}

// SetComplianceState records the outcome of a compliance evaluation.
func (d *Device) SetComplianceState(state State, endOfSupportAt *time.Time, now time.Time) {
	d.State = state
	d.EndOfSupportAt = endOfSupportAt
	evaluatedAt := now
	d.LastEvaluatedAt = &evaluatedAt
	d.UpdatedAt = now
}

// AddIssue appends a compliance issue to the current snapshot.
func (d *Device) AddIssue(ruleID, ruleName, description string, severity rules.Severity, now time.Time) {
	d.Issues = append(d.Issues, Issue{
		RuleID:      ruleID,
		RuleName:    ruleName,
		Description: description,
		Severity:    severity,
		DetectedAt:  now,
	})
}

// ClearIssues discards the previous issue snapshot ahead of a fresh
// evaluation pass.
func (d *Device) ClearIssues() {
	d.Issues = nil
}

// CriticalIssues returns the critical-severity issues in the current
// snapshot.
func (d *Device) CriticalIssues() []Issue {
	var critical []Issue
	for _, issue := range d.Issues {
		if issue.Severity == rules.SeverityCritical {
			critical = append(critical, issue)
		}
	}
	return critical
}

// SetBrowsers replaces the installed browser list.
func (d *Device) SetBrowsers(browsers []platform.BrowserInfo, now time.Time) {
	d.Browsers = browsers
	d.UpdatedAt = now
}

// BrowserByFamily returns the installed browser of the given family, if
// any.
func (d *Device) BrowserByFamily(family platform.BrowserFamily) (platform.BrowserInfo, bool) {
	for _, b := range d.Browsers {
		if b.Family == family {
			return b, true
		}
	}
	return platform.BrowserInfo{}, false
}

// EffectiveState is the compliance state shown to consumers: the
// internally computed state once an evaluation has run, otherwise the
// provider-reported state. Alerting reads the internal state directly.
func (d *Device) EffectiveState() State {
	if d.LastEvaluatedAt != nil {
		return d.State
	}
	return d.ReportedState
}
