// Package rules provides configurable compliance policy rules evaluated
// against managed devices.
package rules

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kneutral-org/compliance-alerting/internal/platform"
	"github.com/kneutral-org/compliance-alerting/internal/version"
)

// Severity orders alert severities: Information < Warning < Critical.
type Severity int

// Alert severities.
const (
	SeverityInformation Severity = iota
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInformation:
		return "information"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSeverity maps a severity name to a Severity. It returns ok=false for
// unrecognized input.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "information", "info":
		return SeverityInformation, true
	case "warning", "warn":
		return SeverityWarning, true
	case "critical":
		return SeverityCritical, true
	default:
		return SeverityInformation, false
	}
}

// MarshalJSON encodes the severity as its lowercase name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity from its name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, ok := ParseSeverity(name)
	if !ok {
		return fmt.Errorf("unknown severity: %q", name)
	}
	*s = parsed
	return nil
}

// Kind identifies what a rule checks.
type Kind string

// Rule kinds. SecuritySoftware and FirewallEnabled are permanent no-ops
// until the required device telemetry is ingested.
const (
	KindOSVersion         Kind = "os_version"
	KindBrowserVersion    Kind = "browser_version"
	KindSecuritySoftware  Kind = "security_software"
	KindEncryptionEnabled Kind = "encryption_enabled"
	KindFirewallEnabled   Kind = "firewall_enabled"
)

// ParseKind maps a rule kind name to a Kind. It returns ok=false for
// unrecognized input.
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindOSVersion, KindBrowserVersion, KindSecuritySoftware,
		KindEncryptionEnabled, KindFirewallEnabled:
		return Kind(strings.ToLower(strings.TrimSpace(s))), true
	default:
		return "", false
	}
}

// Config is the opaque structured payload of a rule. It is untrusted
// administrator input: accessors return ok=false for absent or mistyped
// keys and never panic.
type Config map[string]any

// String returns the string value stored under key.
func (c Config) String(key string) (string, bool) {
	raw, ok := c[key]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

// Version returns the version value stored under key, parsing the string
// form. Absent or unparseable values yield ok=false.
func (c Config) Version(key string) (version.Version, bool) {
	s, ok := c.String(key)
	if !ok {
		return version.Version{}, false
	}
	return version.Parse(s)
}

// Bool returns the boolean value stored under key.
func (c Config) Bool(key string) (bool, bool) {
	raw, ok := c[key]
	if !ok {
		return false, false
	}
	b, ok := raw.(bool)
	return b, ok
}

// Rule is a configurable compliance policy rule. Administration mutates
// rules through the store; the evaluation engine treats them as read-only.
type Rule struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Kind        Kind      `json:"kind"`
	Enabled     bool      `json:"enabled"`
	Severity    Severity  `json:"severity"`
	Config      Config    `json:"config,omitempty"`

	// ApplicablePlatform restricts the rule to one OS family; empty means
	// the rule applies to all platforms.
	ApplicablePlatform platform.OSFamily `json:"applicablePlatform,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// New creates an enabled rule.
func New(name, description string, kind Kind, severity Severity, config Config, applicable platform.OSFamily) (*Rule, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("rule name is required")
	}

	now := time.Now().UTC()
	return &Rule{
		ID:                 uuid.New(),
		Name:               name,
		Description:        description,
		Kind:               kind,
		Enabled:            true,
		Severity:           severity,
		Config:             config,
		ApplicablePlatform: applicable,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// AppliesTo reports whether the rule should be evaluated for a device on
// the given platform family.
func (r *Rule) AppliesTo(family platform.OSFamily) bool {
	return r.Enabled && (r.ApplicablePlatform == "" || r.ApplicablePlatform == family)
}
