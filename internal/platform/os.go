// Package platform normalizes free-text operating system and browser
// descriptor strings into typed platform information.
package platform

import (
	"strconv"
	"strings"

	"github.com/kneutral-org/compliance-alerting/internal/version"
)

// OSFamily identifies a device operating system family.
type OSFamily string

// Known operating system families.
const (
	OSUnknown OSFamily = "unknown"
	OSWindows OSFamily = "windows"
	OSMacOS   OSFamily = "macos"
	OSIOS     OSFamily = "ios"
	OSAndroid OSFamily = "android"
	OSLinux   OSFamily = "linux"
)

// ParseOSFamily maps a family name to an OSFamily. It returns ok=false for
// unrecognized input.
func ParseOSFamily(s string) (OSFamily, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "windows":
		return OSWindows, true
	case "macos", "mac os", "osx":
		return OSMacOS, true
	case "ios":
		return OSIOS, true
	case "android":
		return OSAndroid, true
	case "linux":
		return OSLinux, true
	case "unknown", "":
		return OSUnknown, true
	default:
		return OSUnknown, false
	}
}

// OSInfo is an immutable description of a device operating system derived
// from a free-text source string.
type OSInfo struct {
	Family      OSFamily        `json:"family"`
	Name        string          `json:"name"`
	Version     version.Version `json:"version"`
	Edition     string          `json:"edition,omitempty"`
	BuildNumber string          `json:"buildNumber,omitempty"`
}

// Windows build thresholds: builds at or above windows11Build ship as
// Windows 11; builds from windows10Build up are surfaced as build numbers.
const (
	windows10Build = 19000
	windows11Build = 22000
)

// OSFromString classifies a free-text OS descriptor. Unmatched or empty
// input yields an Unknown platform with version 0.0.0, never an error.
func OSFromString(raw string) OSInfo {
	if strings.TrimSpace(raw) == "" {
		return OSInfo{Family: OSUnknown, Name: "Unknown"}
	}

	normalized := strings.ToLower(raw)

	switch {
	case strings.Contains(normalized, "windows"):
		return parseWindows(raw, normalized)
	case strings.Contains(normalized, "macos"), strings.Contains(normalized, "mac os"), strings.Contains(normalized, "darwin"):
		return parseMacOS(raw)
	case strings.Contains(normalized, "ios"), strings.Contains(normalized, "iphone"), strings.Contains(normalized, "ipad"):
		return parseIOS(raw)
	case strings.Contains(normalized, "android"):
		return parseAndroid(raw)
	case strings.Contains(normalized, "linux"), strings.Contains(normalized, "ubuntu"), strings.Contains(normalized, "debian"):
		return parseLinux(raw)
	default:
		return OSInfo{Family: OSUnknown, Name: raw}
	}
}

func parseWindows(raw, normalized string) OSInfo {
	v, ok := extractVersion(raw)
	if !ok {
		v = version.MustNew(10, 0, 0)
	}

	var edition string
	switch {
	case strings.Contains(normalized, "pro"):
		edition = "Pro"
	case strings.Contains(normalized, "enterprise"):
		edition = "Enterprise"
	case strings.Contains(normalized, "home"):
		edition = "Home"
	}

	build := windowsBuild(v)
	var buildNumber string
	if build >= windows10Build {
		buildNumber = strconv.Itoa(build)
	}

	name := "Windows 10"
	if strings.Contains(normalized, "windows 11") || v.Major >= 11 || build >= windows11Build {
		name = "Windows 11"
	}

	return OSInfo{
		Family:      OSWindows,
		Name:        name,
		Version:     v,
		Edition:     edition,
		BuildNumber: buildNumber,
	}
}

// windowsBuild extracts the Windows OS build from a parsed version: the
// fourth numeric group when present, otherwise a patch value already in the
// build number range.
func windowsBuild(v version.Version) int {
	if v.Build != "" {
		if n, err := strconv.Atoi(v.Build); err == nil && n >= windows10Build {
			return n
		}
	}
	if v.Patch >= windows10Build {
		return v.Patch
	}
	return 0
}

func parseMacOS(raw string) OSInfo {
	v, ok := extractVersion(raw)
	if !ok {
		v = version.MustNew(13, 0, 0)
	}

	var name string
	switch {
	case v.Major >= 15:
		name = "macOS Sequoia"
	case v.Major == 14:
		name = "macOS Sonoma"
	case v.Major == 13:
		name = "macOS Ventura"
	case v.Major == 12:
		name = "macOS Monterey"
	case v.Major == 11:
		name = "macOS Big Sur"
	default:
		name = "macOS"
	}

	return OSInfo{Family: OSMacOS, Name: name, Version: v}
}

func parseIOS(raw string) OSInfo {
	v, ok := extractVersion(raw)
	if !ok {
		v = version.MustNew(17, 0, 0)
	}
	return OSInfo{Family: OSIOS, Name: "iOS " + strconv.Itoa(v.Major), Version: v}
}

func parseAndroid(raw string) OSInfo {
	v, ok := extractVersion(raw)
	if !ok {
		v = version.MustNew(14, 0, 0)
	}
	return OSInfo{Family: OSAndroid, Name: "Android " + strconv.Itoa(v.Major), Version: v}
}

func parseLinux(raw string) OSInfo {
	v, ok := extractVersion(raw)
	if !ok {
		v = version.MustNew(1, 0, 0)
	}
	return OSInfo{Family: OSLinux, Name: "Linux", Version: v}
}

// extractVersion splits the input on separator characters and returns the
// first token that parses as a version.
func extractVersion(input string) (version.Version, bool) {
	tokens := strings.FieldsFunc(input, func(r rune) bool {
		switch r {
		case ' ', '/', '-', '_', '(', ')', ',':
			return true
		}
		return false
	})

	for _, token := range tokens {
		if v, ok := version.Parse(token); ok {
			return v, true
		}
	}
	return version.Version{}, false
}

func (o OSInfo) String() string {
	var b strings.Builder
	b.WriteString(o.Name)
	if o.Edition != "" {
		b.WriteByte(' ')
		b.WriteString(o.Edition)
	}
	b.WriteByte(' ')
	b.WriteString(o.Version.String())
	if o.BuildNumber != "" {
		b.WriteString(" (")
		b.WriteString(o.BuildNumber)
		b.WriteByte(')')
	}
	return b.String()
}
