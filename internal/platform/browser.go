package platform

import (
	"strings"

	"github.com/kneutral-org/compliance-alerting/internal/version"
)

// BrowserFamily identifies a browser family.
type BrowserFamily string

// Known browser families.
const (
	BrowserUnknown BrowserFamily = "unknown"
	BrowserChrome  BrowserFamily = "chrome"
	BrowserEdge    BrowserFamily = "edge"
	BrowserFirefox BrowserFamily = "firefox"
	BrowserSafari  BrowserFamily = "safari"
)

// ParseBrowserFamily maps a family name to a BrowserFamily. It returns
// ok=false for unrecognized input.
func ParseBrowserFamily(s string) (BrowserFamily, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "chrome":
		return BrowserChrome, true
	case "edge":
		return BrowserEdge, true
	case "firefox":
		return BrowserFirefox, true
	case "safari":
		return BrowserSafari, true
	default:
		return BrowserUnknown, false
	}
}

// BrowserInfo is an immutable description of an installed browser derived
// from a free-text source string.
type BrowserInfo struct {
	Family  BrowserFamily   `json:"family"`
	Name    string          `json:"name"`
	Version version.Version `json:"version"`
}

// BrowserFromString classifies a free-text browser descriptor or user-agent
// style string. Unmatched or empty input yields an Unknown browser with
// version 0.0.0, never an error.
func BrowserFromString(raw string) BrowserInfo {
	if strings.TrimSpace(raw) == "" {
		return BrowserInfo{Family: BrowserUnknown, Name: "Unknown"}
	}

	normalized := strings.ToLower(raw)

	switch {
	case strings.Contains(normalized, "edge"), strings.Contains(normalized, "edg/"):
		return parseBrowser(BrowserEdge, "Microsoft Edge", raw)
	case strings.Contains(normalized, "chrome") && !strings.Contains(normalized, "edge"):
		return parseBrowser(BrowserChrome, "Google Chrome", raw)
	case strings.Contains(normalized, "firefox"):
		return parseBrowser(BrowserFirefox, "Mozilla Firefox", raw)
	case strings.Contains(normalized, "safari") && !strings.Contains(normalized, "chrome"):
		return parseBrowser(BrowserSafari, "Safari", raw)
	default:
		return BrowserInfo{Family: BrowserUnknown, Name: raw}
	}
}

func parseBrowser(family BrowserFamily, name, raw string) BrowserInfo {
	v, _ := extractVersion(raw)
	return BrowserInfo{Family: family, Name: name, Version: v}
}

func (b BrowserInfo) String() string {
	return b.Name + " " + b.Version.String()
}
