package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kneutral-org/compliance-alerting/internal/version"
)

func TestOSFromString_Windows(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantName    string
		wantVersion version.Version
		wantEdition string
		wantBuild   string
	}{
		{
			name:        "windows 10 build string",
			input:       "Windows 10.0.19045",
			wantName:    "Windows 10",
			wantVersion: version.Version{Major: 10, Minor: 0, Patch: 19045},
			wantBuild:   "19045",
		},
		{
			name:        "windows 11 by build threshold",
			input:       "Windows 10.0.22631",
			wantName:    "Windows 11",
			wantVersion: version.Version{Major: 10, Minor: 0, Patch: 22631},
			wantBuild:   "22631",
		},
		{
			name:        "windows 11 explicit marker",
			input:       "Windows 11 Enterprise",
			wantName:    "Windows 11",
			wantVersion: version.Version{Major: 11},
			wantEdition: "Enterprise",
		},
		{
			name:        "windows 11 by major version",
			input:       "Windows 11.0.1",
			wantName:    "Windows 11",
			wantVersion: version.Version{Major: 11, Minor: 0, Patch: 1},
		},
		{
			name:        "pro edition wins over enterprise",
			input:       "Windows Pro 10.0.19044",
			wantName:    "Windows 10",
			wantVersion: version.Version{Major: 10, Minor: 0, Patch: 19044},
			wantEdition: "Pro",
			wantBuild:   "19044",
		},
		{
			name:        "home edition",
			input:       "Windows Home 10.0.18363",
			wantName:    "Windows 10",
			wantVersion: version.Version{Major: 10, Minor: 0, Patch: 18363},
			wantEdition: "Home",
		},
		{
			name:        "four part version uses revision as build metadata",
			input:       "Windows 10.0.22621.1234",
			wantName:    "Windows 11",
			wantVersion: version.Version{Major: 10, Minor: 0, Patch: 22621, Build: "1234"},
			wantBuild:   "22621",
		},
		{
			name:        "no version token defaults to 10",
			input:       "Windows",
			wantName:    "Windows 10",
			wantVersion: version.Version{Major: 10},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := OSFromString(tc.input)
			assert.Equal(t, OSWindows, got.Family)
			assert.Equal(t, tc.wantName, got.Name)
			assert.Equal(t, tc.wantVersion, got.Version)
			assert.Equal(t, tc.wantEdition, got.Edition)
			assert.Equal(t, tc.wantBuild, got.BuildNumber)
		})
	}
}

func TestOSFromString_MacOS(t *testing.T) {
	tests := []struct {
		input    string
		wantName string
	}{
		{"macOS 15.1", "macOS Sequoia"},
		{"macOS 14.2.1", "macOS Sonoma"},
		{"Mac OS 13.6", "macOS Ventura"},
		{"macOS 12.7", "macOS Monterey"},
		{"Darwin 11.0", "macOS Big Sur"},
		{"macOS 10.15.7", "macOS"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got := OSFromString(tc.input)
			assert.Equal(t, OSMacOS, got.Family)
			assert.Equal(t, tc.wantName, got.Name)
		})
	}
}

func TestOSFromString_Mobile(t *testing.T) {
	ios := OSFromString("iOS 17.4.1")
	assert.Equal(t, OSIOS, ios.Family)
	assert.Equal(t, "iOS 17", ios.Name)
	assert.Equal(t, version.Version{Major: 17, Minor: 4, Patch: 1}, ios.Version)

	iphone := OSFromString("iPhone OS 16.2")
	assert.Equal(t, OSIOS, iphone.Family)
	assert.Equal(t, "iOS 16", iphone.Name)

	android := OSFromString("Android 14.0")
	assert.Equal(t, OSAndroid, android.Family)
	assert.Equal(t, "Android 14", android.Name)
}

func TestOSFromString_Linux(t *testing.T) {
	got := OSFromString("Ubuntu 22.04.3")
	assert.Equal(t, OSLinux, got.Family)
	assert.Equal(t, "Linux", got.Name)
	assert.Equal(t, version.Version{Major: 22, Minor: 4, Patch: 3}, got.Version)
}

func TestOSFromString_Unknown(t *testing.T) {
	got := OSFromString("TempleOS 5.03")
	assert.Equal(t, OSUnknown, got.Family)
	assert.Equal(t, "TempleOS 5.03", got.Name)
	assert.True(t, got.Version.IsZero())
}

func TestOSFromString_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   "} {
		got := OSFromString(input)
		assert.Equal(t, OSUnknown, got.Family)
		assert.Equal(t, "Unknown", got.Name)
		assert.True(t, got.Version.IsZero())
	}
}

func TestParseOSFamily(t *testing.T) {
	family, ok := ParseOSFamily("Windows")
	assert.True(t, ok)
	assert.Equal(t, OSWindows, family)

	family, ok = ParseOSFamily("mac os")
	assert.True(t, ok)
	assert.Equal(t, OSMacOS, family)

	_, ok = ParseOSFamily("solaris")
	assert.False(t, ok)
}

func TestOSInfo_String(t *testing.T) {
	info := OSFromString("Windows Pro 10.0.19045")
	assert.Equal(t, "Windows 10 Pro 10.0.19045 (19045)", info.String())
}
