package support

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kneutral-org/compliance-alerting/internal/platform"
	"github.com/kneutral-org/compliance-alerting/internal/version"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRecord_DaysUntilEndOfSupportAt(t *testing.T) {
	r := NewRecord(platform.OSWindows, "Windows 10 22H2",
		version.MustParse("10.0.19044"), date(2025, time.October, 14), "")

	now := date(2025, time.August, 1)

	assert.Equal(t, 74, r.DaysUntilEndOfSupportAt(now))
	assert.True(t, r.IsApproachingEndOfSupportAt(now, 90))
	assert.False(t, r.IsEndOfSupportAt(now))
}

func TestRecord_TimeOfDayIgnored(t *testing.T) {
	r := NewRecord(platform.OSWindows, "", version.MustParse("10.0"),
		date(2025, time.October, 14), "")

	lateEvening := time.Date(2025, time.October, 13, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, 1, r.DaysUntilEndOfSupportAt(lateEvening))
	assert.False(t, r.IsEndOfSupportAt(lateEvening))

	midnight := date(2025, time.October, 14)
	assert.Equal(t, 0, r.DaysUntilEndOfSupportAt(midnight))
	assert.True(t, r.IsEndOfSupportAt(midnight))
}

func TestRecord_Expired(t *testing.T) {
	r := NewRecord(platform.OSWindows, "", version.MustParse("10.0"),
		date(2025, time.January, 1), "")

	now := date(2025, time.March, 1)
	assert.Negative(t, r.DaysUntilEndOfSupportAt(now))
	assert.True(t, r.IsEndOfSupportAt(now))
	assert.False(t, r.IsApproachingEndOfSupportAt(now, 90), "lapsed support is not approaching")
}

func TestFindApplicable(t *testing.T) {
	win10 := NewRecord(platform.OSWindows, "Windows 10",
		version.MustParse("10.0.10240"), date(2025, time.October, 14), "")
	win10_22h2 := NewRecord(platform.OSWindows, "Windows 10 22H2",
		version.MustParse("10.0.19045"), date(2025, time.October, 14), "")
	win11 := NewRecord(platform.OSWindows, "Windows 11",
		version.MustParse("10.0.22000"), date(2026, time.October, 13), "")
	sonoma := NewRecord(platform.OSMacOS, "macOS Sonoma",
		version.MustParse("14.0"), date(2026, time.September, 26), "")

	records := []*Record{win10, win10_22h2, win11, sonoma}

	tests := []struct {
		name string
		os   platform.OSInfo
		want *Record
	}{
		{
			name: "highest minimum version wins",
			os:   platform.OSInfo{Family: platform.OSWindows, Version: version.MustParse("10.0.19045")},
			want: win10_22h2,
		},
		{
			name: "windows 11 build",
			os:   platform.OSInfo{Family: platform.OSWindows, Version: version.MustParse("10.0.22631")},
			want: win11,
		},
		{
			name: "older build falls back to broader record",
			os:   platform.OSInfo{Family: platform.OSWindows, Version: version.MustParse("10.0.17763")},
			want: win10,
		},
		{
			name: "platform family filtered",
			os:   platform.OSInfo{Family: platform.OSMacOS, Version: version.MustParse("14.3")},
			want: sonoma,
		},
		{
			name: "below all minimums",
			os:   platform.OSInfo{Family: platform.OSMacOS, Version: version.MustParse("13.0")},
			want: nil,
		},
		{
			name: "no records for family",
			os:   platform.OSInfo{Family: platform.OSLinux, Version: version.MustParse("22.4")},
			want: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FindApplicable(tc.os, records)
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tc.want.ID, got.ID)
		})
	}
}

func TestFindApplicable_StableTieBreak(t *testing.T) {
	first := NewRecord(platform.OSWindows, "first",
		version.MustParse("10.0.19045"), date(2025, time.October, 14), "")
	second := NewRecord(platform.OSWindows, "second",
		version.MustParse("10.0.19045"), date(2026, time.October, 14), "")

	os := platform.OSInfo{Family: platform.OSWindows, Version: version.MustParse("10.0.19045")}

	got := FindApplicable(os, []*Record{first, second})
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID, "equal minimum versions keep input order")
}
