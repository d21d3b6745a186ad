// Package support tracks vendor end-of-support lifecycles for operating
// system versions.
package support

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kneutral-org/compliance-alerting/internal/platform"
	"github.com/kneutral-org/compliance-alerting/internal/version"
)

// DefaultWarningDays is the window before end of support in which a
// version counts as approaching.
const DefaultWarningDays = 90

// Record is a vendor end-of-support entry. It applies to every device of
// the same platform family running at least MinimumVersion.
type Record struct {
	ID             uuid.UUID         `json:"id"`
	Platform       platform.OSFamily `json:"platform"`
	VersionPattern string            `json:"versionPattern"`
	MinimumVersion version.Version   `json:"minimumVersion"`
	EndOfSupportAt time.Time         `json:"endOfSupportAt"`
	Notes          string            `json:"notes,omitempty"`
}

// NewRecord creates a vendor support record.
func NewRecord(family platform.OSFamily, versionPattern string, minimum version.Version, endOfSupport time.Time, notes string) *Record {
	return &Record{
		ID:             uuid.New(),
		Platform:       family,
		VersionPattern: versionPattern,
		MinimumVersion: minimum,
		EndOfSupportAt: endOfSupport,
		Notes:          notes,
	}
}

// DaysUntilEndOfSupportAt returns whole days from now's date to the end of
// support date. The result is negative once support has lapsed.
func (r *Record) DaysUntilEndOfSupportAt(now time.Time) int {
	return int(dateOf(r.EndOfSupportAt).Sub(dateOf(now)).Hours() / 24)
}

// DaysUntilEndOfSupport is DaysUntilEndOfSupportAt at the current time.
func (r *Record) DaysUntilEndOfSupport() int {
	return r.DaysUntilEndOfSupportAt(time.Now().UTC())
}

// IsApproachingEndOfSupportAt reports whether the end of support date is
// within warningDays of now but not yet reached.
func (r *Record) IsApproachingEndOfSupportAt(now time.Time, warningDays int) bool {
	days := r.DaysUntilEndOfSupportAt(now)
	return days > 0 && days <= warningDays
}

// IsEndOfSupportAt reports whether support has lapsed as of now's date.
func (r *Record) IsEndOfSupportAt(now time.Time) bool {
	return !dateOf(now).Before(dateOf(r.EndOfSupportAt))
}

// FindApplicable returns the most specific record applying to the given
// OS: same platform family, minimum version at or below the OS version,
// highest minimum version winning. Ties keep the earlier input record.
// Returns nil when no record applies.
func FindApplicable(os platform.OSInfo, records []*Record) *Record {
	var applicable []*Record
	for _, r := range records {
		if r.Platform == os.Family && os.Version.AtLeast(r.MinimumVersion) {
			applicable = append(applicable, r)
		}
	}
	if len(applicable) == 0 {
		return nil
	}

	sort.SliceStable(applicable, func(i, j int) bool {
		return applicable[j].MinimumVersion.Less(applicable[i].MinimumVersion)
	})
	return applicable[0]
}

// dateOf truncates a timestamp to its UTC calendar date.
func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
