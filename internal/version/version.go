// Package version provides parsing and comparison of dotted version strings,
// including Windows-style four-part build versions.
package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrNegativeComponent is returned when a version is constructed with a
// negative numeric component.
var ErrNegativeComponent = errors.New("version component cannot be negative")

// versionPattern accepts 1-4 dot-separated numeric groups, an optional
// -prerelease suffix and an optional +build suffix. A fourth numeric group
// (the Windows revision) is captured as build metadata.
var versionPattern = regexp.MustCompile(
	`^(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:\.(\d+))?(?:-([0-9A-Za-z.\-]+))?(?:\+([0-9A-Za-z.\-]+))?$`)

// Version is an immutable version value. Ordering compares major, minor and
// patch numerically, then treats a release as newer than any pre-release of
// the same triple. Build metadata is ignored for ordering but participates
// in equality.
type Version struct {
	Major      int
	Minor      int
	Patch      int
	PreRelease string
	Build      string
}

// New constructs a version from numeric components. Negative components are
// a caller bug and are rejected.
func New(major, minor, patch int) (Version, error) {
	if major < 0 || minor < 0 || patch < 0 {
		return Version{}, ErrNegativeComponent
	}
	return Version{Major: major, Minor: minor, Patch: patch}, nil
}

// MustNew is like New but panics on invalid components. Intended for
// constants and test fixtures.
func MustNew(major, minor, patch int) Version {
	v, err := New(major, minor, patch)
	if err != nil {
		panic(err)
	}
	return v
}

// Parse parses a dotted version string. It returns ok=false on any syntactic
// mismatch; callers must treat that as "unknown version", never as a fatal
// error.
func Parse(text string) (Version, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Version{}, false
	}

	m := versionPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return Version{}, false
	}

	v := Version{}
	v.Major, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		v.Minor, _ = strconv.Atoi(m[2])
	}
	if m[3] != "" {
		v.Patch, _ = strconv.Atoi(m[3])
	}
	v.PreRelease = m[5]
	v.Build = m[6]
	if m[4] != "" {
		// Windows-style X.Y.Z.W: the fourth part is the revision, stored as
		// build metadata rather than a fifth semantic field.
		v.Build = m[4]
	}

	return v, true
}

// MustParse parses a version string and panics on failure. Intended for
// seed data and test fixtures.
func MustParse(text string) Version {
	v, ok := Parse(text)
	if !ok {
		panic(fmt.Sprintf("invalid version string: %q", text))
	}
	return v
}

// Compare returns -1, 0 or 1 ordering v against other.
func (v Version) Compare(other Version) int {
	if c := compareInt(v.Major, other.Major); c != 0 {
		return c
	}
	if c := compareInt(v.Minor, other.Minor); c != 0 {
		return c
	}
	if c := compareInt(v.Patch, other.Patch); c != 0 {
		return c
	}

	// A release sorts after any pre-release of the same triple.
	switch {
	case v.PreRelease == "" && other.PreRelease != "":
		return 1
	case v.PreRelease != "" && other.PreRelease == "":
		return -1
	default:
		return strings.Compare(v.PreRelease, other.PreRelease)
	}
}

// Less reports whether v orders strictly before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// AtLeast reports whether v orders at or after other.
func (v Version) AtLeast(other Version) bool {
	return v.Compare(other) >= 0
}

// Equal reports value equality. Unlike ordering, equality includes build
// metadata: two versions differing only in build are not equal.
func (v Version) Equal(other Version) bool {
	return v == other
}

// IsZero reports whether v is the zero version 0.0.0 with no metadata.
func (v Version) IsZero() bool {
	return v == Version{}
}

func (v Version) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.PreRelease != "" {
		b.WriteByte('-')
		b.WriteString(v.PreRelease)
	}
	if v.Build != "" {
		b.WriteByte('+')
		b.WriteString(v.Build)
	}
	return b.String()
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
