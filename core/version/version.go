// Package version parses schema versions and decides whether a
// configuration written against one version can be read by a schema of
// another.
package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Version is a MAJOR.MINOR.PATCH triple.
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64
}

// Parse reads a version string. Missing minor and patch components default
// to zero, so "1" and "1.2" are accepted. Pre-release and build metadata are
// rejected.
func Parse(s string) (Version, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	if v.Prerelease() != "" || v.Metadata() != "" {
		return Version{}, fmt.Errorf("invalid version %q: pre-release and build metadata are not supported", s)
	}
	return Version{Major: v.Major(), Minor: v.Minor(), Patch: v.Patch()}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or 1.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return cmp(v.Major, o.Major)
	case v.Minor != o.Minor:
		return cmp(v.Minor, o.Minor)
	default:
		return cmp(v.Patch, o.Patch)
	}
}

// IsZero reports whether v is 0.0.0.
func (v Version) IsZero() bool {
	return v == Version{}
}

func cmp(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Compatibility is the outcome of a negotiation.
type Compatibility int

const (
	Incompatible Compatibility = iota
	Compatible
)

func (c Compatibility) String() string {
	if c == Compatible {
		return "compatible"
	}
	return "incompatible"
}

// Negotiate decides whether a document declaring version declared may be
// validated by a schema at version schema. The majors must match and the
// document may not need a newer minor than the schema knows. Patch levels
// never affect the outcome.
func Negotiate(declared, schema Version) Compatibility {
	if declared.Major != schema.Major {
		return Incompatible
	}
	if declared.Minor > schema.Minor {
		return Incompatible
	}
	return Compatible
}

// Assumed is the version taken for a document that declares none: the
// oldest release of the schema's major line.
func Assumed(schema Version) Version {
	return Version{Major: schema.Major}
}
