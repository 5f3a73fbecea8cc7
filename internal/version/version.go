// Package version implements the MAJOR.MINOR.MICRO version used by beta
// branches, release tags and the init file.
package version

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrMalformedVersion = errors.New("malformed version")

// Version is an immutable MAJOR.MINOR.MICRO triple.
type Version struct {
	Major uint64
	Minor uint64
	Micro uint64
}

// Parse reads a dotted version with exactly three numeric components.
// Components are read as base-10 integers, so "01.2.3" parses as 1.2.3.
// A component must stay below math.MaxUint64 so that Bump cannot overflow.
func Parse(text string) (Version, error) {
	parts := strings.Split(text, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("%w: %q: want MAJOR.MINOR.MICRO", ErrMalformedVersion, text)
	}
	var nums [3]uint64
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q: component %q is not a non-negative integer", ErrMalformedVersion, text, p)
		}
		if n == math.MaxUint64 {
			return Version{}, fmt.Errorf("%w: %q: component %q is too large", ErrMalformedVersion, text, p)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Micro: nums[2]}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(text string) Version {
	v, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Micro)
}

// Compare returns -1, 0 or +1.
func (v Version) Compare(other Version) int {
	switch {
	case v.Major != other.Major:
		return cmpUint(v.Major, other.Major)
	case v.Minor != other.Minor:
		return cmpUint(v.Minor, other.Minor)
	default:
		return cmpUint(v.Micro, other.Micro)
	}
}

func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

func cmpUint(a, b uint64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// Bump returns the version following v for mode. Any mode that is not
// ModeMajor or ModeMinor bumps the micro component, including ModeRelease
// and unknown values.
func (v Version) Bump(mode Mode) Version {
	switch mode {
	case ModeMajor:
		return Version{Major: v.Major + 1}
	case ModeMinor:
		return Version{Major: v.Major, Minor: v.Minor + 1}
	default:
		return Version{Major: v.Major, Minor: v.Minor, Micro: v.Micro + 1}
	}
}

// Next is the version of the beta branch created from a trunk at cur.
// The first beta branch of a repository keeps the trunk version.
func Next(cur Version, mode Mode, firstBeta bool) Version {
	if firstBeta {
		return cur
	}
	return cur.Bump(mode)
}
