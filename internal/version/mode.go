package version

import (
	"fmt"
	"strings"
)

// Mode selects the transition requested by the operator.
type Mode string

const (
	ModeMicro   Mode = "micro"
	ModeMinor   Mode = "minor"
	ModeMajor   Mode = "major"
	ModeRelease Mode = "release"
)

var Modes = []Mode{ModeMicro, ModeMinor, ModeMajor, ModeRelease}

func ParseMode(raw string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("invalid mode %q (choose from %s)", raw, ModeNames())
}

// ModeNames lists the accepted modes, comma separated.
func ModeNames() string {
	names := make([]string, len(Modes))
	for i, m := range Modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// IsBeta reports whether m creates a beta branch from the trunk.
func (m Mode) IsBeta() bool {
	return m == ModeMicro || m == ModeMinor || m == ModeMajor
}

func (m Mode) String() string {
	return string(m)
}
