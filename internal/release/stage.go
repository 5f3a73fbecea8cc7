// Package release drives a working tree through the trunk -> beta -> released
// lifecycle.
package release

import (
	"fmt"

	"github.com/thiagokokada/betarelease/internal/git"
	"github.com/thiagokokada/betarelease/internal/version"
)

// Stage is where a checkout sits in the lifecycle.
type Stage uint8

const (
	StageUnknown Stage = iota
	StageTrunk
	StageBeta
	StageReleased
)

func (s Stage) String() string {
	switch s {
	case StageTrunk:
		return "on-trunk"
	case StageBeta:
		return "on-beta"
	case StageReleased:
		return "released"
	default:
		return "unknown"
	}
}

// StageOf maps a classified branch to its stage.
func StageOf(ref git.RefName) Stage {
	switch ref.Class {
	case git.ClassTrunk:
		return StageTrunk
	case git.ClassBeta:
		return StageBeta
	default:
		return StageUnknown
	}
}

// Transition returns the stage reached from s with mode. Released is terminal.
func (s Stage) Transition(mode version.Mode) (Stage, error) {
	switch {
	case s == StageTrunk && mode.IsBeta():
		return StageBeta, nil
	case s == StageBeta && mode == version.ModeRelease:
		return StageReleased, nil
	default:
		return StageUnknown, fmt.Errorf("no %s transition from %s", mode, s)
	}
}
