package checks

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/thiagokokada/betarelease/internal/git"
	"github.com/thiagokokada/betarelease/internal/initfile"
	"github.com/thiagokokada/betarelease/internal/version"
)

const (
	DefaultTrunk   = "master"
	DefaultVarName = "__version__"
)

// Checker evaluates the precondition rules for a transition.
type Checker struct {
	Trunk  string // trunk branch, DefaultTrunk when empty
	Remote string // explicitly selected remote, empty for none

	IncludeUntracked bool   // untracked files make the tree dirty
	CollectAll       bool   // keep evaluating after the first failure
	VarName          string // version variable, DefaultVarName when empty

	Logger *slog.Logger
}

// Input is what a single evaluation looks at.
type Input struct {
	State *git.State
	Mode  version.Mode
	// InitFile is the absolute path of the version file.
	InitFile string
}

// Report is the outcome of Check. Current and Next are only meaningful when
// HasVersion is set.
type Report struct {
	Mode       version.Mode    `json:"mode" yaml:"mode"`
	Branch     string          `json:"branch" yaml:"branch"`
	InitFile   string          `json:"initfile" yaml:"initfile"`
	HasVersion bool            `json:"-" yaml:"-"`
	Current    version.Version `json:"-" yaml:"-"`
	Next       version.Version `json:"-" yaml:"-"`
	FirstBeta  bool            `json:"first_beta" yaml:"first_beta"`
	Failures   []Failure       `json:"failures" yaml:"failures"`

	// Version and NextRef mirror Current and Target for encoded reports.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	NextRef string `json:"next_ref,omitempty" yaml:"next_ref,omitempty"`
}

// OK reports whether no rule failed.
func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

// Err returns a *Error carrying the failures, or nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	return &Error{Failures: r.Failures}
}

// Target is the ref the transition would create: the beta branch for
// micro/minor/major and the release tag for release.
func (r *Report) Target() string {
	if !r.HasVersion {
		return ""
	}
	if r.Mode == version.ModeRelease {
		return git.ReleaseTagName(r.Current)
	}
	return git.BetaBranchName(r.Next)
}

// evaluation is the per-call context shared by the rules.
type evaluation struct {
	*Checker
	in         Input
	current    git.RefName
	curver     version.Version
	hasVersion bool
}

type rule struct {
	name string
	fn   func(*evaluation) []Failure
}

// rules run in this order; fail-fast mode stops at the first failure.
var rules = []rule{
	{name: "initfile", fn: (*evaluation).checkInitFile},
	{name: "branch-origin", fn: (*evaluation).checkBranchOrigin},
	{name: "single-remote", fn: (*evaluation).checkSingleRemote},
	{name: "clean-tree", fn: (*evaluation).checkCleanTree},
	{name: "version-collision", fn: (*evaluation).checkVersionCollision},
	{name: "release-collision", fn: (*evaluation).checkReleaseCollision},
	{name: "branch-version-match", fn: (*evaluation).checkBranchVersionMatch},
	{name: "sync", fn: (*evaluation).checkSync},
}

// Check runs every rule against in. It never mutates the repository.
func (c *Checker) Check(in Input) *Report {
	e := &evaluation{Checker: c.withDefaults(), in: in}
	e.current = in.State.Current(e.Trunk)
	e.curver, e.hasVersion = e.readVersion()

	report := &Report{
		Mode:       in.Mode,
		Branch:     in.State.Branch,
		InitFile:   in.InitFile,
		HasVersion: e.hasVersion,
		Current:    e.curver,
		FirstBeta:  !in.State.HasBetaBranches(),
		Failures:   []Failure{},
	}
	if e.hasVersion {
		report.Next = version.Next(e.curver, in.Mode, report.FirstBeta)
		report.Version = e.curver.String()
		report.NextRef = report.Target()
	}

	for _, r := range rules {
		failures := r.fn(e)
		for _, f := range failures {
			e.Logger.Debug("precondition failed",
				slog.String("rule", r.name),
				slog.String("kind", string(f.Kind)),
				slog.String("message", f.Message),
			)
		}
		report.Failures = append(report.Failures, failures...)
		if len(report.Failures) > 0 && !e.CollectAll {
			report.Failures = report.Failures[:1]
			break
		}
	}
	return report
}

func (c *Checker) withDefaults() *Checker {
	out := *c
	if out.Trunk == "" {
		out.Trunk = DefaultTrunk
	}
	if out.VarName == "" {
		out.VarName = DefaultVarName
	}
	if out.Logger == nil {
		out.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &out
}

func (e *evaluation) readVersion() (version.Version, bool) {
	raw, err := initfile.ReadVar(e.in.InitFile, e.VarName)
	if err != nil {
		return version.Version{}, false
	}
	v, err := version.Parse(raw)
	if err != nil {
		return version.Version{}, false
	}
	return v, true
}

// displayInitFile is the init file path relative to the repository root when
// possible.
func (e *evaluation) displayInitFile() string {
	if e.in.State != nil && e.in.State.Root != "" {
		if rel, err := filepath.Rel(e.in.State.Root, e.in.InitFile); err == nil && !filepath.IsAbs(rel) {
			return filepath.ToSlash(rel)
		}
	}
	return e.in.InitFile
}

func (e *evaluation) initFileExists() bool {
	info, err := os.Stat(e.in.InitFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			e.Logger.Debug("stat init file", slog.String("path", e.in.InitFile), slog.Any("error", err))
		}
		return false
	}
	return !info.IsDir()
}

func initFileExplain(varName string) string {
	return fmt.Sprintf("An init file (eg. __init__.py) should be defined containing\n"+
		"a %s = \"<major>.<minor>.<micro>\" version", varName)
}
