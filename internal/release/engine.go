package release

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/thiagokokada/betarelease/internal/checks"
	"github.com/thiagokokada/betarelease/internal/git"
	"github.com/thiagokokada/betarelease/internal/git/backend"
	"github.com/thiagokokada/betarelease/internal/initfile"
	"github.com/thiagokokada/betarelease/internal/version"
)

var (
	// ErrBackend wraps every failure of a repository operation.
	ErrBackend = errors.New("backend error")
	// ErrOutsideRepository is returned when the init file is not inside the
	// working tree.
	ErrOutsideRepository = errors.New("init file is outside the repository")
)

type Options struct {
	Trunk  string
	Remote string

	DryRun           bool
	CollectAll       bool
	IncludeUntracked bool
	VarName          string

	Logger *slog.Logger
}

// Plan is a validated transition that has not been applied yet.
type Plan struct {
	Mode      version.Mode
	From      Stage
	To        Stage
	Current   version.Version
	Version   version.Version // version of the created branch or tag
	Ref       string          // beta/<Version> or release/<Version>
	Source    string          // commit the transition starts from
	FirstBeta bool
	InitFile  string // repository-relative, slash separated
	Message   string // commit or tag message
}

// Result describes an applied (or, under dry-run, simulated) transition.
type Result struct {
	Plan
	DryRun    bool
	Committed bool
	Commit    string // commit the new ref points at; empty under dry-run
	Preview   string // unified diff of the init file rewrite under dry-run
}

// Engine applies transitions to the repository behind a backend.
type Engine struct {
	backend backend.Backend
	opts    Options
	log     *slog.Logger
}

func New(b backend.Backend, opts Options) *Engine {
	if opts.Trunk == "" {
		opts.Trunk = checks.DefaultTrunk
	}
	if opts.VarName == "" {
		opts.VarName = checks.DefaultVarName
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{backend: b, opts: opts, log: log}
}

func (e *Engine) checker() *checks.Checker {
	return &checks.Checker{
		Trunk:            e.opts.Trunk,
		Remote:           e.opts.Remote,
		IncludeUntracked: e.opts.IncludeUntracked,
		CollectAll:       e.opts.CollectAll,
		VarName:          e.opts.VarName,
		Logger:           e.log,
	}
}

// Snapshot reads the repository state. A repository without any branch is
// reported as a *checks.Error.
func (e *Engine) Snapshot() (*git.State, error) {
	state, err := git.Snapshot(e.backend)
	if errors.Is(err, backend.ErrNoBranch) {
		return nil, &checks.Error{Failures: []checks.Failure{checks.NoBranch()}}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackend, err)
	}
	e.log.Debug("repository state",
		slog.String("root", state.Root),
		slog.String("branch", state.Branch),
		slog.Int("local_branches", len(state.LocalBranches)),
		slog.Int("remotes", len(state.Remotes)),
		slog.Int("tags", len(state.Tags)),
	)
	return state, nil
}

// Check evaluates the preconditions for mode without touching the repository.
func (e *Engine) Check(mode version.Mode, initFile string) (*checks.Report, *git.State, error) {
	state, err := e.Snapshot()
	if err != nil {
		return nil, nil, err
	}
	report := e.checker().Check(checks.Input{State: state, Mode: mode, InitFile: initFile})
	return report, state, nil
}

// Prepare validates the preconditions and computes the transition. Any
// precondition failure is returned as a *checks.Error before anything is
// written.
func (e *Engine) Prepare(mode version.Mode, initFile string) (*Plan, error) {
	report, state, err := e.Check(mode, initFile)
	if err != nil {
		return nil, err
	}
	if err := report.Err(); err != nil {
		return nil, err
	}
	rel, err := repoRelative(state.Root, initFile)
	if err != nil {
		return nil, err
	}

	from := StageOf(state.Current(e.opts.Trunk))
	to, err := from.Transition(mode)
	if err != nil {
		return nil, err
	}
	plan := &Plan{
		Mode:      mode,
		From:      from,
		To:        to,
		Current:   report.Current,
		FirstBeta: report.FirstBeta,
		InitFile:  rel,
	}
	if mode == version.ModeRelease {
		plan.Version = report.Current
		plan.Ref = git.ReleaseTagName(report.Current)
		plan.Message = "release " + report.Current.String()
		plan.Source = state.Head
		if hash, ok := state.LocalBranches[state.Branch]; ok {
			plan.Source = hash
		}
	} else {
		plan.Version = report.Next
		plan.Ref = git.BetaBranchName(report.Next)
		plan.Message = "beta release " + report.Next.String()
		plan.Source = state.Head
	}
	return plan, nil
}

// Run validates and applies the transition for mode. Under DryRun nothing is
// written; every step is logged and the init file rewrite is returned as a
// diff.
func (e *Engine) Run(mode version.Mode, initFile string) (*Result, error) {
	plan, err := e.Prepare(mode, initFile)
	if err != nil {
		return nil, err
	}
	res := &Result{Plan: *plan, DryRun: e.opts.DryRun}
	if mode == version.ModeRelease {
		return res, e.release(res)
	}
	return res, e.beta(res, initFile)
}

func (e *Engine) beta(res *Result, initFile string) error {
	if res.FirstBeta {
		e.log.Info("creating first version branch",
			slog.String("branch", res.Ref),
			slog.String("version", res.Version.String()),
			slog.String("from", e.opts.Trunk),
		)
	} else {
		e.log.Info("creating new version branch",
			slog.String("branch", res.Ref),
			slog.String("version", res.Version.String()),
			slog.String("from", e.opts.Trunk),
			slog.String("current", res.Current.String()),
		)
	}
	e.log.Info("updating init file",
		slog.String("path", res.InitFile),
		slog.String("from", res.Current.String()),
		slog.String("to", res.Version.String()),
	)

	if e.opts.DryRun {
		diff, err := initfile.Preview(initFile, res.InitFile, e.opts.VarName, res.Version.String())
		if err != nil {
			return fmt.Errorf("preview %s: %w", res.InitFile, err)
		}
		res.Preview = diff
		e.log.Info("committing (skip)", slog.String("message", res.Message))
		e.log.Info("creating branch (skip)", slog.String("branch", res.Ref))
		e.log.Info("switching branch (skip)", slog.String("branch", res.Ref))
		return nil
	}

	old, err := initfile.WriteVar(initFile, e.opts.VarName, res.Version.String(), false)
	if err != nil {
		return fmt.Errorf("update %s: %w", res.InitFile, err)
	}

	res.Commit = res.Source
	if old != res.Version.String() {
		e.log.Info("committing", slog.String("message", res.Message))
		hash, err := e.backend.Commit(res.Message, []string{res.InitFile})
		if err != nil {
			return fmt.Errorf("%w: commit %s: %w", ErrBackend, res.InitFile, err)
		}
		e.log.Debug("created commit", slog.String("hash", hash))
		res.Commit = hash
		res.Committed = true
	} else {
		e.log.Info("init file unchanged, nothing to commit", slog.String("version", old))
	}

	e.log.Info("creating branch", slog.String("branch", res.Ref), slog.String("hash", res.Commit))
	if err := e.backend.CreateBranch(res.Ref, res.Commit); err != nil {
		return fmt.Errorf("%w: create branch %s: %w", ErrBackend, res.Ref, err)
	}
	e.log.Info("switching branch", slog.String("branch", res.Ref))
	if err := e.backend.SwitchBranch(res.Ref); err != nil {
		return fmt.Errorf("%w: switch to %s: %w", ErrBackend, res.Ref, err)
	}
	return nil
}

func (e *Engine) release(res *Result) error {
	e.log.Info("releasing",
		slog.String("version", res.Version.String()),
		slog.String("tag", res.Ref),
		slog.String("hash", res.Source),
	)
	if e.opts.DryRun {
		e.log.Info("creating tag (skip)", slog.String("tag", res.Ref))
		return nil
	}
	if err := e.backend.CreateTag(res.Ref, res.Source, res.Message); err != nil {
		return fmt.Errorf("%w: create tag %s: %w", ErrBackend, res.Ref, err)
	}
	res.Commit = res.Source
	return nil
}

// repoRelative returns path relative to root in slash form. Both sides are
// resolved through symlinks when a plain comparison leaves the root.
func repoRelative(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil || escapes(rel) {
		realRoot, rerr := filepath.EvalSymlinks(root)
		realDir, derr := filepath.EvalSymlinks(filepath.Dir(path))
		if rerr != nil || derr != nil {
			return "", fmt.Errorf("%w: %s is not inside %s", ErrOutsideRepository, path, root)
		}
		rel, err = filepath.Rel(realRoot, filepath.Join(realDir, filepath.Base(path)))
		if err != nil || escapes(rel) {
			return "", fmt.Errorf("%w: %s is not inside %s", ErrOutsideRepository, path, root)
		}
	}
	return filepath.ToSlash(rel), nil
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel)
}
