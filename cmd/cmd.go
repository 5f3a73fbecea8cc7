package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/betarelease/internal/checks"
	"github.com/thiagokokada/betarelease/internal/config"
	"github.com/thiagokokada/betarelease/internal/ghref"
	"github.com/thiagokokada/betarelease/internal/git/backend"
	"github.com/thiagokokada/betarelease/internal/release"
	"github.com/thiagokokada/betarelease/internal/version"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// usageError marks bad arguments or flags; it maps to exit status 2.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// silentError carries an exit status whose diagnostics were already printed.
type silentError struct {
	code int
}

func (e silentError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// Run executes the command line and returns the process exit status.
func Run() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	if args == nil {
		args = []string{}
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	err := root.Execute()
	return report(err, root, stderr)
}

func report(err error, root *cobra.Command, stderr io.Writer) int {
	if err == nil {
		return exitOK
	}
	var silent silentError
	if errors.As(err, &silent) {
		return silent.code
	}
	var failed *checks.Error
	if errors.As(err, &failed) {
		printFailures(stderr, failed.Failures)
		return exitUsage
	}
	var usage usageError
	if errors.As(err, &usage) {
		fmt.Fprintf(stderr, "betarelease: %v\n", usage.err)
		fmt.Fprint(stderr, root.UsageString())
		return exitUsage
	}
	if errors.Is(err, ghref.ErrUnrecognizedRef) || errors.Is(err, version.ErrMalformedVersion) ||
		errors.Is(err, release.ErrOutsideRepository) {
		fmt.Fprintf(stderr, "betarelease: %v\n", err)
		return exitUsage
	}
	fmt.Fprintf(stderr, "betarelease: %v\n", err)
	printCauses(stderr, err, 1)
	return exitFailure
}

// printCauses writes the wrapped error chain below err, one cause per line,
// indented by depth.
func printCauses(w io.Writer, err error, depth int) {
	var causes []error
	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		causes = x.Unwrap()
	case interface{ Unwrap() error }:
		if c := x.Unwrap(); c != nil {
			causes = []error{c}
		}
	}
	for _, c := range causes {
		fmt.Fprintf(w, "%scaused by: %v\n", strings.Repeat("  ", depth), c)
		printCauses(w, c, depth+1)
	}
}

func printFailures(w io.Writer, failures []checks.Failure) {
	for i, f := range failures {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, f.String())
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "betarelease [flags] <micro|minor|major|release> <initfile>",
		Short: "Manage beta branches and release tags",
		Long: `betarelease moves a repository through the beta/release lifecycle.

With micro, minor or major it bumps the version in the init file on the
trunk branch and creates the matching beta/<version> branch. With release
it tags the current beta branch as release/<version>.`,
		Args:          modeArgs(2),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, args, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err: err}
	})

	pf := root.PersistentFlags()
	pf.String(config.KeyConfig, "", "config file (default: <workdir>/.betarelease.yaml)")
	pf.StringP(config.KeyWorkDir, "w", ".", "git working dir")
	pf.String(config.KeyMaster, "master", "trunk branch new beta branches start from")
	pf.String(config.KeyRemote, "", "remote to use when more than one is configured")
	pf.BoolP(config.KeyDryRun, "n", false, "log the steps without changing anything")
	pf.BoolP(config.KeyVerbose, "v", false, "enable verbose logging")
	pf.Bool(config.KeyUntracked, false, "count untracked files as local modifications")
	pf.String(config.KeyVar, "__version__", "version variable in the init file")
	pf.String(config.KeyHashVar, "__hash__", "commit hash variable written by gh-version")
	pf.String(config.KeyBackend, string(backend.KindNative), "git backend: native or git")
	pf.String(config.KeyColor, "auto", "color output: auto, always or never")
	pf.String(config.KeyTheme, "auto", "diff color theme: auto, light or dark")
	root.Flags().Bool(config.KeyReportAll, false, "report every failed check instead of the first one")

	root.AddCommand(
		newCheckCommand(stdout, stderr),
		newGHVersionCommand(stdout, stderr),
		newVersionCommand(stdout, stderr),
	)
	return root
}

// modeArgs validates <mode> [<initfile>] positional arguments.
func modeArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usageError{err: fmt.Errorf("accepts %d arg(s), received %d", n, len(args))}
		}
		if _, err := version.ParseMode(args[0]); err != nil {
			return usageError{err: err}
		}
		return nil
	}
}

// environment is what every subcommand needs once flags are parsed.
type environment struct {
	cfg      *config.Config
	log      *slog.Logger
	backend  backend.Backend
	workdir  string
	initFile string
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, usageError{err: err}
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	if cfg.DryRun {
		log = log.With(slog.Bool("dry_run", true))
	}
	return log
}

func setup(cmd *cobra.Command, initFile string, stderr io.Writer) (*environment, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := newLogger(stderr, cfg)
	if cfg.File != "" {
		log.Debug("using config file", slog.String("path", cfg.File))
	}
	workdir, err := cfg.ResolveWorkDir()
	if err != nil {
		return nil, err
	}
	log.Debug("using working dir", slog.String("path", workdir))

	b, err := backend.Open(cfg.Backend, workdir)
	if err != nil {
		if errors.Is(err, backend.ErrNotRepository) {
			return nil, &checks.Error{Failures: []checks.Failure{checks.NotRepository(workdir)}}
		}
		return nil, err
	}
	env := &environment{cfg: cfg, log: log, backend: b, workdir: workdir}
	if initFile != "" {
		if env.initFile, err = cfg.ResolveInitFile(initFile); err != nil {
			return nil, err
		}
	}
	return env, nil
}

func (env *environment) engine(collectAll bool) *release.Engine {
	return release.New(env.backend, release.Options{
		Trunk:            env.cfg.Master,
		Remote:           env.cfg.Remote,
		DryRun:           env.cfg.DryRun,
		CollectAll:       collectAll,
		IncludeUntracked: env.cfg.Untracked,
		VarName:          env.cfg.Var,
		Logger:           env.log,
	})
}

// displayPath shortens path relative to the repository root for messages.
func (env *environment) displayPath(path string) string {
	if rel, err := filepath.Rel(env.backend.RepoPath(), path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return path
}
