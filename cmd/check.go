package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/thiagokokada/betarelease/internal/checks"
	"github.com/thiagokokada/betarelease/internal/version"
	"github.com/thiagokokada/betarelease/internal/watch"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func newCheckCommand(stdout, stderr io.Writer) *cobra.Command {
	c := &cobra.Command{
		Use:   "check [flags] <micro|minor|major|release> <initfile>",
		Short: "Report every failed precondition without changing anything",
		Long: `check evaluates every precondition of a transition and reports all the
failures at once. It never modifies the repository. The exit status is 2
when any check fails.`,
		Args: modeArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, stdout, stderr)
		},
	}
	c.Flags().Bool("watch", false, "re-run the checks whenever refs or the init file change")
	c.Flags().StringP("output", "o", outputText, "report format: text, json or yaml")
	return c
}

func runCheck(cmd *cobra.Command, args []string, stdout, stderr io.Writer) error {
	mode, err := version.ParseMode(args[0])
	if err != nil {
		return usageError{err: err}
	}
	format, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	switch format {
	case outputText, outputJSON, outputYAML:
	default:
		return usageError{err: fmt.Errorf("invalid output %q (valid values: text, json, yaml)", format)}
	}
	watching, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return err
	}

	env, err := setup(cmd, args[1], stderr)
	if err != nil {
		return err
	}
	engine := env.engine(true)
	evaluate := func() (bool, error) {
		rep, _, err := engine.Check(mode, env.initFile)
		if err != nil {
			return false, err
		}
		rep.InitFile = env.displayPath(rep.InitFile)
		return rep.OK(), writeReport(stdout, format, rep)
	}

	if !watching {
		ok, err := evaluate()
		if err != nil {
			return err
		}
		if !ok {
			return silentError{code: exitUsage}
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rerun := func() {
		if format == outputText {
			fmt.Fprintf(stdout, "==> %s\n", time.Now().Format(time.TimeOnly))
		}
		if _, err := evaluate(); err != nil {
			env.log.Error("check", slog.Any("error", err))
		}
	}
	rerun()
	return watch.Run(ctx, watch.Options{
		Root:   env.backend.RepoPath(),
		Files:  []string{env.initFile},
		Logger: env.log,
	}, rerun)
}

func writeReport(w io.Writer, format string, rep *checks.Report) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeTextReport(w, rep)
	}
}

func writeTextReport(w io.Writer, rep *checks.Report) error {
	if rep.OK() {
		_, err := fmt.Fprintf(w, "%s: all checks passed, next is %s\n", rep.Mode, rep.NextRef)
		return err
	}
	if _, err := fmt.Fprintf(w, "%s: %d check(s) failed on branch %s\n\n", rep.Mode, len(rep.Failures), rep.Branch); err != nil {
		return err
	}
	printFailures(w, rep.Failures)
	return nil
}
