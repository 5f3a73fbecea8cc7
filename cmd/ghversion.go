package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/betarelease/internal/ghref"
)

func newGHVersionCommand(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "gh-version [flags] <initfile>",
		Short: "Stamp the CI build version into the init file",
		Long: `gh-version reads the CI context dump in $GITHUB_DUMP and writes the
version and commit hash for the build into the init file:

  refs/heads/<master>      keeps the init file version
  refs/heads/beta/<V>      <V>b<run_number>
  refs/tags/release/<V>    <V>

Without $GITHUB_DUMP the init file is left alone. The version is printed.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageError{err: fmt.Errorf("accepts 1 arg(s), received %d", len(args))}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := newLogger(stderr, cfg)
			path, err := cfg.ResolveInitFile(args[0])
			if err != nil {
				return err
			}
			log.Debug("updating init file from ci context",
				slog.String("path", path),
				slog.Bool("has_dump", cfg.GithubDump != ""),
			)
			ver, err := ghref.UpdateInitFile(path, cfg.GithubDump, ghref.UpdateOptions{
				Trunk:   cfg.Master,
				VarName: cfg.Var,
				HashVar: cfg.HashVar,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(stdout, ver)
			return err
		},
	}
}
