package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/betarelease/internal/buildinfo"
	"github.com/thiagokokada/betarelease/internal/git/backend"
)

func newVersionCommand(stdout, _ io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "betarelease %s\n", buildinfo.Read())
			if cfg.Backend != backend.KindGitCLI {
				return nil
			}
			out, err := backend.GitVersion()
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%s (minimum %s)\n", out, backend.MinGitVersion())
			return nil
		},
	}
}
