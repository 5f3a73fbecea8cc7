package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/betarelease/internal/config"
	"github.com/thiagokokada/betarelease/internal/release"
	"github.com/thiagokokada/betarelease/internal/termui"
	"github.com/thiagokokada/betarelease/internal/version"
)

func runTransition(cmd *cobra.Command, args []string, stdout, stderr io.Writer) error {
	mode, err := version.ParseMode(args[0])
	if err != nil {
		return usageError{err: err}
	}
	env, err := setup(cmd, args[1], stderr)
	if err != nil {
		return err
	}
	reportAll, err := cmd.Flags().GetBool(config.KeyReportAll)
	if err != nil {
		return err
	}
	env.log.Debug("transition requested",
		slog.String("mode", mode.String()),
		slog.String("initfile", env.displayPath(env.initFile)),
	)

	res, err := env.engine(reportAll || env.cfg.ReportAll).Run(mode, env.initFile)
	if err != nil {
		return err
	}
	if res.Preview != "" {
		printer := termui.Printer{
			Out:   stdout,
			Color: termui.UseColor(env.cfg.Color, stdout),
			Style: termui.StyleFor(termui.ThemePreferenceFromString(env.cfg.Theme), env.log),
		}
		if err := printer.Diff(res.Preview); err != nil {
			return err
		}
	}
	printResult(stdout, res)
	return nil
}

func printResult(w io.Writer, res *release.Result) {
	verb := "created"
	if res.DryRun {
		verb = "would create"
	}
	switch res.Mode {
	case version.ModeRelease:
		fmt.Fprintf(w, "%s tag %s (%s -> %s)\n", verb, res.Ref, res.From, res.To)
	default:
		from := res.Commit
		if from == "" {
			from = res.Source
		}
		fmt.Fprintf(w, "%s branch %s at %s (%s -> %s)\n", verb, res.Ref, shortHash(from), res.Current, res.Version)
	}
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
