package main

import (
	"github.com/jamesainslie/qcheck/pkg/qcheck/config"
	"github.com/jamesainslie/qcheck/pkg/qcheck/history"
	"github.com/jamesainslie/qcheck/pkg/qcheck/logging"
	"github.com/jamesainslie/qcheck/pkg/qcheck/output"
	"github.com/jamesainslie/qcheck/pkg/qcheck/runner"
	"github.com/jamesainslie/qcheck/pkg/qcheck/scanner"
	"github.com/spf13/cobra"
)

// runLegacy handles `qcheck <mode> <path>`. Anything other than exactly a
// known mode and a path is ignored without output. Mode runs never fail
// the process; problems are part of the printed report.
func runLegacy(cmd *cobra.Command, args []string) error {
	if len(args) != 2 {
		return nil
	}
	mode, ok := output.ParseMode(args[0])
	if !ok {
		return nil
	}

	log := logging.Get("cli")

	formatter := newFormatter(cfg)

	hist := openHistory(cfg)
	if hist != nil {
		defer func() {
			if err := hist.Close(); err != nil {
				log.Warn("failed to close history", "error", err)
			}
		}()
	}

	r := newRunner(cfg, hist)

	if _, err := r.Run(cmd.Context(), mode, args[1], formatter, cmd.OutOrStdout()); err != nil {
		log.Error("failed to write report", "error", err)
	}
	return nil
}

// newFormatter returns the configured formatter, falling back to plain.
func newFormatter(c *config.Config) output.Formatter {
	f, err := output.Get(c.Output)
	if err != nil {
		logging.Get("cli").Warn("unknown output format, using plain", "output", c.Output)
		return &output.PlainFormatter{}
	}
	return f
}

// newRunner builds a runner from c. Invalid exclusion patterns are dropped
// with a warning rather than aborting the run.
func newRunner(c *config.Config, hist *history.Store) *runner.Runner {
	opts := scanner.Options{Exclude: c.Exclude, FollowSymlinks: c.FollowSymlinks}

	r, err := runner.New(opts, hist)
	if err != nil {
		logging.Get("cli").Warn("ignoring exclude patterns", "error", err)
		opts.Exclude = nil
		r, _ = runner.New(opts, hist)
	}
	return r
}

// openHistory opens the history store when it is enabled. Failures are
// logged and the run continues unrecorded.
func openHistory(c *config.Config) *history.Store {
	if !c.History.Enabled {
		return nil
	}

	hist, err := history.Open(c.History.Path)
	if err != nil {
		logging.Get("cli").Warn("history disabled for this run", "error", err)
		return nil
	}
	return hist
}
