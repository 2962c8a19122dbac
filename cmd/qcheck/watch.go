package main

import (
	"context"
	"fmt"

	"github.com/jamesainslie/qcheck/pkg/qcheck/logging"
	"github.com/jamesainslie/qcheck/pkg/qcheck/output"
	"github.com/jamesainslie/qcheck/pkg/qcheck/scanner"
	"github.com/jamesainslie/qcheck/pkg/qcheck/watcher"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch (--check | --checktree) <path>",
	Short: "Re-run a check whenever the tree changes",
	Long: `Run a check once, then watch the tree and run it again after every
settled burst of changes. Stop with Ctrl-C.

The debounce interval is watch.debounce in the config file. Writes to
checks.md5 and checks.tree do not trigger a run.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	watchCheck     bool
	watchCheckTree bool
)

func init() {
	watchCmd.Flags().BoolVar(&watchCheck, "check", false, "verify checks.md5")
	watchCmd.Flags().BoolVar(&watchCheckTree, "checktree", false, "compare against checks.tree")
	watchCmd.MarkFlagsMutuallyExclusive("check", "checktree")
	watchCmd.MarkFlagsOneRequired("check", "checktree")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	mode := output.ModeCheck
	if watchCheckTree {
		mode = output.ModeCheckTree
	}

	root, err := scanner.ResolveRoot(args[0])
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", args[0], err)
	}

	log := logging.Get("cli")
	formatter := newFormatter(cfg)

	hist := openHistory(cfg)
	if hist != nil {
		defer hist.Close()
	}
	r := newRunner(cfg, hist)

	w, err := watcher.New()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Watch(root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	out := cmd.OutOrStdout()

	if _, err := r.Run(ctx, mode, root, formatter, out); err != nil {
		return err
	}

	// A failed write to stdout (closed pipe) ends the watch.
	var runErr error
	w.Run(ctx, cfg.Watch.Debounce, func(paths []string) {
		log.Info("tree changed, checking again", "root", root, "changed", len(paths))
		if _, runErr = r.Run(ctx, mode, root, formatter, out); runErr != nil {
			cancel()
		}
	})

	return runErr
}
