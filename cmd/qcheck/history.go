package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/qcheck/pkg/qcheck/config"
	"github.com/jamesainslie/qcheck/pkg/qcheck/history"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View past runs",
	Long: `View the runs recorded in the history database.

Recording is off by default. Enable it with history.enabled in the config
file or QCHECK_HISTORY_ENABLED=true.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show details of a recorded run",
	Long:  `Display a recorded run by its ID. A unique prefix of the ID is enough.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old history records",
	Long:  `Remove history records older than history.retention_days.`,
	Args:  cobra.NoArgs,
	RunE:  runHistoryClean,
}

var (
	historyLimit int
	historyRoot  string
)

// maxListedPaths bounds the paths printed per list by history show.
const maxListedPaths = 50

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of records to show")
	historyCmd.Flags().StringVar(&historyRoot, "root", "", "only show runs against this directory")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistoryStore() (*history.Store, error) {
	s, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return s, nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	s, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer s.Close()

	root := historyRoot
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}

	records, err := s.List(root, historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No history records found.")
		if !cfg.History.Enabled {
			fmt.Fprintln(out, "History recording is disabled; set history.enabled to turn it on.")
		}
		return nil
	}

	writeHistoryTable(out, records, time.Now())
	fmt.Fprintf(out, "\nShowing %d records. Use 'qcheck history show <id>' for details.\n", len(records))
	return nil
}

func writeHistoryTable(w io.Writer, records []history.Record, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tMODE\tFILES\tSIZE\tRESULT\tROOT")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			shortID(r.ID),
			humanize.RelTime(r.Timestamp, now, "ago", "from now"),
			r.Mode,
			r.Files,
			humanize.IBytes(uint64(r.Bytes)),
			resultSummary(&r),
			r.Root,
		)
	}
	_ = tw.Flush()
}

// resultSummary condenses a record's outcome into one column.
func resultSummary(r *history.Record) string {
	switch {
	case r.Error != "":
		return "error"
	case r.Removed:
		return "removed"
	case r.Mode == "checktree" && len(r.NotFound) > 0:
		return fmt.Sprintf("%d unlisted", len(r.NotFound))
	case len(r.Failed) > 0 || len(r.NotFound) > 0:
		return fmt.Sprintf("%d failed, %d missing", len(r.Failed), len(r.NotFound))
	default:
		return "ok"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	s, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer s.Close()

	r, err := s.Get(args[0])
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("no history record with id %q", args[0])
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Run Details")
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "ID:        %s\n", r.ID)
	fmt.Fprintf(out, "Timestamp: %s\n", r.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "Mode:      %s\n", r.Mode)
	fmt.Fprintf(out, "Root:      %s\n", r.Root)
	fmt.Fprintf(out, "Files:     %d (%s)\n", r.Files, humanize.IBytes(uint64(r.Bytes)))
	fmt.Fprintf(out, "Matched:   %d\n", r.Matched)
	fmt.Fprintf(out, "Duration:  %s\n", r.Duration)
	if r.Removed {
		fmt.Fprintln(out, "Manifest:  existing file removed")
	}
	if r.Error != "" {
		fmt.Fprintf(out, "Error:     %s\n", r.Error)
	}

	writePathList(out, "Failed", r.Failed)
	notFoundTitle := "Not found"
	if r.Mode == "checktree" {
		notFoundTitle = "Not listed in checks.tree"
	}
	writePathList(out, notFoundTitle, r.NotFound)

	return nil
}

func writePathList(w io.Writer, title string, paths []string) {
	if len(paths) == 0 {
		return
	}

	fmt.Fprintf(w, "\n%s (%d):\n", title, len(paths))
	fmt.Fprintln(w, strings.Repeat("-", 60))

	limit := len(paths)
	if limit > maxListedPaths {
		limit = maxListedPaths
	}
	for _, p := range paths[:limit] {
		fmt.Fprintln(w, p)
	}
	if len(paths) > limit {
		fmt.Fprintf(w, "... and %d more\n", len(paths)-limit)
	}
}

func runHistoryClean(cmd *cobra.Command, _ []string) error {
	s, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer s.Close()

	days := cfg.History.RetentionDays
	if days <= 0 {
		days = config.DefaultRetentionDays
	}

	removed, err := s.Prune(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d history records older than %d days.\n", removed, days)
	return nil
}
