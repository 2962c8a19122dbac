package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/jamesainslie/qcheck/pkg/qcheck/diff"
	"github.com/jamesainslie/qcheck/pkg/qcheck/manifest"
)

// PlainFormatter writes the line protocol that wrapping scripts parse.
// Every entry is one line; the terminal block depends on the mode:
//
//	check       FINISHED, "N failed" + paths, "M not found" + paths
//	create      FINISHED
//	createtree  CREATED
//	checktree   "M not found" + paths
//
// A check whose manifest cannot be read prints FAILED. A tree check with
// no manifest prints "No checks.tree found".
type PlainFormatter struct{}

// WriteLine writes l as `path[:digest][ STATUS]`.
func (f *PlainFormatter) WriteLine(w io.Writer, l diff.Line) error {
	_, err := fmt.Fprintln(w, l.String())
	return err
}

// WriteSummary writes the terminal block for r.Mode.
func (f *PlainFormatter) WriteSummary(w io.Writer, r *Result) error {
	bw := bufio.NewWriter(w)

	switch r.Mode {
	case ModeCheck:
		if r.Err != nil {
			fmt.Fprintln(bw, "FAILED")
			var parseErr *manifest.ParseError
			if errors.As(r.Err, &parseErr) {
				fmt.Fprintln(bw, parseErr.Error())
			}
			break
		}
		fmt.Fprintln(bw, "FINISHED")
		fmt.Fprintf(bw, "%d failed\n", len(r.Failed))
		for _, m := range r.Failed {
			fmt.Fprintf(bw, "%s:%s\n", m.Path, m.NewDigest)
		}
		fmt.Fprintf(bw, "%d not found\n", len(r.NotFound))
		for _, p := range r.NotFound {
			fmt.Fprintf(bw, "%s:\n", p)
		}

	case ModeCreate:
		fmt.Fprintln(bw, "FINISHED")
		writeErrorLine(bw, r.Err)

	case ModeCreateTree:
		writeErrorLine(bw, r.Err)
		fmt.Fprintln(bw, "CREATED")

	case ModeCheckTree:
		if errors.Is(r.Err, diff.ErrNoManifest) {
			fmt.Fprintln(bw, "No checks.tree found")
			break
		}
		if r.Err != nil {
			writeErrorLine(bw, r.Err)
			break
		}
		fmt.Fprintf(bw, "%d not found\n", len(r.NotFound))
		for _, p := range r.NotFound {
			fmt.Fprintln(bw, p)
		}
	}

	return bw.Flush()
}

func writeErrorLine(w io.Writer, err error) {
	if err != nil {
		fmt.Fprintf(w, "error: %v\n", err)
	}
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
