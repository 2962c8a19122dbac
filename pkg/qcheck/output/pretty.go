package output

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/qcheck/pkg/qcheck/diff"
	"github.com/jamesainslie/qcheck/pkg/qcheck/manifest"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
// It is meant for terminals; scripts should use the plain format.
type PrettyFormatter struct{}

// WriteLine writes one entry with its status coloured.
func (f *PrettyFormatter) WriteLine(w io.Writer, l diff.Line) error {
	var sb strings.Builder
	sb.WriteString("  ")
	sb.WriteString(statusBadge(l.Status))
	sb.WriteString(PathStyle.Render(l.Path))
	if l.HasDigest && l.Digest != "" {
		sb.WriteString(" ")
		sb.WriteString(DigestStyle.Render(l.Digest))
	}
	_, err := fmt.Fprintln(w, sb.String())
	return err
}

// statusBadge returns a fixed-width coloured status column.
func statusBadge(s diff.Status) string {
	switch s {
	case diff.StatusOK:
		return SuccessStyle.Render(padRight("OK", 10))
	case diff.StatusFailed:
		return ErrorStyle.Bold(true).Render(padRight("FAILED", 10))
	case diff.StatusNotFound:
		return WarningStyle.Render(padRight("NOT FOUND", 10))
	default:
		return MutedStyle.Render(padRight("·", 10))
	}
}

// WriteSummary writes a summary box and the failure listings.
func (f *PrettyFormatter) WriteSummary(w io.Writer, r *Result) error {
	var sb strings.Builder

	if r.Err != nil {
		sb.WriteString(ErrorBox.Render(f.formatError(r)))
		sb.WriteString("\n")
		if r.Mode == ModeCheck || r.Mode == ModeCheckTree {
			_, err := io.WriteString(w, sb.String())
			return err
		}
	}

	sb.WriteString(SummaryBox.Render(f.formatSummary(r)))
	sb.WriteString("\n")

	if len(r.Failed) > 0 {
		sb.WriteString(ErrorStyle.Bold(true).Render("Failed:"))
		sb.WriteString("\n")
		for _, m := range r.Failed {
			fmt.Fprintf(&sb, "  %s %s %s %s\n",
				PathStyle.Render(m.Path),
				DigestStyle.Render(orDash(m.OldDigest)),
				MutedStyle.Render("->"),
				DigestStyle.Render(orDash(m.NewDigest)))
		}
	}

	if len(r.NotFound) > 0 {
		title := "Not found:"
		if r.Mode == ModeCheckTree {
			title = "Not listed in checks.tree:"
		}
		sb.WriteString(WarningStyle.Bold(true).Render(title))
		sb.WriteString("\n")
		for _, p := range r.NotFound {
			sb.WriteString("  " + PathStyle.Render(p) + "\n")
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func (f *PrettyFormatter) formatError(r *Result) string {
	switch {
	case errors.Is(r.Err, diff.ErrNoManifest):
		return ErrorStyle.Render("No checks.tree found in " + r.Root)
	case errors.Is(r.Err, manifest.ErrNotFound):
		return ErrorStyle.Render("No checks.md5 found in " + r.Root)
	default:
		return ErrorStyle.Render(r.Err.Error())
	}
}

func (f *PrettyFormatter) formatSummary(r *Result) string {
	var lines []string

	lines = append(lines, TitleStyle.Render(modeTitle(r)))
	lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("Root:"), ValueStyle.Render(r.Root)))
	lines = append(lines, fmt.Sprintf("%s %s  %s %s  %s %s",
		LabelStyle.Render("Files:"), ValueStyle.Render(humanize.Comma(int64(r.Stats.Files))),
		LabelStyle.Render("Size:"), ValueStyle.Render(humanize.IBytes(uint64(r.Stats.Bytes))),
		LabelStyle.Render("Took:"), ValueStyle.Render(formatDuration(r.Duration))))

	switch r.Mode {
	case ModeCheck:
		lines = append(lines, fmt.Sprintf("%s  %s  %s",
			SuccessStyle.Render(fmt.Sprintf("%d ok", len(r.Lines)-len(r.Failed)-len(r.NotFound))),
			countStyle(len(r.Failed), ErrorStyle).Render(fmt.Sprintf("%d failed", len(r.Failed))),
			countStyle(len(r.NotFound), WarningStyle).Render(fmt.Sprintf("%d not found", len(r.NotFound)))))
	case ModeCheckTree:
		lines = append(lines, fmt.Sprintf("%s  %s",
			SuccessStyle.Render(fmt.Sprintf("%d listed", len(r.Lines)-len(r.NotFound))),
			countStyle(len(r.NotFound), WarningStyle).Render(fmt.Sprintf("%d not listed", len(r.NotFound)))))
	case ModeCreate, ModeCreateTree:
		name := r.Mode.Kind().FileName()
		switch {
		case r.Err != nil:
			lines = append(lines, ErrorStyle.Render(name+" not written"))
		case r.Removed:
			lines = append(lines, WarningStyle.Render("Existing "+name+" removed; run again to create a new one"))
		default:
			lines = append(lines, SuccessStyle.Render(name+" written"))
		}
	}

	return strings.Join(lines, "\n")
}

func modeTitle(r *Result) string {
	switch r.Mode {
	case ModeCheck:
		return "Checksum check finished"
	case ModeCreate:
		return "Checksum manifest finished"
	case ModeCheckTree:
		return "Tree check finished"
	case ModeCreateTree:
		return "Tree manifest finished"
	default:
		return string(r.Mode)
	}
}

// countStyle dims zero counts.
func countStyle(n int, style lipgloss.Style) lipgloss.Style {
	if n == 0 {
		return MutedStyle
	}
	return style
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// padRight pads a string with spaces on the right to the desired width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
