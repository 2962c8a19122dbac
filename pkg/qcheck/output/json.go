package output

import (
	"encoding/json"
	"io"

	"github.com/jamesainslie/qcheck/pkg/qcheck/diff"
)

// JSONFormatter writes one indented JSON document at the end of the run.
// It writes nothing while entries stream.
type JSONFormatter struct{}

// WriteLine is a no-op; lines are part of the final document.
func (f *JSONFormatter) WriteLine(io.Writer, diff.Line) error {
	return nil
}

// WriteSummary writes the run as a single JSON document.
func (f *JSONFormatter) WriteSummary(w io.Writer, r *Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildDocument(r))
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter writes newline-delimited JSON: one compact object per
// entry as it streams, then one summary object. It suits jq pipelines that
// want progress before the run ends.
type JSONLFormatter struct{}

// jsonlLine is one streamed entry.
type jsonlLine struct {
	Type   string `json:"type"`
	Path   string `json:"path"`
	Digest string `json:"digest,omitempty"`
	Status string `json:"status,omitempty"`
}

// jsonlSummary is the final record.
type jsonlSummary struct {
	Type string `json:"type"`
	document
}

// WriteLine writes l as a compact JSON object.
func (f *JSONLFormatter) WriteLine(w io.Writer, l diff.Line) error {
	data, err := json.Marshal(jsonlLine{
		Type:   "line",
		Path:   l.Path,
		Digest: l.Digest,
		Status: string(l.Status),
	})
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// WriteSummary writes the summary object without the per-entry lines,
// which have already been streamed.
func (f *JSONLFormatter) WriteSummary(w io.Writer, r *Result) error {
	doc := buildDocument(r)
	doc.Lines = nil
	doc.Walked = nil

	data, err := json.Marshal(jsonlSummary{Type: "summary", document: *doc})
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

// Ensure JSONLFormatter implements Formatter.
var _ Formatter = (*JSONLFormatter)(nil)
