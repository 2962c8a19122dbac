package output

import (
	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/qcheck/pkg/qcheck/diff"
)

// document is the structure shared by the json, jsonl and yaml formats.
type document struct {
	Mode     string          `json:"mode" yaml:"mode"`
	Root     string          `json:"root" yaml:"root"`
	Walked   []string        `json:"walked,omitempty" yaml:"walked,omitempty"`
	Lines    []documentLine  `json:"lines,omitempty" yaml:"lines,omitempty"`
	Failed   []diff.Mismatch `json:"failed" yaml:"failed"`
	NotFound []string        `json:"not_found" yaml:"not_found"`
	Removed  bool            `json:"removed,omitempty" yaml:"removed,omitempty"`
	Error    string          `json:"error,omitempty" yaml:"error,omitempty"`
	Stats    documentStats   `json:"stats" yaml:"stats"`
}

type documentLine struct {
	Path   string `json:"path" yaml:"path"`
	Digest string `json:"digest,omitempty" yaml:"digest,omitempty"`
	Status string `json:"status,omitempty" yaml:"status,omitempty"`
}

type documentStats struct {
	Files      int    `json:"files" yaml:"files"`
	Bytes      int64  `json:"bytes" yaml:"bytes"`
	BytesHuman string `json:"bytes_human" yaml:"bytes_human"`
	Duration   string `json:"duration" yaml:"duration"`
}

// buildDocument converts a Result to its serialisable form. Slices are
// never nil so empty lists encode as [] rather than null.
func buildDocument(r *Result) *document {
	doc := &document{
		Mode:     string(r.Mode),
		Root:     r.Root,
		Walked:   r.Walked,
		Lines:    make([]documentLine, len(r.Lines)),
		Failed:   r.Failed,
		NotFound: r.NotFound,
		Removed:  r.Removed,
		Stats: documentStats{
			Files:      r.Stats.Files,
			Bytes:      r.Stats.Bytes,
			BytesHuman: humanize.IBytes(uint64(r.Stats.Bytes)),
			Duration:   r.Duration.String(),
		},
	}

	for i, l := range r.Lines {
		doc.Lines[i] = documentLine{Path: l.Path, Digest: l.Digest, Status: string(l.Status)}
	}
	if doc.Failed == nil {
		doc.Failed = []diff.Mismatch{}
	}
	if doc.NotFound == nil {
		doc.NotFound = []string{}
	}
	if r.Err != nil {
		doc.Error = r.Err.Error()
	}

	return doc
}
