// Package diff compares a directory tree against its stored manifest and
// classifies every entry as OK, FAILED or NOT FOUND.
package diff

import (
	"errors"

	"github.com/jamesainslie/qcheck/pkg/qcheck/manifest"
)

// ErrNoManifest is returned by CheckTree when the root has no tree manifest.
var ErrNoManifest = errors.New("no checks.tree found")

// Status classifies one entry of a check.
type Status string

// Entry statuses. StatusNone marks progress lines that carry no verdict.
const (
	StatusNone     Status = ""
	StatusOK       Status = "OK"
	StatusFailed   Status = "FAILED"
	StatusNotFound Status = "NOT FOUND"
)

// Line is one entry of the per-file report log.
type Line struct {
	// Path is the manifest path for checksum checks and the walked path for
	// tree checks and tree creation.
	Path string `json:"path" yaml:"path"`

	// Digest is the digest computed during this run. It is empty when the
	// file is missing or unreadable.
	Digest string `json:"digest,omitempty" yaml:"digest,omitempty"`

	// HasDigest is set for lines that render a digest column, even an empty one.
	HasDigest bool `json:"-" yaml:"-"`

	Status Status `json:"status,omitempty" yaml:"status,omitempty"`
}

// String renders the line as `path[:digest][ STATUS]`.
func (l Line) String() string {
	s := l.Path
	if l.HasDigest {
		s += ":" + l.Digest
	}
	if l.Status != StatusNone {
		s += " " + string(l.Status)
	}
	return s
}

// Mismatch is a tracked file whose content no longer matches its digest.
type Mismatch struct {
	Path      string `json:"path" yaml:"path"`
	OldDigest string `json:"old_digest" yaml:"old_digest"`
	NewDigest string `json:"new_digest" yaml:"new_digest"`
}

// Result is the outcome of one check. It is built fresh on every run.
type Result struct {
	Kind manifest.Kind `json:"-" yaml:"-"`
	Root string        `json:"root" yaml:"root"`

	// Matched lists paths classified OK.
	Matched []string `json:"matched" yaml:"matched"`

	// Mismatched lists tracked files whose digest changed or that could not
	// be read. Only checksum checks produce mismatches.
	Mismatched []Mismatch `json:"mismatched" yaml:"mismatched"`

	// Missing lists paths classified NOT FOUND. For checksum checks these
	// are manifest entries absent from disk. For tree checks the meaning is
	// inverted: files present on disk that the manifest does not list.
	Missing []string `json:"missing" yaml:"missing"`

	// Lines is the per-entry log in manifest order (checksum) or walk
	// order (tree).
	Lines []Line `json:"lines" yaml:"lines"`

	Stats manifest.Stats `json:"stats" yaml:"stats"`
}

func (r *Result) record(l Line, onLine func(Line)) {
	r.Lines = append(r.Lines, l)
	if onLine != nil {
		onLine(l)
	}
}
