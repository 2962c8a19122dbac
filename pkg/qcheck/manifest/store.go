package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/qcheck/pkg/qcheck/logging"
)

var logger = logging.Get("store")

// maxLineSize bounds a single manifest line.
const maxLineSize = 1 << 20

// WriteOutcome tells what Write did to the manifest file.
type WriteOutcome int

const (
	// Written means the manifest file was created.
	Written WriteOutcome = iota
	// Removed means an existing manifest file was deleted and nothing was written.
	Removed
)

// String returns the outcome name.
func (o WriteOutcome) String() string {
	if o == Removed {
		return "removed"
	}
	return "written"
}

// Store persists manifests inside the scanned root. It holds no state;
// every call names the root it operates on.
type Store struct{}

// NewStore creates a Store.
func NewStore() *Store {
	return &Store{}
}

// Path returns the manifest file location for root and kind.
func (s *Store) Path(root string, kind Kind) string {
	return filepath.Join(root, kind.FileName())
}

// Exists reports whether the manifest file for kind is present under root.
func (s *Store) Exists(root string, kind Kind) bool {
	_, err := os.Stat(s.Path(root, kind))
	return err == nil
}

// Write persists m under root.
//
// If a manifest file of the same kind already exists, Write deletes it and
// writes nothing, returning Removed. Running a create twice therefore
// toggles the file rather than refreshing it; callers that want a fresh
// manifest run create again after the removal.
//
// Checksum manifests are written as `relativePath:digest` lines. Tree
// manifests are written as one absolute path per line.
func (s *Store) Write(root string, m *Manifest) (WriteOutcome, error) {
	path := s.Path(root, m.Kind)

	if s.Exists(root, m.Kind) {
		if err := os.Remove(path); err != nil {
			return Removed, &WriteError{Path: path, Err: err}
		}
		logger.Info("existing manifest removed", "path", path)
		return Removed, nil
	}

	tmpPath := path + ".tmp"
	if err := s.writeFile(tmpPath, root, m); err != nil {
		_ = os.Remove(tmpPath)
		return Written, &WriteError{Path: path, Err: err}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return Written, &WriteError{Path: path, Err: err}
	}

	logger.Debug("manifest written", "path", path, "entries", m.Len())
	return Written, nil
}

func (s *Store) writeFile(path, root string, m *Manifest) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	for _, e := range m.Entries {
		if _, err := io.WriteString(w, formatLine(root, m.Kind, e)+"\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}

func formatLine(root string, kind Kind, e Entry) string {
	if kind == Tree {
		return Join(root, e.Path)
	}
	return FormatChecksumLine(e)
}

// Read loads the manifest of the given kind from root. It returns an error
// wrapping ErrNotFound when the file is absent and a *ParseError for the
// first malformed checksum line.
func (s *Store) Read(root string, kind Kind) (*Manifest, error) {
	path := s.Path(root, kind)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	m := &Manifest{Kind: kind, Root: root}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		text := strings.TrimSuffix(sc.Text(), "\r")
		if text == "" {
			continue
		}

		if kind == Tree {
			m.Entries = append(m.Entries, Entry{Path: Rel(root, filepath.FromSlash(text))})
			continue
		}

		entry, err := ParseChecksumLine(text)
		if err != nil {
			return nil, &ParseError{File: path, Line: lineNo, Text: text, Reason: err.Error()}
		}
		m.Entries = append(m.Entries, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m.Stats.Files = len(m.Entries)
	return m, nil
}
