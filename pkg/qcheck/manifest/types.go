// Package manifest builds, persists and loads the snapshots qcheck compares
// a directory tree against.
//
// A checksum manifest (checks.md5) maps each file's root-relative path to
// the MD5 digest of its content. A tree manifest (checks.tree) lists file
// paths only. Both live in the scanned root and keep walk order.
package manifest

import (
	"path/filepath"
	"strings"
)

// Kind selects between checksum and tree manifests.
type Kind int

const (
	// Checksum manifests carry a digest per entry.
	Checksum Kind = iota
	// Tree manifests carry paths only.
	Tree
)

// File names of the persisted manifests, relative to the scanned root.
const (
	ChecksumFileName = "checks.md5"
	TreeFileName     = "checks.tree"
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Checksum:
		return "checksum"
	case Tree:
		return "tree"
	default:
		return "unknown"
	}
}

// FileName returns the manifest file name for the kind.
func (k Kind) FileName() string {
	if k == Tree {
		return TreeFileName
	}
	return ChecksumFileName
}

// Entry is one file in a manifest.
type Entry struct {
	// Path is relative to the scanned root and uses forward slashes.
	Path string `json:"path" yaml:"path"`

	// Digest is the lowercase hex MD5 of the file. It is empty for tree
	// manifests and for files that could not be read.
	Digest string `json:"digest,omitempty" yaml:"digest,omitempty"`
}

// Stats summarizes the files that went into a built manifest.
type Stats struct {
	Files int   `json:"files" yaml:"files"`
	Bytes int64 `json:"bytes" yaml:"bytes"`
}

// Manifest is an ordered snapshot of a tree. Entries keep walk order and
// are not modified after construction.
type Manifest struct {
	Kind    Kind
	Root    string
	Entries []Entry
	Stats   Stats
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	return len(m.Entries)
}

// Paths returns the set of entry paths.
func (m *Manifest) Paths() map[string]struct{} {
	set := make(map[string]struct{}, len(m.Entries))
	for _, e := range m.Entries {
		set[e.Path] = struct{}{}
	}
	return set
}

// Join returns the filesystem path of a root-relative manifest path.
// Absolute paths, as written by older tools, are returned unchanged.
func Join(root, rel string) string {
	p := filepath.FromSlash(rel)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// Rel converts a filesystem path back to a root-relative manifest path.
// Paths outside root are returned unchanged.
func Rel(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.ToSlash(rel)
}
