package manifest

import (
	"context"

	"github.com/jamesainslie/qcheck/pkg/qcheck/hasher"
	"github.com/jamesainslie/qcheck/pkg/qcheck/scanner"
)

// Builder walks a tree and produces a Manifest.
type Builder struct {
	scanner *scanner.Scanner
}

// NewBuilder creates a Builder that walks with s.
func NewBuilder(s *scanner.Scanner) *Builder {
	return &Builder{scanner: s}
}

// Build walks root and returns a manifest of the given kind. root should
// already be resolved with scanner.ResolveRoot.
//
// onEntry, when non-nil, receives each entry as soon as it is produced so
// callers can report progress while the walk is still running. Files that
// cannot be read get an empty digest and the walk continues.
func (b *Builder) Build(ctx context.Context, root string, kind Kind, onEntry func(Entry)) (*Manifest, error) {
	m := &Manifest{Kind: kind, Root: root}

	err := b.scanner.Walk(ctx, root, func(f scanner.File) error {
		entry := Entry{Path: f.Rel}

		if kind == Checksum {
			digest, err := hasher.SumFile(f.Path)
			if err != nil {
				logger.Warn("cannot hash file", "path", f.Path, "error", err)
			}
			entry.Digest = digest
		}

		m.Entries = append(m.Entries, entry)
		m.Stats.Files++
		m.Stats.Bytes += f.Size

		if onEntry != nil {
			onEntry(entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return m, nil
}
