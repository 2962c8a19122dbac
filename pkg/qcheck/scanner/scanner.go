package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/gobwas/glob"
	"github.com/jamesainslie/qcheck/pkg/qcheck/logging"
)

var logger = logging.Get("scanner")

// ErrNotDir is returned when the scan root is not a directory.
var ErrNotDir = errors.New("not a directory")

// File is a regular file found by the walk.
type File struct {
	// Path is the file path as produced by the walk: the root joined with Rel.
	Path string

	// Rel is the path relative to the root, using forward slashes.
	Rel string

	// Size is the file size in bytes at the time of the walk.
	Size int64
}

// Scanner walks directory trees.
type Scanner struct {
	opts     Options
	patterns []glob.Glob
}

// New creates a Scanner. Invalid exclusion patterns are rejected.
func New(opts Options) (*Scanner, error) {
	s := &Scanner{opts: opts}
	for _, pattern := range opts.Exclude {
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		s.patterns = append(s.patterns, g)
	}
	return s, nil
}

// ResolveRoot converts root to an absolute path and verifies it is a directory.
func ResolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: %w", abs, ErrNotDir)
	}

	return abs, nil
}

// Walk calls fn for every regular file under root. Calls are sequential and
// follow the order of the underlying walk, which is not sorted. Unreadable
// directories are logged and skipped. An error returned by fn, or
// cancellation of ctx, stops the walk and is returned.
func (s *Scanner) Walk(ctx context.Context, root string, fn func(File) error) error {
	conf := fastwalk.Config{
		Follow:     s.opts.FollowSymlinks,
		NumWorkers: 1,
	}

	// fastwalk may invoke the callback from its worker goroutine; the
	// mutex keeps fn strictly sequential regardless of worker count.
	var mu sync.Mutex

	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		mu.Lock()
		defer mu.Unlock()

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			logger.Warn("skipping unreadable entry", "path", path, "error", err)
			return nil
		}

		if path == root {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if s.isExcluded(rel) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		info, ok := s.regularFile(path, d)
		if !ok {
			return nil
		}

		return fn(File{Path: path, Rel: rel, Size: info.Size()})
	})

	if err != nil {
		return err
	}
	return ctx.Err()
}

// regularFile reports whether the entry is a regular file under the
// configured symlink policy, returning its info.
func (s *Scanner) regularFile(path string, d fs.DirEntry) (fs.FileInfo, bool) {
	switch {
	case d.Type().IsRegular():
		info, err := d.Info()
		if err != nil {
			logger.Warn("cannot stat file", "path", path, "error", err)
			return nil, false
		}
		return info, true
	case d.Type()&fs.ModeSymlink != 0 && s.opts.FollowSymlinks:
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return nil, false
		}
		return info, true
	default:
		return nil, false
	}
}

// isExcluded checks the relative path and its base name against every pattern.
func (s *Scanner) isExcluded(rel string) bool {
	if len(s.patterns) == 0 {
		return false
	}
	base := filepath.Base(filepath.FromSlash(rel))
	for _, g := range s.patterns {
		if g.Match(rel) || g.Match(base) {
			return true
		}
	}
	return false
}
