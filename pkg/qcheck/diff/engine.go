package diff

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/jamesainslie/qcheck/pkg/qcheck/hasher"
	"github.com/jamesainslie/qcheck/pkg/qcheck/logging"
	"github.com/jamesainslie/qcheck/pkg/qcheck/manifest"
)

var logger = logging.Get("diff")

// Engine runs checks. It is stateless apart from its collaborators; every
// call names the root it checks.
type Engine struct {
	store   *manifest.Store
	builder *manifest.Builder
}

// NewEngine creates an Engine reading manifests from store and walking
// trees with builder.
func NewEngine(store *manifest.Store, builder *manifest.Builder) *Engine {
	return &Engine{store: store, builder: builder}
}

// CheckChecksums verifies every entry of root's checksum manifest.
//
// Entries are processed in manifest order. A missing file is NOT FOUND, a
// file whose fresh digest equals the stored one is OK, anything else
// (including an unreadable file) is FAILED. Files on disk that the
// manifest does not list are not reported. Each line is passed to onLine
// as soon as it is classified.
//
// An absent manifest returns an error wrapping manifest.ErrNotFound before
// any file is hashed.
func (e *Engine) CheckChecksums(ctx context.Context, root string, onLine func(Line)) (*Result, error) {
	stored, err := e.store.Read(root, manifest.Checksum)
	if err != nil {
		return nil, err
	}

	res := &Result{Kind: manifest.Checksum, Root: root}

	for _, entry := range stored.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := manifest.Join(root, entry.Path)
		line := Line{Path: entry.Path, HasDigest: true}

		info, statErr := os.Stat(path)
		if errors.Is(statErr, fs.ErrNotExist) {
			line.Status = StatusNotFound
			res.Missing = append(res.Missing, entry.Path)
			res.record(line, onLine)
			continue
		}

		digest, hashErr := hasher.SumFile(path)
		if hashErr != nil {
			logger.Warn("cannot hash tracked file", "path", path, "error", hashErr)
		}
		line.Digest = digest

		if statErr == nil {
			res.Stats.Files++
			res.Stats.Bytes += info.Size()
		}

		if hashErr == nil && digest == entry.Digest {
			line.Status = StatusOK
			res.Matched = append(res.Matched, entry.Path)
		} else {
			line.Status = StatusFailed
			res.Mismatched = append(res.Mismatched, Mismatch{
				Path:      entry.Path,
				OldDigest: entry.Digest,
				NewDigest: digest,
			})
		}
		res.record(line, onLine)
	}

	logger.Debug("checksum check finished", "root", root,
		"ok", len(res.Matched), "failed", len(res.Mismatched), "not_found", len(res.Missing))
	return res, nil
}

// CheckTree compares the files currently under root with root's tree
// manifest.
//
// If the manifest file does not exist, CheckTree returns ErrNoManifest
// without walking. Otherwise it walks the tree, passing each walked path to
// onWalk, then classifies every walked file in walk order: OK when the
// manifest lists it, NOT FOUND when it does not.
//
// NOT FOUND therefore means "found on disk but not listed", the reverse of
// CheckChecksums. Listed files that no longer exist are not reported.
func (e *Engine) CheckTree(ctx context.Context, root string, onWalk, onLine func(Line)) (*Result, error) {
	if !e.store.Exists(root, manifest.Tree) {
		return nil, ErrNoManifest
	}

	stored, err := e.store.Read(root, manifest.Tree)
	if err != nil {
		return nil, err
	}
	listed := stored.Paths()

	current, err := e.builder.Build(ctx, root, manifest.Tree, func(entry manifest.Entry) {
		if onWalk != nil {
			onWalk(Line{Path: manifest.Join(root, entry.Path)})
		}
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Kind: manifest.Tree, Root: root, Stats: current.Stats}

	for _, entry := range current.Entries {
		line := Line{Path: manifest.Join(root, entry.Path)}
		if _, ok := listed[entry.Path]; ok {
			line.Status = StatusOK
			res.Matched = append(res.Matched, line.Path)
		} else {
			line.Status = StatusNotFound
			res.Missing = append(res.Missing, line.Path)
		}
		res.record(line, onLine)
	}

	logger.Debug("tree check finished", "root", root,
		"ok", len(res.Matched), "not_found", len(res.Missing))
	return res, nil
}
