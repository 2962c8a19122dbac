// Package runner executes the four qcheck modes end to end: walk, persist
// or compare, render, and optionally record the run in history.
package runner

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/jamesainslie/qcheck/pkg/qcheck/diff"
	"github.com/jamesainslie/qcheck/pkg/qcheck/history"
	"github.com/jamesainslie/qcheck/pkg/qcheck/logging"
	"github.com/jamesainslie/qcheck/pkg/qcheck/manifest"
	"github.com/jamesainslie/qcheck/pkg/qcheck/output"
	"github.com/jamesainslie/qcheck/pkg/qcheck/scanner"
)

var logger = logging.Get("runner")

// Runner wires the scanner, manifest store and diff engine together.
// It is safe to reuse across runs; no state is kept between them.
type Runner struct {
	store   *manifest.Store
	builder *manifest.Builder
	engine  *diff.Engine
	history *history.Store
	now     func() time.Time
}

// New creates a Runner walking with opts. hist may be nil, in which case
// runs are not recorded.
func New(opts scanner.Options, hist *history.Store) (*Runner, error) {
	s, err := scanner.New(opts)
	if err != nil {
		return nil, err
	}

	store := manifest.NewStore()
	builder := manifest.NewBuilder(s)

	return &Runner{
		store:   store,
		builder: builder,
		engine:  diff.NewEngine(store, builder),
		history: hist,
		now:     time.Now,
	}, nil
}

// Run executes mode against path, streaming entries to f as they are
// produced and finishing with f's summary.
//
// Conditions the mode reports itself (a missing manifest, a parse error, a
// failed write) end up in Result.Err and are rendered, not returned. The
// returned error is only set when writing to w fails.
func (r *Runner) Run(ctx context.Context, mode output.Mode, path string, f output.Formatter, w io.Writer) (*output.Result, error) {
	start := r.now()

	root, resolveErr := scanner.ResolveRoot(path)
	if resolveErr != nil {
		root = path
		if abs, err := filepath.Abs(path); err == nil {
			root = abs
		}
	}

	res := &output.Result{Mode: mode, Root: root}

	var writeErr error
	emit := func(l diff.Line) {
		res.Lines = append(res.Lines, l)
		if writeErr == nil {
			writeErr = f.WriteLine(w, l)
		}
	}

	logger.Debug("run started", "mode", mode, "root", root)

	switch mode {
	case output.ModeCheck:
		r.check(ctx, res, emit)
	case output.ModeCheckTree:
		r.checkTree(ctx, res, func(l diff.Line) {
			res.Walked = append(res.Walked, l.Path)
			if writeErr == nil {
				writeErr = f.WriteLine(w, l)
			}
		}, emit)
	case output.ModeCreate, output.ModeCreateTree:
		if resolveErr != nil {
			res.Err = resolveErr
			break
		}
		r.create(ctx, res, emit)
	}

	res.Duration = r.now().Sub(start)

	if writeErr == nil {
		writeErr = f.WriteSummary(w, res)
	}

	r.record(res)

	if res.Err != nil {
		logger.Debug("run ended early", "mode", mode, "root", root, "error", res.Err)
	}
	return res, writeErr
}

func (r *Runner) check(ctx context.Context, res *output.Result, emit func(diff.Line)) {
	dr, err := r.engine.CheckChecksums(ctx, res.Root, emit)
	if err != nil {
		res.Err = err
		return
	}
	res.Failed = dr.Mismatched
	res.NotFound = dr.Missing
	res.Stats = dr.Stats
}

func (r *Runner) checkTree(ctx context.Context, res *output.Result, onWalk, emit func(diff.Line)) {
	dr, err := r.engine.CheckTree(ctx, res.Root, onWalk, emit)
	if err != nil {
		res.Err = err
		return
	}
	res.NotFound = dr.Missing
	res.Stats = dr.Stats
}

func (r *Runner) create(ctx context.Context, res *output.Result, emit func(diff.Line)) {
	kind := res.Mode.Kind()

	m, err := r.builder.Build(ctx, res.Root, kind, func(e manifest.Entry) {
		emit(entryLine(res.Root, kind, e))
	})
	if err != nil {
		res.Err = err
		return
	}
	res.Stats = m.Stats

	outcome, err := r.store.Write(res.Root, m)
	res.Removed = outcome == manifest.Removed
	res.Err = err
}

// entryLine renders a freshly built entry the way the manifest file will
// store it.
func entryLine(root string, kind manifest.Kind, e manifest.Entry) diff.Line {
	if kind == manifest.Tree {
		return diff.Line{Path: manifest.Join(root, e.Path)}
	}
	return diff.Line{Path: e.Path, Digest: e.Digest, HasDigest: true}
}

// record stores a summary of res when history is enabled. Failures are
// logged; they never change the outcome of the run.
func (r *Runner) record(res *output.Result) {
	if r.history == nil {
		return
	}

	rec := &history.Record{
		Timestamp: r.now(),
		Mode:      string(res.Mode),
		Root:      res.Root,
		Files:     res.Stats.Files,
		Bytes:     res.Stats.Bytes,
		NotFound:  res.NotFound,
		Removed:   res.Removed,
		Duration:  res.Duration,
	}
	for _, l := range res.Lines {
		if l.Status == diff.StatusOK {
			rec.Matched++
		}
	}
	for _, m := range res.Failed {
		rec.Failed = append(rec.Failed, m.Path)
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}

	if err := r.history.Put(rec); err != nil {
		logger.Warn("failed to record run", "error", err)
	}
}
