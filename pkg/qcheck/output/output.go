// Package output renders qcheck runs in various formats (plain, pretty,
// json, jsonl, yaml).
//
// Formatters are looked up by name from a registry. Each run drives a
// formatter twice: WriteLine for every entry while the walk is still in
// progress, then WriteSummary once with the complete Result.
//
// Basic usage:
//
//	formatter, err := output.Get("plain")
//	if err != nil {
//	    return err
//	}
//	_ = formatter.WriteLine(os.Stdout, line)
//	_ = formatter.WriteSummary(os.Stdout, result)
package output

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/qcheck/pkg/qcheck/diff"
	"github.com/jamesainslie/qcheck/pkg/qcheck/manifest"
)

// Mode names one of the four pipelines.
type Mode string

// Modes, named after their command-line flags without the dashes.
const (
	ModeCheck      Mode = "check"
	ModeCreate     Mode = "create"
	ModeCheckTree  Mode = "checktree"
	ModeCreateTree Mode = "createtree"
)

// ParseMode maps a command-line flag such as "--check" to its Mode.
func ParseMode(flag string) (Mode, bool) {
	switch flag {
	case "--check":
		return ModeCheck, true
	case "--create":
		return ModeCreate, true
	case "--checktree":
		return ModeCheckTree, true
	case "--createtree":
		return ModeCreateTree, true
	default:
		return "", false
	}
}

// Flag returns the command-line flag for the mode.
func (m Mode) Flag() string {
	return "--" + string(m)
}

// Kind returns the manifest kind the mode reads or writes.
func (m Mode) Kind() manifest.Kind {
	if m == ModeCheckTree || m == ModeCreateTree {
		return manifest.Tree
	}
	return manifest.Checksum
}

// Result is everything a formatter needs to render the end of a run.
type Result struct {
	Mode Mode
	Root string

	// Walked lists the paths streamed during the walk phase of a tree
	// check, before classification.
	Walked []string

	// Lines is the per-entry log in the order it was streamed.
	Lines []diff.Line

	// Failed lists tracked files whose digest changed (check mode).
	Failed []diff.Mismatch

	// NotFound lists NOT FOUND paths. For tree checks these are files on
	// disk that the manifest does not list.
	NotFound []string

	// Removed is set when a create run found an existing manifest and
	// deleted it instead of writing a new one.
	Removed bool

	// Err is the condition that ended the run early or, for create modes,
	// the manifest write failure.
	Err error

	Stats    manifest.Stats
	Duration time.Duration
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// WriteLine writes one streamed entry.
	WriteLine(w io.Writer, l diff.Line) error

	// WriteSummary writes the terminal block once the run has finished.
	WriteSummary(w io.Writer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
