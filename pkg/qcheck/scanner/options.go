// Package scanner enumerates the regular files of a directory tree for the
// manifest builder and the tree check. It wraps fastwalk with a single
// worker so files are produced one at a time, in walk order.
package scanner

// Options configures the scanner behavior.
type Options struct {
	// Exclude contains glob patterns for paths to skip. Patterns are matched
	// against the slash-separated path relative to the root and against the
	// base name. A matching directory is skipped entirely.
	Exclude []string

	// FollowSymlinks walks through symbolic links. When false, links are
	// neither descended into nor reported as files.
	FollowSymlinks bool
}

// DefaultOptions returns options that walk everything and follow nothing.
func DefaultOptions() Options {
	return Options{}
}
