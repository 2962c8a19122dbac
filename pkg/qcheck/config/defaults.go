// Package config provides configuration management for the qcheck integrity checker.
package config

import "time"

// Default configuration values for qcheck.
const (
	// DefaultOutput is the formatter used when none is configured.
	// The plain formatter is the stable line protocol.
	DefaultOutput = "plain"

	// DefaultConfigDir is the default configuration directory path.
	DefaultConfigDir = "~/.config/qcheck"

	// DefaultLogLevel keeps normal runs quiet so stdout carries only the report.
	DefaultLogLevel = "warn"

	// DefaultRetentionDays is the default number of days to retain history records.
	DefaultRetentionDays = 90

	// DefaultWatchDebounce is how long the watcher waits for a burst of
	// filesystem events to settle before re-running a check.
	DefaultWatchDebounce = 500 * time.Millisecond
)

// DefaultExclusions contains patterns excluded from every walk by default.
// The manifest files are deliberately walked like any other file.
var DefaultExclusions = []string{}
