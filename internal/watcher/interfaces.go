package watcher

import (
	"context"
	"time"
)

// DefaultDebounce is the quiet period before a batch of changes is reported.
const DefaultDebounce = 500 * time.Millisecond

// FileWatcher monitors source files for changes with debouncing.
type FileWatcher interface {
	// Start begins watching source directories, calling callback with debounced file changes.
	// Files in a batch are unique and sorted.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the file watcher and cleans up resources.
	Stop() error
}

// IgnoreFunc reports whether a path should be neither watched nor reported.
type IgnoreFunc func(path string, isDir bool) bool

// Options configures a FileWatcher.
type Options struct {
	// Extensions to monitor, e.g. []string{".py"}. Empty means all files.
	Extensions []string

	// Debounce is the quiet period before firing the callback.
	// Zero means DefaultDebounce.
	Debounce time.Duration

	// Ignore filters directories and files. Nil ignores nothing.
	Ignore IgnoreFunc
}
