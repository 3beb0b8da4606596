package watcher

import "context"

// FileWatcher reports debounced batches of changed source files.
type FileWatcher interface {
	// Start begins watching, calling callback with each batch of changed files.
	// Callbacks run one at a time on the watch goroutine.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the watcher and waits for the watch goroutine to exit.
	Stop() error
}

// Analyzer re-runs analysis after sources changed.
type Analyzer interface {
	Analyze(ctx context.Context, changed []string) error
}
