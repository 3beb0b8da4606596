// Package watcher re-runs analysis when Java sources change.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is the quiet period before a batch of changes is reported.
const DefaultDebounce = 500 * time.Millisecond

// fileWatcher implements FileWatcher over fsnotify.
type fileWatcher struct {
	watcher      *fsnotify.Watcher
	logger       *logrus.Logger
	debounceTime time.Duration
	match        func(path string) bool
	skipDirs     map[string]bool
	callback     func(files []string)
	cancel       context.CancelFunc

	pending   map[string]bool // Changed files since the last callback
	pendingMu sync.Mutex

	stopOnce sync.Once
	doneCh   chan struct{}
}

// Option configures a file watcher.
type Option func(*fileWatcher)

// WithDebounce sets the quiet period before changes are reported.
func WithDebounce(d time.Duration) Option {
	return func(fw *fileWatcher) {
		if d > 0 {
			fw.debounceTime = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(fw *fileWatcher) { fw.logger = logger }
}

// WithMatcher decides which files are reported. The default reports .java files.
func WithMatcher(match func(path string) bool) Option {
	return func(fw *fileWatcher) { fw.match = match }
}

// WithSkipDirs names directories that are never watched.
func WithSkipDirs(names ...string) Option {
	return func(fw *fileWatcher) {
		for _, n := range names {
			fw.skipDirs[n] = true
		}
	}
}

// NewFileWatcher watches dirs and every directory below them.
func NewFileWatcher(dirs []string, opts ...Option) (FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &fileWatcher{
		watcher:      w,
		debounceTime: DefaultDebounce,
		match:        func(path string) bool { return filepath.Ext(path) == ".java" },
		skipDirs:     map[string]bool{".git": true},
		pending:      make(map[string]bool),
		doneCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(fw)
	}
	if fw.logger == nil {
		fw.logger = logrus.New()
	}

	for _, dir := range dirs {
		if err := fw.addRecursive(dir); err != nil {
			w.Close()
			return nil, err
		}
	}
	return fw, nil
}

// Start begins watching for file changes.
func (fw *fileWatcher) Start(ctx context.Context, callback func(files []string)) error {
	if callback == nil {
		return nil
	}
	fw.callback = callback

	ctx, fw.cancel = context.WithCancel(ctx)
	go fw.watch(ctx)
	return nil
}

// Stop stops the file watcher. It is safe to call more than once.
func (fw *fileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		if fw.cancel != nil {
			fw.cancel()
			<-fw.doneCh
		} else {
			close(fw.doneCh)
		}
		err = fw.watcher.Close()
	})
	return err
}

func (fw *fileWatcher) watch(ctx context.Context) {
	defer close(fw.doneCh)

	timer := time.NewTimer(fw.debounceTime)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fw.addRecursive(event.Name); err != nil {
						fw.logger.WithField("dir", event.Name).WithError(err).Warn("failed to watch new directory")
					}
					continue
				}
			}
			if !fw.relevant(event) {
				continue
			}
			fw.pendingMu.Lock()
			fw.pending[event.Name] = true
			fw.pendingMu.Unlock()
			timer.Reset(fw.debounceTime)

		case <-timer.C:
			if files := fw.drain(); len(files) > 0 {
				fw.callback(files)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.WithError(err).Warn("file watcher error")
		}
	}
}

// drain returns the pending files sorted and clears them.
func (fw *fileWatcher) drain() []string {
	fw.pendingMu.Lock()
	defer fw.pendingMu.Unlock()

	files := make([]string, 0, len(fw.pending))
	for f := range fw.pending {
		files = append(files, f)
	}
	sort.Strings(files)
	fw.pending = make(map[string]bool)
	return files
}

// relevant keeps writes, creations, removals and renames of matching files.
func (fw *fileWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	return fw.match(event.Name)
}

// addRecursive adds root and every directory below it that is not skipped.
func (fw *fileWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			fw.logger.WithField("path", path).WithError(err).Debug("skipping unreadable path")
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if path != root && fw.skipDirs[entry.Name()] {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			fw.logger.WithField("dir", path).WithError(err).Warn("failed to watch directory")
		}
		return nil
	})
}
