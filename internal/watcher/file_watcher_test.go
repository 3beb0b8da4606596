package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for FileWatcher:
// - NewFileWatcher fails on a missing directory
// - A .java change fires the callback after the debounce period
// - Rapid changes are batched, deduplicated and sorted
// - Non-matching files are ignored
// - New directories are watched, skipped directories are not
// - Stop is idempotent and safe without Start

const testDebounce = 100 * time.Millisecond

type batches struct {
	mu  sync.Mutex
	got [][]string
	ch  chan struct{}
}

func newBatches() *batches {
	return &batches{ch: make(chan struct{}, 16)}
}

func (b *batches) record(files []string) {
	b.mu.Lock()
	b.got = append(b.got, files)
	b.mu.Unlock()
	b.ch <- struct{}{}
}

func (b *batches) wait(t *testing.T) []string {
	t.Helper()
	select {
	case <-b.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("callback not called")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.got[len(b.got)-1]
}

func (b *batches) none(t *testing.T) {
	t.Helper()
	select {
	case <-b.ch:
		t.Fatal("unexpected callback")
	case <-time.After(4 * testDebounce):
	}
}

func startWatcher(t *testing.T, dir string, opts ...Option) *batches {
	t.Helper()
	fw, err := NewFileWatcher([]string{dir}, append([]Option{WithDebounce(testDebounce)}, opts...)...)
	require.NoError(t, err)
	b := newBatches()
	require.NoError(t, fw.Start(context.Background(), b.record))
	t.Cleanup(func() { require.NoError(t, fw.Stop()) })
	return b
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewFileWatcher_InvalidDirectory(t *testing.T) {
	t.Parallel()

	fw, err := NewFileWatcher([]string{filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
	assert.Nil(t, fw)
}

func TestFileWatcher_SingleChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	b := startWatcher(t, dir)

	path := filepath.Join(dir, "Main.java")
	write(t, path, "class Main {}")

	assert.Equal(t, []string{path}, b.wait(t))
}

func TestFileWatcher_BatchesChanges(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	b := startWatcher(t, dir)

	a := filepath.Join(dir, "A.java")
	c := filepath.Join(dir, "C.java")
	write(t, c, "class C {}")
	write(t, a, "class A {}")
	write(t, a, "class A { int x; }")

	assert.Equal(t, []string{a, c}, b.wait(t))
}

func TestFileWatcher_IgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	b := startWatcher(t, dir)

	write(t, filepath.Join(dir, "notes.txt"), "hello")
	b.none(t)
}

func TestFileWatcher_NewAndSkippedDirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	skipped := filepath.Join(dir, "target")
	require.NoError(t, os.Mkdir(skipped, 0o755))
	b := startWatcher(t, dir, WithSkipDirs("target"))

	write(t, filepath.Join(skipped, "Gen.java"), "class Gen {}")
	b.none(t)

	pkg := filepath.Join(dir, "app")
	require.NoError(t, os.Mkdir(pkg, 0o755))
	// Give the watch loop time to add the new directory.
	time.Sleep(2 * testDebounce)

	path := filepath.Join(pkg, "Service.java")
	write(t, path, "class Service {}")
	assert.Equal(t, []string{path}, b.wait(t))
}

func TestFileWatcher_StopIdempotent(t *testing.T) {
	t.Parallel()

	fw, err := NewFileWatcher([]string{t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, fw.Stop())
	require.NoError(t, fw.Stop())
}
