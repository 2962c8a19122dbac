package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()
	w, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

// runWatcher starts Run in the background and returns the channel of
// delivered batches.
func runWatcher(t *testing.T, w *Watcher, debounce time.Duration) <-chan []string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	batches := make(chan []string, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx, debounce, func(paths []string) { batches <- paths })
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return batches
}

func TestWatch_Recursive(t *testing.T) {
	w := newTestWatcher(t)

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "f.txt"), []byte("x"), 0o644))

	require.NoError(t, w.Watch(root))
	assert.Equal(t, 3, w.Watched())

	// Watching twice does not add duplicates.
	require.NoError(t, w.Watch(root))
	assert.Equal(t, 3, w.Watched())
}

func TestWatch_NonExistent(t *testing.T) {
	w := newTestWatcher(t)
	assert.Error(t, w.Watch(filepath.Join(t.TempDir(), "missing")))
}

func TestRun_DebouncesBurst(t *testing.T) {
	w := newTestWatcher(t)
	root := t.TempDir()
	require.NoError(t, w.Watch(root))

	batches := runWatcher(t, w, 100*time.Millisecond)

	path := filepath.Join(root, "a.txt")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i)}, 0o644))
	}

	select {
	case batch := <-batches:
		assert.Equal(t, []string{path}, batch)
	case <-time.After(5 * time.Second):
		t.Fatal("no change batch delivered")
	}

	select {
	case extra := <-batches:
		t.Fatalf("unexpected second batch: %v", extra)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestRun_IgnoresManifestFiles(t *testing.T) {
	w := newTestWatcher(t)
	root := t.TempDir()
	require.NoError(t, w.Watch(root))

	batches := runWatcher(t, w, 50*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "checks.md5"), []byte("a:b\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "checks.tree"), []byte("/a\n"), 0o644))

	select {
	case batch := <-batches:
		t.Fatalf("manifest writes reported as changes: %v", batch)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestRun_WatchesNewDirectories(t *testing.T) {
	w := newTestWatcher(t)
	root := t.TempDir()
	require.NoError(t, w.Watch(root))

	batches := runWatcher(t, w, 100*time.Millisecond)

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	select {
	case <-batches:
	case <-time.After(5 * time.Second):
		t.Fatal("directory creation not reported")
	}
	require.Eventually(t, func() bool { return w.Watched() == 2 }, 2*time.Second, 20*time.Millisecond)

	nested := filepath.Join(sub, "n.txt")
	require.NoError(t, os.WriteFile(nested, []byte("n"), 0o644))

	select {
	case batch := <-batches:
		assert.Contains(t, batch, nested)
	case <-time.After(5 * time.Second):
		t.Fatal("change in new directory not reported")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	w := newTestWatcher(t)
	require.NoError(t, w.Watch(t.TempDir()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx, time.Second, nil)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestIsSubPath(t *testing.T) {
	sep := string(filepath.Separator)
	assert.True(t, isSubPath(sep+"a"+sep+"b", sep+"a"))
	assert.False(t, isSubPath(sep+"ab", sep+"a"))
	assert.False(t, isSubPath(sep+"a", sep+"a"))
}
