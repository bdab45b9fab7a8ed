package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VesselOSINT/internal/config"
)

type recorder struct {
	mu    sync.Mutex
	seen  map[string]int
	calls int
}

func (r *recorder) handle(_ context.Context, paths []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen == nil {
		r.seen = make(map[string]int)
	}
	r.calls++
	for _, p := range paths {
		r.seen[filepath.Base(p)]++
	}
	return nil
}

func (r *recorder) has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen[name] > 0
}

func startWatcher(t *testing.T, dir string, rec *recorder) {
	t.Helper()
	w, err := New(config.WatchConfig{Dir: dir, Debounce: 20 * time.Millisecond, Extensions: []string{"json"}}, rec.handle, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.True(t, errors.Is(err, context.Canceled))
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})
}

func TestExistingFilesAreQueued(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "early.json"), []byte("[]"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	rec := &recorder{}
	startWatcher(t, dir, rec)

	require.Eventually(t, func() bool { return rec.has("early.json") }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, rec.has("notes.txt"))
}

func TestNewFilesAreDelivered(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, dir, rec)

	// Give the watcher a moment to register.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "batch.JSON"), []byte("[]"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".partial.json"), []byte("["), 0o600))

	require.Eventually(t, func() bool { return rec.has("batch.JSON") }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, rec.has(".partial.json"))
}

func TestNewRequiresDirAndHandler(t *testing.T) {
	_, err := New(config.WatchConfig{}, func(context.Context, []string) error { return nil }, nil)
	assert.Error(t, err)

	_, err = New(config.WatchConfig{Dir: t.TempDir()}, nil, nil)
	assert.Error(t, err)
}
