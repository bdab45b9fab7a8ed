package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"VesselOSINT/internal/config"
)

const defaultDebounce = 500 * time.Millisecond

// Handler receives a debounced batch of changed files, sorted by path.
type Handler func(ctx context.Context, paths []string) error

// DirWatcher watches a drop directory and hands new or rewritten article files
// to the handler once writes settle.
type DirWatcher struct {
	dir        string
	debounce   time.Duration
	extensions map[string]bool
	handle     Handler
	logger     *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

// New builds a watcher. Files already present when Run starts are treated as new.
func New(cfg config.WatchConfig, handle Handler, logger *slog.Logger) (*DirWatcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("watch directory is required")
	}
	if handle == nil {
		return nil, fmt.Errorf("watch handler is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	extensions := make(map[string]bool)
	for _, ext := range cfg.Extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[ext] = true
	}
	if len(extensions) == 0 {
		extensions[".json"] = true
	}

	return &DirWatcher{
		dir:        cfg.Dir,
		debounce:   debounce,
		extensions: extensions,
		handle:     handle,
		logger:     logger,
		pending:    make(map[string]struct{}),
	}, nil
}

// Run blocks until ctx is cancelled or the underlying watcher fails.
func (w *DirWatcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create watch dir: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.queueExisting()

	w.logger.Info("watching drop directory", "dir", w.dir, "debounce", w.debounce)

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.observe(event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *DirWatcher) queueExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("list drop directory", "dir", w.dir, "error", err)
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, entry := range entries {
		path := filepath.Join(w.dir, entry.Name())
		if !entry.IsDir() && w.accepts(path) {
			w.pending[path] = struct{}{}
		}
	}
}

func (w *DirWatcher) observe(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !w.accepts(event.Name) {
		return
	}
	w.mu.Lock()
	w.pending[event.Name] = struct{}{}
	w.mu.Unlock()
	w.logger.Debug("article file changed", "path", event.Name, "op", event.Op.String())
}

func (w *DirWatcher) accepts(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return w.extensions[strings.ToLower(filepath.Ext(path))]
}

func (w *DirWatcher) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	// Vanished between the event and the flush.
	kept := paths[:0]
	for _, path := range paths {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			kept = append(kept, path)
		}
	}
	if len(kept) == 0 {
		return
	}
	sort.Strings(kept)

	if err := w.handle(ctx, kept); err != nil {
		w.logger.Error("process dropped files", "files", len(kept), "error", err)
	}
}
