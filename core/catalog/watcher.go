package catalog

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of write events for the catalog file.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads the catalog when its file changes on disk and hands the
// fresh snapshot to the registered callback.
type Watcher struct {
	path     string
	debounce time.Duration
	onReload func(*Catalog)
	logger   *slog.Logger

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending *time.Timer
	stopped bool
}

// NewWatcher creates a watcher over the catalog file. onReload receives
// every successfully loaded snapshot; load failures are logged and the
// previous snapshot stays in effect.
func NewWatcher(path string, onReload func(*Catalog), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory: editors replace files by rename, which drops a
	// watch held on the file itself.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{
		path:     path,
		debounce: DefaultDebounce,
		onReload: onReload,
		logger:   logger,
		watcher:  fw,
	}, nil
}

// Start processes file events until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("catalog watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	c, err := Load(w.path)
	if err != nil {
		w.logger.Error("catalog reload failed, keeping previous snapshot",
			"path", w.path,
			"error", err,
		)
		return
	}

	w.logger.Info("catalog reloaded", "path", w.path, "tools", c.Len())
	w.onReload(c)
}

// Stop stops watching. Safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.stopped = true
	if w.pending != nil {
		w.pending.Stop()
	}
	w.watcher.Close()
}
