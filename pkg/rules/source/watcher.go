package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher reloads a file-backed ruleset when the underlying files change.
// Rapid event bursts (editors write-rename-chmod in quick succession) are
// debounced into a single reload.
type Watcher struct {
	source   *FileSource
	store    *Store
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewWatcher creates a watcher that reloads from source into store on
// changes under the source's path.
func NewWatcher(source *FileSource, store *Store) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		source:   source,
		store:    store,
		watcher:  fw,
		debounce: defaultDebounce,
		logger:   slog.Default().With("component", "rules.source.watcher"),
	}, nil
}

// Watch blocks, processing filesystem events until ctx is done. A reload
// that fails (parse or validation error) is logged and the previously
// installed ruleset stays active.
func (w *Watcher) Watch(ctx context.Context) error {
	if err := w.addPath(w.source.Path()); err != nil {
		return fmt.Errorf("failed to watch %q: %w", w.source.Path(), err)
	}

	w.logger.Info("ruleset watcher started",
		"path", w.source.Path(),
		"debounce_ms", w.debounce.Milliseconds(),
	)

	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("ruleset watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !relevantEvent(event) {
				continue
			}
			w.logger.Debug("ruleset file event", "path", event.Name, "op", event.Op.String())
			w.scheduleReload(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			// Keep watching; transient inotify errors are not fatal.
			w.logger.Error("ruleset watcher error", "error", err)
		}
	}
}

// scheduleReload arms the debounce timer, replacing any pending reload.
func (w *Watcher) scheduleReload(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.reload(ctx)
	})
}

func (w *Watcher) reload(ctx context.Context) {
	rs, err := w.source.Load(ctx)
	if err != nil {
		w.logger.Error("ruleset reload failed, keeping previous ruleset", "error", err)
		return
	}
	w.store.Swap(rs)
}

func (w *Watcher) stop() {
	w.mu.Lock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	if err := w.watcher.Close(); err != nil {
		w.logger.Error("failed to close fsnotify watcher", "error", err)
	}
}

// addPath registers the path with fsnotify. Directories are walked so
// nested ruleset files are covered; for a single file the parent directory
// is watched, which survives editor rename-and-replace saves.
func (w *Watcher) addPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return w.watcher.Add(filepath.Dir(path))
	}

	return filepath.Walk(path, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(filepath.Base(p), ".") && p != path {
			if fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if fi.IsDir() {
			return w.watcher.Add(p)
		}
		return nil
	})
}

// relevantEvent filters out chmod noise and non-YAML files.
func relevantEvent(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	return ext == ".yaml" || ext == ".yml"
}
