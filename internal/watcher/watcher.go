// Package watcher triggers a content sync when bundle files change on disk.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/example/dojang/internal/content"
)

// DefaultDebounce batches the burst of events an editor or copy produces.
const DefaultDebounce = 2 * time.Second

// Trigger is called once per burst of changes.
type Trigger func(ctx context.Context)

// Watcher watches the bundle root and its domain subdirectories for
// changes to JSON files. fsnotify is not recursive, so each directory is
// added on its own.
type Watcher struct {
	watcher  *fsnotify.Watcher
	events   <-chan fsnotify.Event
	errors   <-chan error
	root     string
	debounce time.Duration
	trigger  Trigger
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a watcher for the bundle at root.
func New(root string, debounce time.Duration, trigger Trigger, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	w := newWatcher(fw.Events, fw.Errors, debounce, trigger, logger)
	w.watcher = fw
	w.root = root
	return w, nil
}

func newWatcher(events <-chan fsnotify.Event, errs <-chan error, debounce time.Duration, trigger Trigger, logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		events:   events,
		errors:   errs,
		debounce: debounce,
		trigger:  trigger,
		logger:   logger,
	}
}

// Start adds the watched directories and runs the event loop in a goroutine.
// A missing domain subdirectory is skipped; the flat layout lives in root.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	if w.watcher != nil {
		if err := w.watcher.Add(w.root); err != nil {
			return fmt.Errorf("failed to watch %s: %w", w.root, err)
		}
		for _, d := range content.Domains() {
			dir := filepath.Join(w.root, d.Subdir())
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				continue
			}
			if err := w.watcher.Add(dir); err != nil {
				w.logger.Warn("Failed to watch content directory", zap.String("dir", dir), zap.Error(err))
			}
		}
		w.logger.Info("Watching content bundle", zap.String("root", w.root))
	}

	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true
	go w.run(ctx)
	return nil
}

// Stop ends the event loop and waits for it. A trigger already running is
// allowed to finish.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if w.watcher != nil {
		if err := w.watcher.Close(); err != nil {
			return fmt.Errorf("failed to close watcher: %w", err)
		}
	}
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	// fire is nil while no change is pending.
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case ev, ok := <-w.events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			w.logger.Debug("Content file changed", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			fire = time.After(w.debounce)

		case err, ok := <-w.errors:
			if !ok {
				return
			}
			w.logger.Warn("Content watcher error", zap.Error(err))

		case <-fire:
			fire = nil
			w.logger.Info("Content bundle changed, synchronizing")
			w.trigger(ctx)
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(ev.Name), ".json") {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) ||
		ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}
