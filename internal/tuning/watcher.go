package tuning

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 400 * time.Millisecond

// Watcher re-applies the active profile when its file changes on disk.
// External tools (the tuning UI, manual edits) write profile files without
// going through the API; without this the in-memory config would drift
// from what the operator believes is active.
type Watcher struct {
	store   *FSStore
	manager *Manager
	logger  *zap.Logger

	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	timers   map[string]*time.Timer
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher over the store's profile directory.
func NewWatcher(store *FSStore, manager *Manager, logger *zap.Logger) *Watcher {
	return &Watcher{
		store:   store,
		manager: manager,
		logger:  logger,
		timers:  make(map[string]*time.Timer),
		done:    make(chan struct{}),
	}
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.store.Dir()); err != nil {
		_ = fsw.Close()
		return err
	}
	w.watcher = fsw
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("profile watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return
	}
	name := strings.TrimSuffix(filepath.Base(ev.Name), profileExt)
	if !strings.HasSuffix(ev.Name, profileExt) || name != w.manager.ActiveProfile() {
		return
	}

	// Editors fire several writes per save; debounce per profile.
	w.mu.Lock()
	if t, ok := w.timers[name]; ok {
		t.Stop()
	}
	w.timers[name] = time.AfterFunc(reloadDebounce, func() {
		if w.manager.ActivateProfile(name) {
			w.logger.Info("active profile reloaded from disk", zap.String("profile", name))
		}
	})
	w.mu.Unlock()
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		if w.watcher != nil {
			_ = w.watcher.Close()
		}
		w.mu.Lock()
		for _, t := range w.timers {
			t.Stop()
		}
		w.mu.Unlock()
	})
}
