// Package watcher turns filesystem change bursts into single uploads. Each
// enabled watch config gets a trailing-edge debounce timer: the timer
// restarts on every matching event and the upload fires only after the
// folder has been quiet for the configured window.
package watcher

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/portside/shipper/internal/queue"
	"github.com/portside/shipper/internal/store"
)

// Watcher observes the folders of all enabled watch configs.
type Watcher struct {
	db   *store.DB
	orch *queue.Orchestrator
	fsw  *fsnotify.Watcher

	// reloadEvery is how often Run re-reads the watch configs so CLI
	// changes take effect without a restart.
	reloadEvery time.Duration

	mu      sync.Mutex
	configs map[string]store.WatchConfig // by config id
	watched map[string]int               // dir -> number of configs using it
	timers  map[string]*time.Timer       // pending debounce per config id
	last    map[string]string            // most recent matching path per config id

	ctx context.Context
}

// New builds a watcher. Call Run to start delivering events.
func New(db *store.DB, orch *queue.Orchestrator) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		db:          db,
		orch:        orch,
		fsw:         fsw,
		reloadEvery: 5 * time.Second,
		configs:     make(map[string]store.WatchConfig),
		watched:     make(map[string]int),
		timers:      make(map[string]*time.Timer),
		last:        make(map[string]string),
	}, nil
}

// Run loads the enabled configs and blocks delivering events until ctx is
// cancelled. Configs are re-read periodically, so watches added, changed or
// disabled through the store take effect without a restart; disabling a
// config cancels its pending debounce timer.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()

	if err := w.Reload(); err != nil {
		return err
	}
	log.Println("[watcher] started")

	reload := time.NewTicker(w.reloadEvery)
	defer reload.Stop()

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("[watcher] error: %v", err)
		case <-reload.C:
			if err := w.Reload(); err != nil {
				log.Printf("[watcher] reload failed: %v", err)
			}
		case <-ctx.Done():
			w.Close()
			log.Println("[watcher] stopped")
			return nil
		}
	}
}

// Reload re-reads the watch configs and reconciles the folder set. A
// config toggled to disabled has its pending debounce timer cancelled
// without enqueueing.
func (w *Watcher) Reload() error {
	watches, err := w.db.Watches()
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	fresh := make(map[string]store.WatchConfig)
	for _, cfg := range watches {
		if cfg.Enabled {
			cfg.FolderPath = filepath.Clean(cfg.FolderPath)
			fresh[cfg.ID] = cfg
		}
	}

	// Cancel timers for configs that disappeared or were disabled.
	for id, t := range w.timers {
		if _, ok := fresh[id]; !ok {
			t.Stop()
			delete(w.timers, id)
			delete(w.last, id)
		}
	}

	// Reconcile the set of watched directories.
	wanted := make(map[string]int)
	for _, cfg := range fresh {
		wanted[cfg.FolderPath]++
	}
	for dir := range w.watched {
		if wanted[dir] == 0 {
			if err := w.fsw.Remove(dir); err != nil {
				log.Printf("[watcher] cannot unwatch %s: %v", dir, err)
			}
			delete(w.watched, dir)
		}
	}
	for dir, n := range wanted {
		if w.watched[dir] == 0 {
			if err := w.fsw.Add(dir); err != nil {
				log.Printf("[watcher] cannot watch %s: %v", dir, err)
				continue
			}
		}
		w.watched[dir] = n
	}

	w.configs = fresh
	return nil
}

// Close stops fsnotify and cancels all pending timers.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for id, t := range w.timers {
		t.Stop()
		delete(w.timers, id)
	}
	w.mu.Unlock()
	return w.fsw.Close()
}

// matches reports whether name matches any glob pattern. An empty pattern
// set matches every file.
func matches(patterns []string, name string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

// handleEvent routes one raw filesystem event to every config watching the
// file's directory, restarting that config's debounce timer.
func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	base := filepath.Base(ev.Name)
	if base == "" || base[0] == '.' {
		return
	}
	dir := filepath.Dir(ev.Name)

	w.mu.Lock()
	defer w.mu.Unlock()

	for id, cfg := range w.configs {
		if cfg.FolderPath != dir || !matches(cfg.Patterns, base) {
			continue
		}

		w.last[id] = ev.Name
		if t, ok := w.timers[id]; ok {
			t.Stop()
		}

		idCopy := id
		window := time.Duration(cfg.DebounceMs) * time.Millisecond
		w.timers[idCopy] = time.AfterFunc(window, func() {
			w.fire(idCopy)
		})
	}
}

// fire enqueues exactly one task for the config using the most recently
// changed matching file, then runs the queue in the background.
func (w *Watcher) fire(id string) {
	w.mu.Lock()
	cfg, ok := w.configs[id]
	path := w.last[id]
	delete(w.timers, id)
	delete(w.last, id)
	ctx := w.ctx
	w.mu.Unlock()

	if !ok || path == "" {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	q := w.orch.NewQueue()
	task, err := q.Enqueue(path, cfg.ServerID, cfg.PathKey, false)
	if err != nil {
		log.Printf("[watcher] %s: enqueue failed: %v", cfg.FolderPath, err)
		return
	}
	log.Printf("[watcher] %s settled: uploading %s", cfg.FolderPath, task.Filename)

	go func() {
		if err := q.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[watcher] queue aborted: %v", err)
		}
	}()
}
