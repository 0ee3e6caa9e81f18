package apps

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/user/vpn-bridge/internal/logger"
)

// Event types.
const (
	EventRemoved = "removed"
	EventUpdated = "updated"
)

// Event reports a change to the installed applications.
type Event struct {
	Type        string `json:"type"`
	PackageName string `json:"packageName,omitempty"`
	Apps        []App  `json:"apps,omitempty"`
}

// settle coalesces the writes of a single install into one update.
const settle = 300 * time.Millisecond

// Watcher turns application directory changes into events.
type Watcher struct {
	catalog *Catalog
	emit    func(Event)

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	done    chan struct{}
	pending *time.Timer
}

// NewWatcher creates a watcher publishing to emit.
func NewWatcher(catalog *Catalog, emit func(Event)) *Watcher {
	return &Watcher{catalog: catalog, emit: emit}
}

// Start watches every existing application directory.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	watched := 0
	for _, dir := range w.catalog.Dirs() {
		if err := fsw.Add(dir); err != nil {
			logger.Debug("Not watching %s: %v", dir, err)
			continue
		}
		watched++
	}
	logger.Info("Watching %d application directories", watched)

	w.fsw = fsw
	w.done = make(chan struct{})
	go func(fsw *fsnotify.Watcher, done chan struct{}) {
		defer logger.Recover("apps-watcher")
		defer close(done)
		w.loop(fsw)
	}(fsw, w.done)
	return nil
}

// Stop closes the watcher. A pending update is dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fsw, done := w.fsw, w.done
	w.fsw = nil
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
	w.mu.Unlock()

	if fsw == nil {
		return
	}
	fsw.Close()
	<-done
}

func (w *Watcher) loop(fsw *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warning("Application watcher: %v", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !strings.HasSuffix(ev.Name, ".desktop") {
		return
	}
	id := strings.TrimSuffix(filepath.Base(ev.Name), ".desktop")

	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.catalog.forget(id)
		if w.catalog.Resolve(id) == nil {
			// still provided by another directory
			w.scheduleUpdate()
			return
		}
		logger.Info("Application removed: %s", id)
		w.emit(Event{Type: EventRemoved, PackageName: id})
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		w.catalog.forget(id)
		w.scheduleUpdate()
	}
}

func (w *Watcher) scheduleUpdate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return
	}
	if w.pending != nil {
		w.pending.Reset(settle)
		return
	}
	w.pending = time.AfterFunc(settle, w.publishUpdate)
}

func (w *Watcher) publishUpdate() {
	defer logger.Recover("apps-update")

	w.mu.Lock()
	w.pending = nil
	running := w.fsw != nil
	w.mu.Unlock()
	if !running {
		return
	}

	list, err := w.catalog.List()
	if err != nil {
		logger.Error("Listing applications: %v", err)
		return
	}
	w.emit(Event{Type: EventUpdated, Apps: list})
}
