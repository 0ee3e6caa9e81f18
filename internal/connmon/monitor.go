package connmon

import (
	"fmt"
	"sync"
	"time"

	"github.com/user/vpn-bridge/internal/logger"
)

// Source delivers connectivity signals.
type Source interface {
	Start(signal func(reason string)) error
	Stop()
}

// Watcher debounces connectivity signals. Every signal restarts the delay;
// the reconcile callback runs once the signals have been quiet for it.
type Watcher struct {
	mu          sync.Mutex
	running     bool
	stopCh      chan struct{}
	doneCh      chan struct{}
	signals     chan string
	debounce    time.Duration
	onReconcile func()
	sources     []Source
}

// NewWatcher creates a watcher calling onReconcile after each burst.
func NewWatcher(debounce time.Duration, onReconcile func(), sources ...Source) *Watcher {
	if debounce <= 0 {
		debounce = 1500 * time.Millisecond
	}
	return &Watcher{
		signals:     make(chan string, 64),
		debounce:    debounce,
		onReconcile: onReconcile,
		sources:     sources,
	}
}

// Start begins watching. Sources that fail to start are logged and skipped.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	started := 0
	for _, src := range w.sources {
		if err := src.Start(w.Trigger); err != nil {
			logger.Warning("Connectivity source unavailable: %v", err)
			continue
		}
		started++
	}
	if len(w.sources) > 0 && started == 0 {
		logger.Warning("No connectivity source started; only tunnel events will trigger reconciliation")
	}

	go func() {
		defer logger.Recover("connmon-debounce")
		defer close(doneCh)
		w.loop(stopCh)
	}()
	return nil
}

// Stop stops the watcher and its sources. A pending reconcile is dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	doneCh := w.doneCh
	w.mu.Unlock()

	for _, src := range w.sources {
		src.Stop()
	}
	<-doneCh
}

// Trigger records a connectivity signal. It never blocks.
func (w *Watcher) Trigger(reason string) {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()
	if !running {
		return
	}

	select {
	case w.signals <- reason:
	default:
		// a queued signal will restart the delay anyway
	}
}

// LinkChanged adapts tunnel link events to Trigger.
func (w *Watcher) LinkChanged(up bool) {
	w.Trigger(fmt.Sprintf("tunnel link up=%t", up))
}

func (w *Watcher) loop(stopCh <-chan struct{}) {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-stopCh:
			return
		case reason := <-w.signals:
			logger.Debug("Connectivity signal: %s", reason)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.onReconcile()
		}
	}
}
