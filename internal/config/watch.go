package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/user/vpn-bridge/internal/logger"
)

const reloadDelay = 500 * time.Millisecond

// Watch reloads the file whenever it changes on disk and passes the new
// effective configuration to onChange. The directory is watched so editors
// that replace the file are seen too. The returned func stops watching.
func (m *Manager) Watch(onChange func(*Config)) (func(), error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	dir := filepath.Dir(m.path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	var (
		mu      sync.Mutex
		timer   *time.Timer
		stopped bool
	)
	done := make(chan struct{})
	name := filepath.Clean(m.path)

	go func() {
		defer close(done)
		defer logger.Recover("config-watch")
		for {
			select {
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != name {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				logger.Debug("Config file event %s", ev.Op)

				mu.Lock()
				if !stopped {
					if timer != nil {
						timer.Stop()
					}
					timer = time.AfterFunc(reloadDelay, func() {
						m.reloadAndNotify(onChange)
					})
				}
				mu.Unlock()
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				logger.Warning("Config watcher error: %v", err)
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			fsw.Close()
			<-done
			mu.Lock()
			stopped = true
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
		})
	}
	return stop, nil
}

func (m *Manager) reloadAndNotify(onChange func(*Config)) {
	changed, err := m.Reload()
	if err != nil {
		logger.Warning("Keeping previous configuration: %v", err)
		return
	}
	if !changed {
		return
	}
	logger.Info("Configuration reloaded from %s", m.path)
	onChange(m.Get())
}
