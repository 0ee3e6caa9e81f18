package core

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/user/vpn-bridge/internal/logger"
)

// session is the single established tunnel and its read loop.
type session struct {
	id     string
	gen    uint64
	handle Handle
	dead   atomic.Bool // set once the read loop saw the stream end
	cancel context.CancelFunc
	done   chan struct{}
}

// readLoop drains the tunnel until it is cancelled or the stream ends.
// Bytes read are discarded.
func (m *Manager) readLoop(ctx context.Context, s *session) {
	defer close(s.done)

	buf := make([]byte, m.opts.ReadBuffer)
	pause := time.NewTimer(0)
	if !pause.Stop() {
		<-pause.C
	}
	defer pause.Stop()

	for {
		n, err := s.handle.Read(buf)
		if ctx.Err() != nil {
			return
		}
		if err != nil || n <= 0 {
			s.dead.Store(true)
			if err != nil {
				logger.Warning("Tunnel read failed: %v", err)
			} else {
				logger.Warning("Tunnel stream closed")
			}
			select {
			case m.events <- TunnelClosed{gen: s.gen, err: err}:
			case <-ctx.Done():
			case <-m.done:
			}
			return
		}

		pause.Reset(m.opts.ReadPause)
		select {
		case <-ctx.Done():
			return
		case <-pause.C:
		}
	}
}

func (m *Manager) onTunnelClosed(e TunnelClosed) {
	if m.sess == nil || m.sess.gen != e.gen {
		return
	}
	m.reconcile()
}

// reconcile compares current liveness with the last reported status. A
// change is pushed to the stream; a change to false tears the session down.
func (m *Manager) reconcile() {
	if m.sess == nil || m.state != StateRunning {
		return
	}

	alive := m.eval.Alive(m.snap.Load())
	if alive && !m.deps.Notifier.ActiveVisible() {
		logger.Debug("Active notification missing, re-posting")
		if err := m.deps.Notifier.PresentActive(); err != nil {
			logger.Warning("Failed to re-post active notification: %v", err)
		}
	}

	if m.lastKnown != nil && *m.lastKnown == alive {
		return
	}

	logger.Connection("VPN alive -> %t", alive)
	m.emit(alive)

	if !alive {
		m.teardown("liveness lost")
	}
}
