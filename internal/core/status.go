package core

import (
	"sync"

	"github.com/user/vpn-bridge/internal/logger"
)

// Status recomputes liveness. It never returns a cached value and may be
// called from any goroutine.
func (m *Manager) Status() bool {
	return m.eval.Alive(m.snap.Load())
}

// State returns the lifecycle state last published by the actor.
func (m *Manager) State() State {
	return m.snap.Load().state
}

// SessionID returns the id of the running session, or "".
func (m *Manager) SessionID() string {
	return m.snap.Load().sessionID
}

// Subscribe returns the status stream. The last known status, if any, is
// delivered first.
func (m *Manager) Subscribe() (<-chan bool, func()) {
	return m.stream.Subscribe()
}

const subscriberBuffer = 16

// StatusStream fans boolean status transitions out to subscribers.
type StatusStream struct {
	mu     sync.Mutex
	last   *bool
	subs   map[int]chan bool
	nextID int
	closed bool
}

// NewStatusStream creates an empty stream.
func NewStatusStream() *StatusStream {
	return &StatusStream{subs: make(map[int]chan bool)}
}

// Publish records v and delivers it to every subscriber. A subscriber that
// has fallen behind loses its oldest value.
func (s *StatusStream) Publish(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.last = &v
	for id, ch := range s.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
				logger.Warning("Status subscriber %d dropped a value", id)
			}
		}
	}
}

// Last returns the last published value and whether one exists.
func (s *StatusStream) Last() (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return false, false
	}
	return *s.last, true
}

// Subscribe registers a subscriber. The returned func unsubscribes.
func (s *StatusStream) Subscribe() (<-chan bool, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan bool, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	if s.last != nil {
		ch <- *s.last
	}

	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Close ends every subscription.
func (s *StatusStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}
