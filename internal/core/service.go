// Package core owns the single VPN session: its start/stop lifecycle, the
// background read loop that notices tunnel death, and liveness reconciliation.
package core

import (
	"context"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/vpn-bridge/internal/logger"
)

// State represents the session lifecycle state.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// Handle is an established tunnel descriptor.
type Handle interface {
	// Read returns the number of bytes read. Zero or an error means the
	// stream is gone.
	Read(p []byte) (int, error)
	Valid() bool
	Close() error
}

// Builder assembles and establishes the virtual interface.
type Builder interface {
	AddAddress(prefix netip.Prefix) error
	AddRoute(prefix netip.Prefix) error
	AddDisallowedApplication(pkg string) error
	Establish() (Handle, error)
}

// Consent reports and requests the user's permission to run a VPN.
type Consent interface {
	// Prepared reports whether a start would proceed without prompting.
	Prepared() bool
	// Request prompts the user and blocks until they answer or ctx ends.
	Request(ctx context.Context) (bool, error)
}

// Network reports system-wide transport state.
type Network interface {
	VPNTransportActive() bool
}

// PackageResolver checks that an application identifier is installed.
type PackageResolver interface {
	Resolve(pkg string) error
}

// Presenter posts session notifications.
type Presenter interface {
	PresentActive() error
	DismissActive() error
	PresentInactive(title, body string) error
	ActiveVisible() bool
}

// Deps are the platform collaborators the manager drives.
type Deps struct {
	NewBuilder func() Builder
	Consent    Consent
	Network    Network
	Packages   PackageResolver
	Notifier   Presenter
}

// Options tune the session.
type Options struct {
	Address    netip.Prefix
	Route      netip.Prefix
	ReadBuffer int
	ReadPause  time.Duration
}

// DefaultOptions returns the stock tunnel layout and read-loop timings.
func DefaultOptions() Options {
	return Options{
		Address:    netip.MustParsePrefix("10.1.1.1/32"),
		Route:      netip.MustParsePrefix("0.0.0.0/0"),
		ReadBuffer: 1024,
		ReadPause:  500 * time.Millisecond,
	}
}

// Manager is the single owner of the VPN session. All mutations run on one
// actor goroutine fed by the events channel.
type Manager struct {
	deps   Deps
	opts   Options
	eval   *Evaluator
	stream *StatusStream

	events    chan event
	done      chan struct{}
	closeOnce sync.Once

	// published by the actor for lock-free readers
	snap atomic.Pointer[snapshot]

	// actor-owned
	state         State
	sess          *session
	disallowed    []string
	lastKnown     *bool
	pending       []chan startResult
	consentCancel context.CancelFunc
	gen           uint64
}

// NewManager creates a manager and starts its actor.
func NewManager(deps Deps, opts Options) *Manager {
	def := DefaultOptions()
	if !opts.Address.IsValid() {
		opts.Address = def.Address
	}
	if !opts.Route.IsValid() {
		opts.Route = def.Route
	}
	if opts.ReadBuffer <= 0 {
		opts.ReadBuffer = def.ReadBuffer
	}
	if opts.ReadPause < 0 {
		opts.ReadPause = def.ReadPause
	}

	m := &Manager{
		deps:   deps,
		opts:   opts,
		eval:   NewEvaluator(deps.Consent, deps.Network),
		stream: NewStatusStream(),
		events: make(chan event, 16),
		done:   make(chan struct{}),
		state:  StateStopped,
	}
	m.publish()

	go func() {
		defer logger.Recover("session-actor")
		m.run()
	}()

	return m
}

func (m *Manager) run() {
	defer close(m.done)
	for ev := range m.events {
		if _, ok := ev.(closeEvent); ok {
			m.shutdown()
			return
		}
		m.handle(ev)
	}
}

// Close tears down any running session and stops the actor.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.post(closeEvent{})
	})
	<-m.done
}

// post hands ev to the actor. It returns false once the actor has exited.
func (m *Manager) post(ev event) bool {
	select {
	case m.events <- ev:
		return true
	case <-m.done:
		return false
	}
}

func (m *Manager) shutdown() {
	if m.state == StateStarting {
		m.abortStart()
	}
	if m.state == StateRunning {
		m.teardown("shutdown")
	}
	m.stream.Close()
}

// publish refreshes the snapshot read by Status.
func (m *Manager) publish() {
	s := &snapshot{state: m.state}
	if m.sess != nil {
		s.sessionID = m.sess.id
		s.handle = m.sess.handle
		s.dead = &m.sess.dead
	}
	m.snap.Store(s)
}

// emit pushes v to the status stream when it differs from the last value.
func (m *Manager) emit(v bool) {
	if m.lastKnown != nil && *m.lastKnown == v {
		return
	}
	m.lastKnown = &v
	m.stream.Publish(v)
}
