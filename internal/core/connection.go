package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/user/vpn-bridge/internal/logger"
)

// ErrClosed is returned when the manager has been shut down.
var ErrClosed = errors.New("session manager closed")

// Start brings the session up. A nil disallowed list keeps the packages set
// earlier; a non-nil list replaces them. It returns false when the user
// denies consent or the start is cancelled, and true once RUNNING.
func (m *Manager) Start(ctx context.Context, disallowed []string) (bool, error) {
	ev := StartRequested{
		ctx:   ctx,
		reply: make(chan startResult, 1),
	}
	if disallowed != nil {
		ev.disallowed = append([]string(nil), disallowed...)
		ev.setList = true
	}

	if !m.post(ev) {
		return false, ErrClosed
	}

	select {
	case r := <-ev.reply:
		return r.ok, r.err
	case <-ctx.Done():
		return false, ctx.Err()
	case <-m.done:
		return false, ErrClosed
	}
}

// Stop tears the session down and returns once teardown has completed.
// Stopping a stopped manager is a no-op.
func (m *Manager) Stop(ctx context.Context) bool {
	ev := UserStop{reply: make(chan struct{})}
	if !m.post(ev) {
		return true
	}

	select {
	case <-ev.reply:
	case <-m.done:
	case <-ctx.Done():
		logger.Warning("Stop wait abandoned: %v", ctx.Err())
	}
	return true
}

// SetDisallowedPackages replaces the exclusion list used by the next start.
func (m *Manager) SetDisallowedPackages(packages []string) bool {
	m.post(packagesUpdated{packages: append([]string(nil), packages...)})
	return true
}

// Revoke handles the OS withdrawing VPN permission. The manager stays
// stopped until the next explicit Start.
func (m *Manager) Revoke() {
	m.post(ConsentRevoked{})
}

// Reconcile re-evaluates liveness on the actor.
func (m *Manager) Reconcile() {
	m.post(ConnectivityChanged{})
}

func (m *Manager) onStart(e StartRequested) {
	if e.setList {
		m.disallowed = e.disallowed
	}

	switch m.state {
	case StateRunning:
		e.reply <- startResult{ok: true}
		return
	case StateStarting:
		m.pending = append(m.pending, e.reply)
		return
	}

	m.state = StateStarting
	m.pending = append(m.pending, e.reply)
	m.gen++
	m.publish()

	if m.deps.Consent.Prepared() {
		m.establish()
		return
	}

	logger.Connection("Requesting VPN consent")
	ctx, cancel := context.WithCancel(e.ctx)
	m.consentCancel = cancel
	gen := m.gen
	go func() {
		defer logger.Recover("consent-request")
		granted, err := m.deps.Consent.Request(ctx)
		m.post(consentAnswered{gen: gen, granted: granted, err: err})
	}()
}

func (m *Manager) onConsent(e consentAnswered) {
	if m.state != StateStarting || e.gen != m.gen {
		return
	}
	if m.consentCancel != nil {
		m.consentCancel()
		m.consentCancel = nil
	}

	if e.err != nil {
		logger.Warning("Consent request failed: %v", e.err)
	}
	if e.err != nil || !e.granted {
		logger.Connection("VPN consent denied")
		m.finishStart(startResult{ok: false})
		return
	}

	m.establish()
}

// establish builds the interface. Runs on the actor with state STARTING.
func (m *Manager) establish() {
	b := m.deps.NewBuilder()
	if err := b.AddAddress(m.opts.Address); err != nil {
		m.finishStart(startResult{err: fmt.Errorf("add address: %w", err)})
		return
	}
	if err := b.AddRoute(m.opts.Route); err != nil {
		m.finishStart(startResult{err: fmt.Errorf("add route: %w", err)})
		return
	}

	for _, pkg := range m.disallowed {
		if m.deps.Packages != nil {
			if err := m.deps.Packages.Resolve(pkg); err != nil {
				logger.Warning("Could not disallow %s: %v", pkg, err)
				continue
			}
		}
		if err := b.AddDisallowedApplication(pkg); err != nil {
			logger.Warning("Could not disallow %s: %v", pkg, err)
		}
	}

	handle, err := b.Establish()
	if err != nil {
		logger.Error("Failed to establish tunnel: %v", err)
		m.finishStart(startResult{err: fmt.Errorf("establish tunnel: %w", err)})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:     uuid.NewString(),
		gen:    m.gen,
		handle: handle,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.sess = s
	m.state = StateRunning
	m.publish()

	logger.WithFields(logrus.Fields{"session": s.id}).Info("VPN session established")

	m.emit(true)
	if err := m.deps.Notifier.PresentActive(); err != nil {
		logger.Warning("Failed to post active notification: %v", err)
	}

	go func() {
		defer logger.Recover("tunnel-read-loop")
		m.readLoop(ctx, s)
	}()

	m.finishStart(startResult{ok: true})
}

// finishStart answers every caller waiting on the current start.
func (m *Manager) finishStart(r startResult) {
	if !r.ok && m.state == StateStarting {
		m.state = StateStopped
		m.publish()
	}
	for _, reply := range m.pending {
		reply <- r
	}
	m.pending = nil
}

// abortStart cancels a start that is waiting for consent.
func (m *Manager) abortStart() {
	if m.consentCancel != nil {
		m.consentCancel()
		m.consentCancel = nil
	}
	logger.Connection("Pending start cancelled")
	m.finishStart(startResult{ok: false})
}

func (m *Manager) onStop(e UserStop) {
	defer close(e.reply)

	switch m.state {
	case StateStarting:
		m.abortStart()
	case StateRunning:
		m.teardown("user stop")
	default:
		logger.Debug("Stop ignored: session already stopped")
	}
}

func (m *Manager) onRevoke() {
	logger.Connection("VPN permission revoked by the system")
	switch m.state {
	case StateStarting:
		m.abortStart()
	case StateRunning:
		m.teardown("revoked")
	}
}

// teardown stops the read loop, releases the handle and reports the session
// as stopped. The loop is cancelled before the handle is closed and has
// exited before teardown returns. The active notification is removed before
// the inactive one is posted.
func (m *Manager) teardown(reason string) {
	s := m.sess
	m.state = StateStopping
	m.publish()

	s.cancel()
	if err := s.handle.Close(); err != nil {
		logger.Warning("Failed to close tunnel: %v", err)
	}
	<-s.done
	if err := m.deps.Notifier.DismissActive(); err != nil {
		logger.Warning("Failed to remove active notification: %v", err)
	}

	m.sess = nil
	m.state = StateStopped
	m.publish()

	logger.WithFields(logrus.Fields{
		"session": s.id,
		"reason":  reason,
	}).Info("VPN session stopped")

	m.emit(false)
	if err := m.deps.Notifier.PresentInactive("", ""); err != nil {
		logger.Warning("Failed to post inactive notification: %v", err)
	}
}
