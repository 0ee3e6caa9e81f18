package core

import "context"

// event is a message processed by the session actor.
type event interface {
	isEvent()
}

type startResult struct {
	ok  bool
	err error
}

// StartRequested asks the actor to bring a session up.
type StartRequested struct {
	ctx        context.Context
	disallowed []string
	setList    bool
	reply      chan startResult
}

// UserStop is an explicit stop from the UI.
type UserStop struct {
	reply chan struct{}
}

// ConnectivityChanged runs a liveness reconciliation.
type ConnectivityChanged struct{}

// ConsentRevoked is the OS withdrawing VPN permission.
type ConsentRevoked struct{}

// TunnelClosed is sent by a read loop whose stream ended.
type TunnelClosed struct {
	gen uint64
	err error
}

type consentAnswered struct {
	gen     uint64
	granted bool
	err     error
}

type packagesUpdated struct {
	packages []string
}

type closeEvent struct{}

func (StartRequested) isEvent()      {}
func (UserStop) isEvent()            {}
func (ConnectivityChanged) isEvent() {}
func (ConsentRevoked) isEvent()      {}
func (TunnelClosed) isEvent()        {}
func (consentAnswered) isEvent()     {}
func (packagesUpdated) isEvent()     {}
func (closeEvent) isEvent()          {}

func (m *Manager) handle(ev event) {
	switch e := ev.(type) {
	case StartRequested:
		m.onStart(e)
	case consentAnswered:
		m.onConsent(e)
	case UserStop:
		m.onStop(e)
	case ConnectivityChanged:
		m.reconcile()
	case ConsentRevoked:
		m.onRevoke()
	case TunnelClosed:
		m.onTunnelClosed(e)
	case packagesUpdated:
		m.disallowed = e.packages
	}
}
