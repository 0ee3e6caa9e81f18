package core

import "sync/atomic"

// Observation is an instantaneous liveness judgment.
type Observation struct {
	Running               bool
	TunnelDescriptorValid bool
	ConsentStillGranted   bool
	VPNTransportActive    bool
}

// Evaluate reports whether the session is genuinely alive. Every field must
// hold.
func Evaluate(o Observation) bool {
	return o.Running &&
		o.TunnelDescriptorValid &&
		o.ConsentStillGranted &&
		o.VPNTransportActive
}

// snapshot is the session state published by the actor.
type snapshot struct {
	state     State
	sessionID string
	handle    Handle
	dead      *atomic.Bool
}

// Evaluator gathers observations from the OS. It only reads and is safe
// for concurrent use.
type Evaluator struct {
	consent Consent
	network Network
}

// NewEvaluator creates an evaluator.
func NewEvaluator(consent Consent, network Network) *Evaluator {
	return &Evaluator{consent: consent, network: network}
}

// Observe collects an observation for s.
func (e *Evaluator) Observe(s *snapshot) Observation {
	var o Observation
	if s == nil || s.state != StateRunning || s.handle == nil {
		return o
	}
	o.Running = true
	o.TunnelDescriptorValid = !s.dead.Load() && s.handle.Valid()
	o.ConsentStillGranted = e.consent.Prepared()
	o.VPNTransportActive = e.network.VPNTransportActive()
	return o
}

// Alive observes s and evaluates the result.
func (e *Evaluator) Alive(s *snapshot) bool {
	return Evaluate(e.Observe(s))
}
