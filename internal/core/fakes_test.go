package core

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"sync/atomic"
)

type readResult struct {
	n   int
	err error
}

type fakeHandle struct {
	reads      chan readResult
	closed     chan struct{}
	closeOnce  sync.Once
	closeCount atomic.Int32
	valid      atomic.Bool
}

func newFakeHandle() *fakeHandle {
	h := &fakeHandle{
		reads:  make(chan readResult, 8),
		closed: make(chan struct{}),
	}
	h.valid.Store(true)
	return h
}

func (h *fakeHandle) Read(p []byte) (int, error) {
	select {
	case r := <-h.reads:
		return r.n, r.err
	case <-h.closed:
		return 0, errors.New("file already closed")
	}
}

func (h *fakeHandle) Valid() bool { return h.valid.Load() }

func (h *fakeHandle) Close() error {
	h.closeCount.Add(1)
	h.valid.Store(false)
	h.closeOnce.Do(func() { close(h.closed) })
	return nil
}

type fakeTunnel struct {
	mu         sync.Mutex
	handles    []*fakeHandle
	excluded   [][]string
	addresses  []netip.Prefix
	routes     []netip.Prefix
	establishE error
}

func (f *fakeTunnel) NewBuilder() Builder { return &fakeBuilder{tunnel: f} }

func (f *fakeTunnel) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handles)
}

func (f *fakeTunnel) handle(i int) *fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handles[i]
}

func (f *fakeTunnel) lastExcluded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.excluded[len(f.excluded)-1]
}

type fakeBuilder struct {
	tunnel   *fakeTunnel
	address  netip.Prefix
	route    netip.Prefix
	excluded []string
}

func (b *fakeBuilder) AddAddress(p netip.Prefix) error { b.address = p; return nil }
func (b *fakeBuilder) AddRoute(p netip.Prefix) error   { b.route = p; return nil }

func (b *fakeBuilder) AddDisallowedApplication(pkg string) error {
	b.excluded = append(b.excluded, pkg)
	return nil
}

func (b *fakeBuilder) Establish() (Handle, error) {
	f := b.tunnel
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.establishE != nil {
		return nil, f.establishE
	}
	h := newFakeHandle()
	f.handles = append(f.handles, h)
	f.excluded = append(f.excluded, b.excluded)
	f.addresses = append(f.addresses, b.address)
	f.routes = append(f.routes, b.route)
	return h, nil
}

type fakeConsent struct {
	prepared atomic.Bool
	answers  chan bool
	requests atomic.Int32
}

func newFakeConsent(prepared bool) *fakeConsent {
	c := &fakeConsent{answers: make(chan bool, 1)}
	c.prepared.Store(prepared)
	return c
}

func (c *fakeConsent) Prepared() bool { return c.prepared.Load() }

func (c *fakeConsent) Request(ctx context.Context) (bool, error) {
	c.requests.Add(1)
	select {
	case v := <-c.answers:
		if v {
			c.prepared.Store(true)
		}
		return v, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

type fakeNetwork struct{ active atomic.Bool }

func (n *fakeNetwork) VPNTransportActive() bool { return n.active.Load() }

type fakeResolver map[string]bool

func (r fakeResolver) Resolve(pkg string) error {
	if !r[pkg] {
		return errors.New("package not found")
	}
	return nil
}

type fakePresenter struct {
	mu        sync.Mutex
	active    int
	inactive  int
	dismissed int
	visible   bool
	calls     []string
}

func (p *fakePresenter) PresentActive() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active++
	p.visible = true
	p.calls = append(p.calls, "active")
	return nil
}

func (p *fakePresenter) DismissActive() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dismissed++
	p.visible = false
	p.calls = append(p.calls, "dismiss")
	return nil
}

func (p *fakePresenter) PresentInactive(title, body string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inactive++
	p.calls = append(p.calls, "inactive")
	return nil
}

func (p *fakePresenter) ActiveVisible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}

func (p *fakePresenter) hide() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = false
}

func (p *fakePresenter) counts() (active, inactive int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active, p.inactive
}

func (p *fakePresenter) history() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}
