//go:build linux

package host

import (
	"github.com/user/vpn-bridge/internal/config"
	"github.com/user/vpn-bridge/internal/connmon"
	"github.com/user/vpn-bridge/internal/consent"
	"github.com/user/vpn-bridge/internal/core"
	"github.com/user/vpn-bridge/internal/elevate"
	"github.com/user/vpn-bridge/internal/logger"
	"github.com/user/vpn-bridge/internal/notify"
	"github.com/user/vpn-bridge/internal/tun"
)

// platform holds the OS collaborators of the session manager.
type platform struct {
	newBuilder    func() core.Builder
	consent       *consent.Consent
	network       core.Network
	notifications notify.Backend
	sources       []connmon.Source
	closers       []func()
}

func newPlatform(cfg *config.Config, onLinkChange func(up bool)) (*platform, error) {
	p := &platform{
		network: connmon.NewTransportProbe(),
		sources: []connmon.Source{connmon.NewNetworkManagerSource()},
	}

	tunCfg := tun.Config{
		Name:         cfg.Tunnel.Name,
		MTU:          cfg.Tunnel.MTU,
		RouteMetric:  cfg.Tunnel.RouteMetric,
		OnLinkChange: onLinkChange,
	}
	p.newBuilder = func() core.Builder {
		return tunBuilder{tun.NewBuilder(tunCfg)}
	}

	var authority consent.Authority
	if pk, err := consent.NewPolkit(cfg.Consent.Action); err != nil {
		logger.Warning("Polkit unavailable, consent follows process privileges: %v", err)
	} else {
		authority = pk
		p.closers = append(p.closers, func() { pk.Close() })
	}
	p.consent = consent.New(authority, elevate.CanManageNetwork)
	if !elevate.CanManageNetwork() {
		logger.Warning("Process lacks CAP_NET_ADMIN; creating the tunnel will fail")
	}

	if b, err := notify.NewDBusBackend(cfg.Notifications.AppName); err != nil {
		logger.Warning("Desktop notifications unavailable, logging them instead: %v", err)
		p.notifications = notify.NewLogBackend()
	} else {
		p.notifications = b
		p.closers = append(p.closers, func() { b.Close() })
	}

	return p, nil
}

func (p *platform) close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
}

// tunBuilder narrows tun.Builder's concrete handle to core.Handle.
type tunBuilder struct {
	*tun.Builder
}

func (b tunBuilder) Establish() (core.Handle, error) {
	h, err := b.Builder.Establish()
	if err != nil {
		return nil, err
	}
	return h, nil
}

var _ core.Builder = tunBuilder{}
