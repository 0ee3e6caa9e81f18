// Package host runs the bridge as a foreground process or a system service.
package host

import (
	"context"
	"fmt"
	"net/netip"
	"os"
	"sync"
	"sync/atomic"

	"github.com/kardianos/service"

	"github.com/user/vpn-bridge/internal/apps"
	"github.com/user/vpn-bridge/internal/bridge"
	"github.com/user/vpn-bridge/internal/config"
	"github.com/user/vpn-bridge/internal/connmon"
	"github.com/user/vpn-bridge/internal/core"
	"github.com/user/vpn-bridge/internal/logger"
	"github.com/user/vpn-bridge/internal/notify"
	"github.com/user/vpn-bridge/internal/server"
)

// Service identity.
const (
	ServiceName        = "vpn-bridge"
	ServiceDisplayName = "VPN Bridge"
	ServiceDescription = "Local bridge exposing the VPN toggle and installed app list"
)

// Program implements service.Interface. It owns every long-lived component
// of a running bridge.
type Program struct {
	configMgr *config.Manager

	mu       sync.Mutex
	started  bool
	cancel   context.CancelFunc
	manager  *core.Manager
	watcher  atomic.Pointer[connmon.Watcher]
	apps     *apps.Watcher
	packages *bridge.Hub[apps.Event]
	server   *server.Server
	closers  []func()
}

// NewProgram creates a program over a loaded configuration.
func NewProgram(mgr *config.Manager) *Program {
	return &Program{configMgr: mgr}
}

// Start brings the bridge up and returns once the HTTP server is listening.
func (p *Program) Start(s service.Service) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}

	logger.Info("VPN bridge starting")
	if err := p.build(); err != nil {
		p.closeAll()
		return err
	}
	p.started = true
	logger.Info("VPN bridge is running")
	return nil
}

// Stop tears the session down and releases every OS resource.
func (p *Program) Stop(s service.Service) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return nil
	}
	p.started = false

	logger.Info("VPN bridge stopping")
	p.closeAll()
	logger.Info("VPN bridge stopped")
	return nil
}

func (p *Program) build() error {
	cfg := p.configMgr.Get()
	if cfg == nil {
		return fmt.Errorf("configuration %s not loaded", p.configMgr.Path())
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	plat, err := newPlatform(cfg, p.linkChanged)
	if err != nil {
		return err
	}
	p.closers = append(p.closers, plat.close)

	catalog := apps.NewCatalog(apps.Options{
		Dirs:      append(apps.DefaultDirs(), cfg.Apps.ExtraDirs...),
		AllowAll:  cfg.Apps.AllowAll,
		IconTheme: cfg.Apps.IconTheme,
	})

	presenter := notify.NewPresenter(plat.notifications, notify.Texts{
		ActiveTitle:   cfg.Notifications.ActiveTitle,
		ActiveBody:    cfg.Notifications.ActiveBody,
		InactiveTitle: cfg.Notifications.InactiveTitle,
		InactiveBody:  cfg.Notifications.InactiveBody,
	})

	opts, err := sessionOptions(cfg)
	if err != nil {
		return err
	}
	p.manager = core.NewManager(core.Deps{
		NewBuilder: plat.newBuilder,
		Consent:    plat.consent,
		Network:    plat.network,
		Packages:   catalog,
		Notifier:   presenter,
	}, opts)
	p.closers = append(p.closers, p.manager.Close)

	watcher := connmon.NewWatcher(cfg.Session.Debounce, p.manager.Reconcile, plat.sources...)
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to start connectivity watcher: %w", err)
	}
	p.watcher.Store(watcher)
	p.closers = append(p.closers, watcher.Stop)

	logger.SafeGo("consent-watch", func() {
		plat.consent.Watch(ctx, p.manager.Revoke)
	})

	p.packages = bridge.NewHub[apps.Event]()
	p.closers = append(p.closers, p.packages.Close)
	p.apps = apps.NewWatcher(catalog, p.packages.Publish)
	if err := p.apps.Start(); err != nil {
		logger.Warning("Application watcher unavailable: %v", err)
	} else {
		p.closers = append(p.closers, p.apps.Stop)
	}

	dispatcher := bridge.NewDispatcher(p.manager, presenter, catalog, p.packages)
	p.server = server.New(server.Config{
		Listen:         cfg.Server.Listen,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, dispatcher)
	if err := p.server.Start(); err != nil {
		return err
	}
	p.closers = append(p.closers, p.server.Stop)

	if stop, err := p.configMgr.Watch(p.configChanged); err != nil {
		logger.Warning("Config file changes will need a restart: %v", err)
	} else {
		p.closers = append(p.closers, stop)
	}

	return nil
}

// configChanged applies the settings that take effect without a restart.
func (p *Program) configChanged(cfg *config.Config) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		logger.Warning("Ignoring log level: %v", err)
		return
	}
	logger.Info("Log level set to %s; other changes apply after a restart", cfg.Logging.Level)
}

// closeAll releases components in reverse order of creation. The server goes
// first so no request reaches a closed manager.
func (p *Program) closeAll() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
	p.closers = nil
	p.watcher.Store(nil)
}

// linkChanged forwards tunnel link events to the connectivity watcher.
func (p *Program) linkChanged(up bool) {
	if w := p.watcher.Load(); w != nil {
		w.LinkChanged(up)
	}
}

func sessionOptions(cfg *config.Config) (core.Options, error) {
	address, err := netip.ParsePrefix(cfg.Tunnel.Address)
	if err != nil {
		return core.Options{}, fmt.Errorf("tunnel address: %w", err)
	}
	route, err := netip.ParsePrefix(cfg.Tunnel.Route)
	if err != nil {
		return core.Options{}, fmt.Errorf("tunnel route: %w", err)
	}
	return core.Options{
		Address:    address,
		Route:      route,
		ReadBuffer: cfg.Session.ReadBuffer,
		ReadPause:  cfg.Session.ReadPause,
	}, nil
}

// ServiceConfig describes the installed service. args are passed to the
// executable when the service manager starts it.
func ServiceConfig(args []string, user bool) (*service.Config, error) {
	exePath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	return &service.Config{
		Name:        ServiceName,
		DisplayName: ServiceDisplayName,
		Description: ServiceDescription,
		Executable:  exePath,
		Arguments:   args,
		Option: service.KeyValue{
			"UserService": user,
			"Restart":     "on-failure",
		},
	}, nil
}

// NewService wraps prg for the platform service manager.
func NewService(prg *Program, args []string, user bool) (service.Service, error) {
	svcConfig, err := ServiceConfig(args, user)
	if err != nil {
		return nil, err
	}
	return service.New(prg, svcConfig)
}
