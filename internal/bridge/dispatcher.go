package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/user/vpn-bridge/internal/apps"
	"github.com/user/vpn-bridge/internal/logger"
)

// VPN is the session manager as seen by the bridge.
type VPN interface {
	Start(ctx context.Context, disallowed []string) (bool, error)
	Stop(ctx context.Context) bool
	Status() bool
	SetDisallowedPackages(packages []string) bool
	Subscribe() (<-chan bool, func())
}

// Notifier posts ad-hoc notifications.
type Notifier interface {
	PresentCustom(title, body string, silent bool) error
}

// Catalog lists installed applications.
type Catalog interface {
	List() ([]apps.App, error)
}

// Dispatcher routes channel calls and event subscriptions.
type Dispatcher struct {
	vpn      VPN
	notifier Notifier
	catalog  Catalog
	packages *Hub[apps.Event]
}

// NewDispatcher creates a dispatcher. packages carries package_events.
func NewDispatcher(vpn VPN, notifier Notifier, catalog Catalog, packages *Hub[apps.Event]) *Dispatcher {
	return &Dispatcher{vpn: vpn, notifier: notifier, catalog: catalog, packages: packages}
}

// Call decodes and runs method on channel.
func (d *Dispatcher) Call(ctx context.Context, channel, method string, args json.RawMessage) (any, error) {
	if channel != ChannelVPNMethod && channel != ChannelPackageMethod {
		return nil, fmt.Errorf("%s: %w", channel, ErrUnknownChannel)
	}

	req, err := Decode(method, args)
	if err != nil {
		return nil, err
	}
	if req.Channel() != channel {
		return nil, fmt.Errorf("%s on %s: %w", method, channel, ErrNotImplemented)
	}

	logger.Debug("Channel call %s %s", channel, method)
	return d.dispatch(ctx, req)
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request) (any, error) {
	switch r := req.(type) {
	case StartVPN:
		return d.vpn.Start(ctx, r.DisallowedPackages)
	case StopVPN:
		return d.vpn.Stop(ctx), nil
	case GetStatus:
		return d.vpn.Status(), nil
	case SetDisallowedPackages:
		packages := r.Packages
		if packages == nil {
			packages = []string{}
		}
		return d.vpn.SetDisallowedPackages(packages), nil
	case CustomNotification:
		if err := d.notifier.PresentCustom(r.Title, r.Content, r.Silent); err != nil {
			logger.Warning("Custom notification failed: %v", err)
		}
		return true, nil
	case GetInstalledApps:
		list, err := d.catalog.List()
		if err != nil {
			return nil, fmt.Errorf("listing applications: %w", err)
		}
		return list, nil
	default:
		return nil, fmt.Errorf("%T: %w", req, ErrNotImplemented)
	}
}

// Subscribe opens an event stream on channel. The returned func ends it.
func (d *Dispatcher) Subscribe(channel string) (<-chan any, func(), error) {
	switch channel {
	case ChannelVPNEvents:
		src, cancel := d.vpn.Subscribe()
		out, stop := forward(src, cancel)
		return out, stop, nil
	case ChannelPackageEvents:
		src, cancel := d.packages.Subscribe()
		out, stop := forward(src, cancel)
		return out, stop, nil
	default:
		return nil, nil, fmt.Errorf("%s: %w", channel, ErrUnknownChannel)
	}
}

// forward relays src until it is closed or the returned stop func is called.
func forward[T any](src <-chan T, cancel func()) (<-chan any, func()) {
	out := make(chan any)
	quit := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(quit)
			cancel()
		})
	}

	go func() {
		defer close(out)
		for {
			select {
			case v, ok := <-src:
				if !ok {
					return
				}
				select {
				case out <- v:
				case <-quit:
					return
				}
			case <-quit:
				return
			}
		}
	}()
	return out, stop
}
