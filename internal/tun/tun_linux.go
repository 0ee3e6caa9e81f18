//go:build linux

package tun

import (
	"fmt"
	"net/netip"
	"os/exec"
	"strconv"

	"golang.zx2c4.com/wireguard/tun"

	"github.com/user/vpn-bridge/internal/logger"
)

// Establish creates the device, assigns addresses and routes, and brings
// the link up.
func (b *Builder) Establish() (*Handle, error) {
	if len(b.addresses) == 0 {
		return nil, fmt.Errorf("no address configured")
	}

	device, err := tun.CreateTUN(b.cfg.Name, b.cfg.MTU)
	if err != nil {
		return nil, fmt.Errorf("failed to create TUN device: %w", err)
	}

	name := b.cfg.Name
	if realName, err := device.Name(); err == nil {
		name = realName
	}

	if err := b.configure(name); err != nil {
		device.Close()
		return nil, err
	}

	if len(b.excluded) > 0 {
		logger.Warning("Per-application exclusion is not enforced on %s; recorded: %v", name, b.excluded)
	}

	if b.cfg.OnLinkChange != nil {
		go func() {
			defer logger.Recover("tun-events")
			watchEvents(device.Events(), b.cfg.OnLinkChange)
		}()
	}

	logger.Info("Interface %s established (addresses %v, routes %v)", name, b.addresses, b.routes)
	return newHandle(name, device.File(), device, b.excluded), nil
}

func (b *Builder) configure(name string) error {
	for _, prefix := range b.addresses {
		if err := runIP("addr", "add", prefix.String(), "dev", name); err != nil {
			return fmt.Errorf("failed to set IP address: %w", err)
		}
	}

	if err := runIP("link", "set", "dev", name, "up"); err != nil {
		return fmt.Errorf("failed to bring interface up: %w", err)
	}

	for _, route := range b.routes {
		if err := runIP(routeArgs(name, route, b.cfg.RouteMetric)...); err != nil {
			return fmt.Errorf("failed to add route %s: %w", route, err)
		}
	}
	return nil
}

// routeArgs builds the ip(8) arguments for route.
func routeArgs(name string, route netip.Prefix, metric int) []string {
	args := []string{"route", "replace", route.String(), "dev", name}
	if metric > 0 {
		args = append(args, "metric", strconv.Itoa(metric))
	}
	return args
}

func runIP(args ...string) error {
	cmd := exec.Command("ip", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ip %v: %w: %s", args, err, string(out))
	}
	return nil
}

func watchEvents(events <-chan tun.Event, fn func(up bool)) {
	for ev := range events {
		if ev&tun.EventUp != 0 {
			fn(true)
		}
		if ev&tun.EventDown != 0 {
			fn(false)
		}
	}
}
