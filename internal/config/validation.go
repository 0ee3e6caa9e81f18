package config

import (
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/sirupsen/logrus"
)

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Version < 1 {
		return fmt.Errorf("invalid config version")
	}

	if err := c.Tunnel.Validate(); err != nil {
		return fmt.Errorf("tunnel config: %w", err)
	}

	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}

	if strings.TrimSpace(c.Consent.Action) == "" {
		return fmt.Errorf("consent config: action is required")
	}

	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates the tunnel section.
func (t *Tunnel) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(t.Name) > 15 {
		return fmt.Errorf("name %q exceeds 15 characters", t.Name)
	}
	if _, err := netip.ParsePrefix(t.Address); err != nil {
		return fmt.Errorf("invalid address %q: %w", t.Address, err)
	}
	if _, err := netip.ParsePrefix(t.Route); err != nil {
		return fmt.Errorf("invalid route %q: %w", t.Route, err)
	}
	if t.MTU < 576 || t.MTU > 65535 {
		return fmt.Errorf("mtu must be between 576 and 65535")
	}
	if t.RouteMetric < 0 {
		return fmt.Errorf("route_metric must not be negative")
	}
	return nil
}

// Validate validates the session timings.
func (s *Session) Validate() error {
	if s.ReadBuffer <= 0 {
		return fmt.Errorf("read_buffer must be positive")
	}
	if s.ReadPause < 0 {
		return fmt.Errorf("read_pause must not be negative")
	}
	if s.Debounce <= 0 {
		return fmt.Errorf("debounce must be positive")
	}
	return nil
}

// Validate validates the server section.
func (s *Server) Validate() error {
	if _, _, err := net.SplitHostPort(s.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", s.Listen, err)
	}
	for _, origin := range s.AllowedOrigins {
		if origin == "*" {
			continue
		}
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("allowed origin %q must start with http:// or https://", origin)
		}
	}
	return nil
}
