//go:build linux

package connmon

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/user/vpn-bridge/internal/logger"
)

const (
	nmPath           = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	nmInterface      = "org.freedesktop.NetworkManager"
	propsInterface   = "org.freedesktop.DBus.Properties"
	propertiesSignal = propsInterface + ".PropertiesChanged"
	stateSignal      = nmInterface + ".StateChanged"
)

// watched NetworkManager properties and the reason reported for each
var watchedProperties = map[string]string{
	"Connectivity":      "connectivity",
	"PrimaryConnection": "connectivity",
	"State":             "connectivity",
	"WirelessEnabled":   "airplane-mode",
	"WwanEnabled":       "airplane-mode",
}

// NetworkManagerSource reports NetworkManager state and radio switch
// changes from the system bus.
type NetworkManagerSource struct {
	conn    *dbus.Conn
	signals chan *dbus.Signal
}

// NewNetworkManagerSource creates an unstarted source.
func NewNetworkManagerSource() *NetworkManagerSource {
	return &NetworkManagerSource{}
}

func (s *NetworkManagerSource) Start(signal func(reason string)) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("connect system bus: %w", err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(nmPath),
		dbus.WithMatchInterface(nmInterface),
		dbus.WithMatchMember("StateChanged"),
	); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe StateChanged: %w", err)
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(nmPath),
		dbus.WithMatchInterface(propsInterface),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe PropertiesChanged: %w", err)
	}

	s.conn = conn
	s.signals = make(chan *dbus.Signal, 16)
	conn.Signal(s.signals)

	go func(ch <-chan *dbus.Signal) {
		defer logger.Recover("networkmanager-signals")
		for sig := range ch {
			if reason := classify(sig); reason != "" {
				signal(reason)
			}
		}
	}(s.signals)

	logger.Info("Watching NetworkManager connectivity signals")
	return nil
}

func (s *NetworkManagerSource) Stop() {
	if s.conn == nil {
		return
	}
	s.conn.RemoveSignal(s.signals)
	close(s.signals)
	s.conn.Close()
	s.conn = nil
}

// classify returns the reason for sig, or "" when it is not a
// connectivity change.
func classify(sig *dbus.Signal) string {
	switch sig.Name {
	case stateSignal:
		return "connectivity"
	case propertiesSignal:
		if len(sig.Body) < 2 {
			return ""
		}
		if iface, _ := sig.Body[0].(string); iface != nmInterface {
			return ""
		}
		changed, _ := sig.Body[1].(map[string]dbus.Variant)
		reason := ""
		for key := range changed {
			r, ok := watchedProperties[key]
			if !ok {
				continue
			}
			if r == "airplane-mode" {
				return r
			}
			reason = r
		}
		return reason
	}
	return ""
}
