//go:build linux

package connmon

import (
	"net"
	"os"
	"path/filepath"

	"github.com/user/vpn-bridge/internal/logger"
)

// TransportProbe reports whether any VPN-class interface carries traffic.
// A tun device is recognised by its tun_flags attribute in sysfs.
type TransportProbe struct {
	sysfs      string
	interfaces func() ([]net.Interface, error)
}

// NewTransportProbe creates a probe over the live system.
func NewTransportProbe() *TransportProbe {
	return &TransportProbe{
		sysfs:      "/sys/class/net",
		interfaces: net.Interfaces,
	}
}

// VPNTransportActive reports whether an up tun interface exists.
func (p *TransportProbe) VPNTransportActive() bool {
	ifaces, err := p.interfaces()
	if err != nil {
		logger.Warning("Failed to list interfaces: %v", err)
		return false
	}
	for _, ifc := range ifaces {
		if ifc.Flags&net.FlagUp == 0 {
			continue
		}
		if _, err := os.Stat(filepath.Join(p.sysfs, ifc.Name, "tun_flags")); err == nil {
			return true
		}
	}
	return false
}
