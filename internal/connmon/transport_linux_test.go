//go:build linux

package connmon

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVPNTransportActive(t *testing.T) {
	sysfs := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(sysfs, "vpnbridge0"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sysfs, "vpnbridge0", "tun_flags"), []byte("0x1001\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(sysfs, "eth0"), 0755))

	probe := func(ifaces []net.Interface, err error) *TransportProbe {
		return &TransportProbe{
			sysfs:      sysfs,
			interfaces: func() ([]net.Interface, error) { return ifaces, err },
		}
	}

	eth := net.Interface{Name: "eth0", Flags: net.FlagUp}
	tunUp := net.Interface{Name: "vpnbridge0", Flags: net.FlagUp}
	tunDown := net.Interface{Name: "vpnbridge0"}

	assert.True(t, probe([]net.Interface{eth, tunUp}, nil).VPNTransportActive())
	assert.False(t, probe([]net.Interface{eth, tunDown}, nil).VPNTransportActive())
	assert.False(t, probe([]net.Interface{eth}, nil).VPNTransportActive())
	assert.False(t, probe(nil, errors.New("netlink")).VPNTransportActive())
}
