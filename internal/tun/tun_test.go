package tun

import (
	"net/netip"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderCollectsLayout(t *testing.T) {
	b := NewBuilder(Config{})
	assert.Equal(t, "vpnbridge0", b.cfg.Name)
	assert.Equal(t, 1500, b.cfg.MTU)

	require.NoError(t, b.AddAddress(netip.MustParsePrefix("10.1.1.1/32")))
	require.NoError(t, b.AddRoute(netip.MustParsePrefix("10.0.0.7/8")))
	require.NoError(t, b.AddDisallowedApplication("org.mozilla.firefox"))
	require.NoError(t, b.AddDisallowedApplication("org.mozilla.firefox"))

	assert.Equal(t, []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}, b.routes)
	assert.Equal(t, []string{"org.mozilla.firefox"}, b.excluded)

	assert.Error(t, b.AddAddress(netip.Prefix{}))
	assert.Error(t, b.AddRoute(netip.Prefix{}))
	assert.Error(t, b.AddDisallowedApplication(""))
}

func TestRouteArgs(t *testing.T) {
	route := netip.MustParsePrefix("0.0.0.0/0")
	assert.Equal(t,
		[]string{"route", "replace", "0.0.0.0/0", "dev", "vpnbridge0", "metric", "4096"},
		routeArgs("vpnbridge0", route, 4096))
	assert.Equal(t,
		[]string{"route", "replace", "0.0.0.0/0", "dev", "vpnbridge0"},
		routeArgs("vpnbridge0", route, 0))
}

func newPipeHandle(t *testing.T) (*Handle, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return newHandle("test0", r, nil, []string{"a"}), w
}

func TestHandleReadTruncatesToBuffer(t *testing.T) {
	h, w := newPipeHandle(t)

	_, err := w.Write(make([]byte, 40))
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := h.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
}

func TestHandleEndOfStream(t *testing.T) {
	h, w := newPipeHandle(t)
	require.NoError(t, w.Close())

	n, err := h.Read(make([]byte, 16))
	assert.Zero(t, n)
	assert.Error(t, err)
}

func TestHandleValidAndClose(t *testing.T) {
	h, _ := newPipeHandle(t)

	assert.True(t, h.Valid())
	assert.Equal(t, "test0", h.Name())
	assert.Equal(t, []string{"a"}, h.Excluded())

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	assert.False(t, h.Valid())

	_, err := h.Read(make([]byte, 8))
	assert.ErrorIs(t, err, os.ErrClosed)
}
