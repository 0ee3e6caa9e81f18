// Package tun creates the virtual interface backing a VPN session.
package tun

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/user/vpn-bridge/internal/logger"
)

// maxFrame bounds a single read from the device.
const maxFrame = 65535

// Config represents TUN interface configuration.
type Config struct {
	Name        string
	MTU         int
	RouteMetric int
	// OnLinkChange is called when the kernel reports the link up or down.
	OnLinkChange func(up bool)
}

// Builder collects the interface layout before it is established.
type Builder struct {
	cfg       Config
	addresses []netip.Prefix
	routes    []netip.Prefix
	excluded  []string
}

// NewBuilder creates a builder.
func NewBuilder(cfg Config) *Builder {
	if cfg.Name == "" {
		cfg.Name = "vpnbridge0"
	}
	if cfg.MTU == 0 {
		cfg.MTU = 1500
	}
	return &Builder{cfg: cfg}
}

// AddAddress assigns prefix to the interface.
func (b *Builder) AddAddress(prefix netip.Prefix) error {
	if !prefix.IsValid() {
		return fmt.Errorf("invalid address prefix")
	}
	b.addresses = append(b.addresses, prefix)
	return nil
}

// AddRoute routes prefix through the interface.
func (b *Builder) AddRoute(prefix netip.Prefix) error {
	if !prefix.IsValid() {
		return fmt.Errorf("invalid route prefix")
	}
	b.routes = append(b.routes, prefix.Masked())
	return nil
}

// AddDisallowedApplication excludes an application from the tunnel. The
// kernel tun driver has no per-application routing, so the exclusion is
// recorded on the handle for reporting only.
func (b *Builder) AddDisallowedApplication(pkg string) error {
	if pkg == "" {
		return fmt.Errorf("empty application id")
	}
	if !slices.Contains(b.excluded, pkg) {
		b.excluded = append(b.excluded, pkg)
	}
	return nil
}

// Handle is an established interface. Reads drain the device.
type Handle struct {
	name     string
	file     *os.File
	device   interface{ Close() error }
	excluded []string
	scratch  []byte

	closeOnce sync.Once
	closed    atomic.Bool
	closeErr  error
}

func newHandle(name string, file *os.File, device interface{ Close() error }, excluded []string) *Handle {
	return &Handle{
		name:     name,
		file:     file,
		device:   device,
		excluded: excluded,
		scratch:  make([]byte, maxFrame),
	}
}

// Name returns the kernel interface name.
func (h *Handle) Name() string {
	return h.name
}

// Excluded returns the applications recorded as disallowed.
func (h *Handle) Excluded() []string {
	return slices.Clone(h.excluded)
}

// Read reads one frame and copies up to len(p) bytes of it into p. Frames
// longer than p are truncated, not split.
func (h *Handle) Read(p []byte) (int, error) {
	if h.closed.Load() {
		return 0, os.ErrClosed
	}
	n, err := h.file.Read(h.scratch)
	if err != nil {
		return 0, err
	}
	return copy(p, h.scratch[:n]), nil
}

// Valid reports whether the descriptor is still open.
func (h *Handle) Valid() bool {
	if h.closed.Load() {
		return false
	}
	rc, err := h.file.SyscallConn()
	if err != nil {
		return false
	}
	var ferr error
	if err := rc.Control(func(fd uintptr) {
		_, ferr = unix.FcntlInt(fd, unix.F_GETFD, 0)
	}); err != nil {
		return false
	}
	return ferr == nil
}

// Close destroys the interface. It is safe to call more than once.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		if h.device != nil {
			h.closeErr = h.device.Close()
		}
		if err := h.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) && h.closeErr == nil {
			h.closeErr = err
		}
		logger.Info("Interface %s closed", h.name)
	})
	return h.closeErr
}
