//go:build linux

// Package elevate checks and acquires the privileges needed to create
// network interfaces.
package elevate

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// IsAdmin returns true if the process runs as root.
func IsAdmin() bool {
	return os.Geteuid() == 0
}

// CanManageNetwork reports whether the process may create and configure
// interfaces: root, or CAP_NET_ADMIN in the effective set.
func CanManageNetwork() bool {
	if IsAdmin() {
		return true
	}
	return hasEffectiveCap(unix.CAP_NET_ADMIN)
}

func hasEffectiveCap(capability int) bool {
	hdr := unix.CapUserHeader{Version: unix.LINUX_CAPABILITY_VERSION_3}
	var data [2]unix.CapUserData
	if err := unix.Capget(&hdr, &data[0]); err != nil {
		return false
	}
	return data[capability/32].Effective&(1<<(uint(capability)%32)) != 0
}

// RunAsAdmin re-launches the current executable with root privileges,
// trying pkexec first and then sudo.
func RunAsAdmin() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	args := append([]string{exe}, os.Args[1:]...)

	if path, err := exec.LookPath("pkexec"); err == nil {
		return syscall.Exec(path, append([]string{"pkexec"}, args...), os.Environ())
	}

	sudoPath, err := exec.LookPath("sudo")
	if err != nil {
		return fmt.Errorf("neither pkexec nor sudo found; please run as root")
	}

	return syscall.Exec(sudoPath, append([]string{"sudo"}, args...), os.Environ())
}
