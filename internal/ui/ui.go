// Package ui provides the system tray client of a running bridge.
package ui

import (
	"context"
	"sync"
	"time"

	"fyne.io/systray"

	"github.com/user/vpn-bridge/internal/client"
	"github.com/user/vpn-bridge/internal/icon"
	"github.com/user/vpn-bridge/internal/logger"
)

// pollInterval is how often the tray asks the bridge for its status.
const pollInterval = 2 * time.Second

// Options configure the tray.
type Options struct {
	// Addr is the bridge listen address.
	Addr string
	// ConfigPath is opened by the Settings item.
	ConfigPath string
}

type tray struct {
	opts   Options
	client *client.Client

	mu    sync.Mutex
	state string
	busy  bool

	mStatus     *systray.MenuItem
	mConnect    *systray.MenuItem
	mDisconnect *systray.MenuItem
	mSettings   *systray.MenuItem
	mLogs       *systray.MenuItem
	mQuit       *systray.MenuItem

	stop chan struct{}
}

// Run shows the tray icon and blocks until the user quits.
func Run(opts Options) {
	t := &tray{
		opts:   opts,
		client: client.New(opts.Addr),
		stop:   make(chan struct{}),
	}
	systray.Run(t.onReady, t.onExit)
}

func (t *tray) onReady() {
	systray.SetIcon(icon.Tray("disconnected"))
	systray.SetTitle("VPN Bridge")
	systray.SetTooltip("VPN Bridge")

	t.mStatus = systray.AddMenuItem("Status: unknown", "")
	t.mStatus.Disable()

	systray.AddSeparator()

	t.mConnect = systray.AddMenuItem("Connect", "Start the VPN")
	t.mDisconnect = systray.AddMenuItem("Disconnect", "Stop the VPN")
	t.mDisconnect.Disable()

	systray.AddSeparator()

	t.mSettings = systray.AddMenuItem("Settings", "Open the bridge configuration")
	t.mLogs = systray.AddMenuItem("Open log", "")

	systray.AddSeparator()

	t.mQuit = systray.AddMenuItem("Quit", "")

	logger.SafeGo("tray-poll", t.poll)

	go func() {
		defer logger.Recover("tray-menu-loop")
		for {
			select {
			case <-t.mConnect.ClickedCh:
				go t.doConnect()
			case <-t.mDisconnect.ClickedCh:
				go t.doDisconnect()
			case <-t.mSettings.ClickedCh:
				go openSettings(t.opts.ConfigPath)
			case <-t.mLogs.ClickedCh:
				go openLogFile()
			case <-t.mQuit.ClickedCh:
				systray.Quit()
				return
			}
		}
	}()
}

func (t *tray) onExit() {
	close(t.stop)
	logger.Info("Tray exiting")
}

func (t *tray) poll() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	t.refresh()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.refresh()
		}
	}
}

func (t *tray) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), pollInterval)
	defer cancel()

	running, err := t.client.Status(ctx)
	if err != nil {
		logger.Debug("Bridge status unavailable: %v", err)
	}
	t.apply(present(running, err))
}

func (t *tray) doConnect() {
	defer logger.Recover("doConnect")
	logger.Connection("User initiated VPN start from tray")

	t.setBusy(true)
	t.apply(view{state: "connecting", status: "Status: starting...", tooltip: "VPN Bridge: starting"})

	ok, err := t.client.Start(context.Background(), nil)
	switch {
	case err != nil:
		logger.Error("Failed to start VPN: %v", err)
	case !ok:
		logger.Warning("VPN start was not authorized")
	}
	t.setBusy(false)
	t.refresh()
}

func (t *tray) doDisconnect() {
	defer logger.Recover("doDisconnect")
	logger.Connection("User initiated VPN stop from tray")

	t.setBusy(true)
	t.apply(view{state: "connecting", status: "Status: stopping...", tooltip: "VPN Bridge: stopping"})

	if _, err := t.client.Stop(context.Background()); err != nil {
		logger.Error("Failed to stop VPN: %v", err)
	}
	t.setBusy(false)
	t.refresh()
}

func (t *tray) setBusy(busy bool) {
	t.mu.Lock()
	t.busy = busy
	t.mu.Unlock()
}

func (t *tray) apply(v view) {
	defer logger.Recover("tray-apply")

	t.mu.Lock()
	busy := t.busy
	changed := v.state != t.state
	t.state = v.state
	t.mu.Unlock()

	if changed {
		logger.Connection("Tray state: %s", v.state)
		systray.SetIcon(icon.Tray(v.state))
	}
	t.mStatus.SetTitle(v.status)
	systray.SetTooltip(v.tooltip)

	if v.canConnect && !busy {
		t.mConnect.Enable()
	} else {
		t.mConnect.Disable()
	}
	if v.canDisconnect && !busy {
		t.mDisconnect.Enable()
	} else {
		t.mDisconnect.Disable()
	}
}
