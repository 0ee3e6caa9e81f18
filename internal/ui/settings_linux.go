//go:build linux

package ui

import (
	"os"
	"os/exec"

	"github.com/user/vpn-bridge/internal/logger"
)

// openSettings opens the bridge config in the user's editor. The bridge
// reads it at start, so changes apply after a restart.
func openSettings(configPath string) {
	defer logger.Recover("openSettings")

	if _, err := os.Stat(configPath); err != nil {
		logger.Error("Config file %s not found: %v", configPath, err)
		return
	}

	if editor := os.Getenv("VISUAL"); editor != "" {
		if err := exec.Command(editor, configPath).Start(); err == nil {
			return
		}
	}
	if err := exec.Command("xdg-open", configPath).Start(); err != nil {
		logger.Error("No editor found to open config %s: %v", configPath, err)
	}
}

func openLogFile() {
	defer logger.Recover("openLogFile")

	logPath := logger.GetLogPath()
	if logPath == "" {
		logger.Warning("Logging to file is disabled")
		return
	}
	if err := exec.Command("xdg-open", logPath).Start(); err != nil {
		logger.Error("Failed to open log %s: %v", logPath, err)
	}
}
