package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/user/vpn-bridge/internal/config"
	"github.com/user/vpn-bridge/internal/logger"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "vpn-bridge",
	Short: "VPN Bridge - local VPN toggle and installed app listing",
	Long: `VPN Bridge opens a local virtual interface on request and serves the
VPN and installed-application channels to a UI over HTTP.

Run "vpn-bridge serve" to host the bridge, or install it as a service with
"vpn-bridge service install".`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "path to the bridge config file")
	flags.String("listen", "", "bridge listen address (overrides config)")
	flags.String("log-level", "", "log level: debug, info, warn, error")

	v.BindPFlag("config", flags.Lookup("config"))
	v.BindPFlag("listen", flags.Lookup("listen"))
	v.BindPFlag("log_level", flags.Lookup("log-level"))

	v.BindEnv("config", "VPNBRIDGE_CONFIG")
	v.BindEnv("listen", "VPNBRIDGE_LISTEN")
	v.BindEnv("log_level", "VPNBRIDGE_LOG_LEVEL")
}

func configPath() string {
	if p := v.GetString("config"); p != "" {
		return p
	}
	return config.GetConfigPath()
}

// newManager returns a manager for the selected config file with flag and
// environment overrides applied.
func newManager() *config.Manager {
	mgr := config.NewManager(configPath())
	mgr.SetOverrides(config.Overrides{
		Listen:   v.GetString("listen"),
		LogLevel: v.GetString("log_level"),
	})
	return mgr
}

// loadConfig loads the bridge config, writing defaults when it is missing.
func loadConfig() (*config.Manager, error) {
	mgr := newManager()
	if err := mgr.Load(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return mgr, nil
}

// bridgeAddr returns the address client commands connect to. It never
// creates a config file.
func bridgeAddr() string {
	cfg, err := newManager().Peek()
	if err != nil {
		logger.Debug("Using default bridge address: %v", err)
		if listen := v.GetString("listen"); listen != "" {
			return listen
		}
		return config.DefaultConfig().Server.Listen
	}
	return cfg.Server.Listen
}

func setLogLevel(level string) {
	if level == "" {
		return
	}
	if err := logger.SetLevel(level); err != nil {
		logger.Warning("Ignoring log level: %v", err)
	}
}
