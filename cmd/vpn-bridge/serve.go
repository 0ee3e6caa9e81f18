package main

import (
	"fmt"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/user/vpn-bridge/internal/elevate"
	"github.com/user/vpn-bridge/internal/host"
	"github.com/user/vpn-bridge/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge in the foreground",
	Long: `Run the bridge until interrupted. Under a service manager this is the
command the installed service executes.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Bool("elevate", false, "re-launch with root privileges when CAP_NET_ADMIN is missing")
	serveCmd.Flags().Bool("console", false, "mirror log output to stdout")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	elevateFlag, _ := cmd.Flags().GetBool("elevate")
	if elevateFlag && !elevate.CanManageNetwork() {
		fmt.Println("Not allowed to manage network interfaces, requesting elevation...")
		// replaces the current process on success
		return elevate.RunAsAdmin()
	}

	mgr, err := loadConfig()
	if err != nil {
		return err
	}

	console, _ := cmd.Flags().GetBool("console")
	if err := logger.Init(console || service.Interactive()); err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer logger.Close()
	setLogLevel(mgr.Get().Logging.Level)

	s, err := host.NewService(host.NewProgram(mgr), nil, false)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	return s.Run()
}
