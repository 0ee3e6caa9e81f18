package main

import (
	"fmt"
	"os"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/user/vpn-bridge/internal/host"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Service management commands",
	Long:  `Manage the VPN Bridge as a system service`,
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the bridge as a system service",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := createService(cmd)
		if err != nil {
			return err
		}
		if err := s.Install(); err != nil {
			printInstallInstructions()
			return fmt.Errorf("failed to install service: %w", err)
		}
		fmt.Println(successStyle.Render("VPN Bridge service installed"))
		fmt.Println("   Use 'vpn-bridge service start' to start it")
		return nil
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the bridge service",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := createService(cmd)
		if err != nil {
			return err
		}
		if err := s.Stop(); err != nil {
			fmt.Println(infoStyle.Render("Service was not running"))
		}
		if err := s.Uninstall(); err != nil {
			return fmt.Errorf("failed to uninstall service: %w", err)
		}
		fmt.Println(successStyle.Render("VPN Bridge service uninstalled"))
		return nil
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the bridge service",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := createService(cmd)
		if err != nil {
			return err
		}
		if err := s.Start(); err != nil {
			return fmt.Errorf("failed to start service: %w", err)
		}
		fmt.Println(successStyle.Render("VPN Bridge service started"))
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the bridge service",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := createService(cmd)
		if err != nil {
			return err
		}
		if err := s.Stop(); err != nil {
			return fmt.Errorf("failed to stop service: %w", err)
		}
		fmt.Println(successStyle.Render("VPN Bridge service stopped"))
		return nil
	},
}

func init() {
	serviceCmd.PersistentFlags().Bool("user", false, "manage a per-user service instead of a system one")
	rootCmd.AddCommand(serviceCmd)
	serviceCmd.AddCommand(installCmd)
	serviceCmd.AddCommand(uninstallCmd)
	serviceCmd.AddCommand(startCmd)
	serviceCmd.AddCommand(stopCmd)
}

// createService builds the service handle. The installed unit runs
// "serve" with the config path resolved now.
func createService(cmd *cobra.Command) (service.Service, error) {
	user, _ := cmd.Flags().GetBool("user")
	args := []string{"serve", "--config", configPath()}
	s, err := host.NewService(host.NewProgram(newManager()), args, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return s, nil
}

// serviceStatus renders the service manager's view of the bridge.
func serviceStatus() string {
	s, err := host.NewService(host.NewProgram(newManager()), nil, false)
	if err != nil {
		return "unknown"
	}
	status, err := s.Status()
	if err != nil {
		return "not installed"
	}
	switch status {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

func printInstallInstructions() {
	exePath, _ := os.Executable()
	fmt.Println(warningStyle.Render("\nService installation failed. You may need elevated privileges:"))
	fmt.Printf("   sudo %s service install\n", exePath)
	fmt.Println("or install a per-user service:")
	fmt.Printf("   %s service install --user\n", exePath)
}
