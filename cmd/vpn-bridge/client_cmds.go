package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/user/vpn-bridge/internal/bridge"
	"github.com/user/vpn-bridge/internal/client"
	"github.com/user/vpn-bridge/internal/ui"
)

var channelAliases = map[string]string{
	"vpn":     bridge.ChannelVPNMethod,
	"package": bridge.ChannelPackageMethod,
}

var callCmd = &cobra.Command{
	Use:   "call <channel> <method> [json-arguments]",
	Short: "Call a bridge channel method",
	Long: `Call a method on a running bridge and print the JSON result.
The channel may be given in full or as "vpn" or "package".`,
	Example: `  vpn-bridge call vpn startVpn '{"disallowedPackages":["firefox"]}'
  vpn-bridge call vpn getStatus`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		channel := args[0]
		if full, ok := channelAliases[channel]; ok {
			channel = full
		}

		var arguments any
		if len(args) == 3 {
			raw := json.RawMessage(args[2])
			if !json.Valid(raw) {
				return fmt.Errorf("arguments are not valid JSON")
			}
			arguments = raw
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()
		result, err := client.New(bridgeAddr()).Call(ctx, channel, args[1], arguments)
		if err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
			return err
		}
		fmt.Println(string(result))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show bridge and VPN status",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := bridgeAddr()
		c := client.New(addr)

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		fmt.Println(titleStyle.Render("VPN Bridge"))
		row := func(label, value string) {
			fmt.Println(lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value))
		}
		row("Address", addr)
		row("Service", serviceStatus())

		if !c.Healthy(ctx) {
			row("Bridge", errorStyle.Render("unreachable"))
			return nil
		}
		row("Bridge", successStyle.Render("online"))

		running, err := c.Status(ctx)
		switch {
		case err != nil:
			row("VPN", errorStyle.Render(err.Error()))
		case running:
			row("VPN", successStyle.Render("connected"))
		default:
			row("VPN", warningStyle.Render("disconnected"))
		}
		return nil
	},
}

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List the applications that can be excluded from the VPN",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		list, err := client.New(bridgeAddr()).InstalledApps(ctx)
		if err != nil {
			return err
		}

		width := 0
		for _, app := range list {
			width = max(width, len(app.AppName))
		}
		name := lipgloss.NewStyle().Width(width + 2)
		for _, app := range list {
			line := name.Render(app.AppName) + app.PackageName
			if app.IsSystem {
				line += systemStyle.Render("  (system)")
			}
			fmt.Println(line)
		}
		fmt.Println(infoStyle.Render(fmt.Sprintf("%d applications", len(list))))
		return nil
	},
}

var trayCmd = &cobra.Command{
	Use:   "tray",
	Short: "Show a system tray icon for a running bridge",
	Run: func(cmd *cobra.Command, args []string) {
		ui.Run(ui.Options{Addr: bridgeAddr(), ConfigPath: configPath()})
	},
}

func init() {
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(appsCmd)
	rootCmd.AddCommand(trayCmd)
}
