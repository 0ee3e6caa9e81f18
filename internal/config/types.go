// Package config handles bridge configuration loading, saving, and validation.
package config

import "time"

// Config represents the main configuration structure.
type Config struct {
	Version       int           `yaml:"version"`
	Tunnel        Tunnel        `yaml:"tunnel"`
	Session       Session       `yaml:"session"`
	Consent       Consent       `yaml:"consent"`
	Notifications Notifications `yaml:"notifications"`
	Apps          Apps          `yaml:"apps"`
	Server        Server        `yaml:"server"`
	Logging       Logging       `yaml:"logging"`
}

// Tunnel describes the virtual interface opened for a session.
type Tunnel struct {
	Name        string `yaml:"name"`
	Address     string `yaml:"address"` // CIDR, e.g. "10.1.1.1/32"
	Route       string `yaml:"route"`
	MTU         int    `yaml:"mtu"`
	RouteMetric int    `yaml:"route_metric"`
}

// Session holds the lifecycle timings.
type Session struct {
	ReadBuffer int           `yaml:"read_buffer"` // bytes
	ReadPause  time.Duration `yaml:"read_pause"`
	Debounce   time.Duration `yaml:"debounce"`
}

// Consent configures the polkit action checked before a session starts.
type Consent struct {
	Action string `yaml:"action"`
}

// Notifications overrides the default texts.
type Notifications struct {
	AppName       string `yaml:"app_name"`
	ActiveTitle   string `yaml:"active_title,omitempty"`
	ActiveBody    string `yaml:"active_body,omitempty"`
	InactiveTitle string `yaml:"inactive_title,omitempty"`
	InactiveBody  string `yaml:"inactive_body,omitempty"`
}

// Apps configures installed application discovery.
type Apps struct {
	AllowAll  bool     `yaml:"allow_all"` // list apps without the Network category
	ExtraDirs []string `yaml:"extra_dirs,omitempty"`
	IconTheme string   `yaml:"icon_theme"`
}

// Server configures the HTTP bridge.
type Server struct {
	Listen         string   `yaml:"listen"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// Logging configuration.
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Tunnel: Tunnel{
			Name:        defaultInterfaceName(),
			Address:     "10.1.1.1/32",
			Route:       "0.0.0.0/0",
			MTU:         1500,
			RouteMetric: 4096,
		},
		Session: Session{
			ReadBuffer: 1024,
			ReadPause:  500 * time.Millisecond,
			Debounce:   1500 * time.Millisecond,
		},
		Consent: Consent{
			Action: "org.freedesktop.NetworkManager.network-control",
		},
		Notifications: Notifications{
			AppName: "VPN Bridge",
		},
		Apps: Apps{
			IconTheme: "hicolor",
		},
		Server: Server{
			Listen: "127.0.0.1:8787",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}
