package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	m := NewManager(path)

	require.NoError(t, m.Load())
	cfg := m.Get()
	assert.Equal(t, "10.1.1.1/32", cfg.Tunnel.Address)
	assert.Equal(t, "0.0.0.0/0", cfg.Tunnel.Route)
	assert.Equal(t, 1024, cfg.Session.ReadBuffer)
	assert.Equal(t, 500*time.Millisecond, cfg.Session.ReadPause)
	assert.Equal(t, 1500*time.Millisecond, cfg.Session.Debounce)

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("version: 1\nsession:\n  debounce: 2s\nserver:\n  listen: 127.0.0.1:9000\n")
	require.NoError(t, os.WriteFile(path, data, 0600))

	m := NewManager(path)
	require.NoError(t, m.Load())

	cfg := m.Get()
	assert.Equal(t, 2*time.Second, cfg.Session.Debounce)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Listen)
	assert.Equal(t, 1024, cfg.Session.ReadBuffer)
	assert.Equal(t, "vpnbridge0", cfg.Tunnel.Name)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\ntunnel:\n  address: nope\n"), 0600))

	err := NewManager(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tunnel config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero version", func(c *Config) { c.Version = 0 }, true},
		{"long interface name", func(c *Config) { c.Tunnel.Name = "a-very-long-interface" }, true},
		{"bad route", func(c *Config) { c.Tunnel.Route = "0.0.0.0" }, true},
		{"tiny mtu", func(c *Config) { c.Tunnel.MTU = 100 }, true},
		{"zero buffer", func(c *Config) { c.Session.ReadBuffer = 0 }, true},
		{"zero debounce", func(c *Config) { c.Session.Debounce = 0 }, true},
		{"no consent action", func(c *Config) { c.Consent.Action = " " }, true},
		{"bad listen", func(c *Config) { c.Server.Listen = "localhost" }, true},
		{"origin without scheme", func(c *Config) { c.Server.AllowedOrigins = []string{"example.com"} }, true},
		{"unknown log level", func(c *Config) { c.Logging.Level = "chatty" }, true},
		{"wildcard origin", func(c *Config) { c.Server.AllowedOrigins = []string{"*"} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m := NewManager(path)
	require.NoError(t, m.Load())

	cfg := DefaultConfig()
	cfg.Apps.AllowAll = true
	require.NoError(t, m.Update(cfg))

	reloaded := NewManager(path)
	require.NoError(t, reloaded.Load())
	assert.True(t, reloaded.Get().Apps.AllowAll)
	assert.Equal(t, 1500*time.Millisecond, reloaded.Get().Session.Debounce)
}

func TestOverridesAreNotPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m := NewManager(path)
	m.SetOverrides(Overrides{Listen: "127.0.0.1:9999", LogLevel: "debug"})
	require.NoError(t, m.Load())

	assert.Equal(t, "127.0.0.1:9999", m.Get().Server.Listen)
	assert.Equal(t, "debug", m.Get().Logging.Level)

	plain := NewManager(path)
	require.NoError(t, plain.Load())
	assert.Equal(t, "127.0.0.1:8787", plain.Get().Server.Listen)
	assert.Equal(t, "info", plain.Get().Logging.Level)
}

func TestLoadRejectsInvalidOverride(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	m.SetOverrides(Overrides{LogLevel: "chatty"})
	assert.Error(t, m.Load())
	assert.Nil(t, m.Get())
}

func TestPeekDoesNotWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m := NewManager(path)
	m.SetOverrides(Overrides{Listen: "127.0.0.1:9000"})

	cfg, err := m.Peek()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Listen)
	assert.Nil(t, m.Get())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m := NewManager(path)
	require.NoError(t, m.Load())

	changed, err := m.Reload()
	require.NoError(t, err)
	assert.False(t, changed, "unchanged file")

	require.NoError(t, os.WriteFile(path, []byte("version: 1\nlogging:\n  level: debug\n"), 0600))
	changed, err = m.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "debug", m.Get().Logging.Level)

	require.NoError(t, os.WriteFile(path, []byte("version: 1\nlogging:\n  level: chatty\n"), 0600))
	changed, err = m.Reload()
	assert.Error(t, err)
	assert.False(t, changed)
	assert.Equal(t, "debug", m.Get().Logging.Level, "previous config kept")
}

func TestWatchReportsChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m := NewManager(path)
	require.NoError(t, m.Load())

	levels := make(chan string, 4)
	stop, err := m.Watch(func(cfg *Config) { levels <- cfg.Logging.Level })
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte("version: 1\nlogging:\n  level: warn\n"), 0600))

	select {
	case level := <-levels:
		assert.Equal(t, "warn", level)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after the file changed")
	}

	stop()
	stop()
}
