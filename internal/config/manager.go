package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"gopkg.in/yaml.v3"
)

// Overrides are values taken from flags or the environment. They win over
// the file but are never written back to it.
type Overrides struct {
	Listen   string
	LogLevel string
}

func (o Overrides) apply(cfg *Config) *Config {
	c := *cfg
	if o.Listen != "" {
		c.Server.Listen = o.Listen
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	return &c
}

// Manager owns the bridge configuration file. It keeps the values read from
// the file apart from the runtime overrides layered on top of them.
type Manager struct {
	mu        sync.RWMutex
	path      string
	file      *Config
	overrides Overrides
}

// NewManager creates a manager for the file at path.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// SetOverrides replaces the runtime overrides. Call it before Load so the
// overridden values are validated.
func (m *Manager) SetOverrides(o Overrides) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides = o
}

// Load reads the file, merging it over the defaults. A missing file is
// created with the defaults.
func (m *Manager) Load() error {
	cfg, err := m.read()
	missing := errors.Is(err, fs.ErrNotExist)
	switch {
	case missing:
		cfg = DefaultConfig()
	case err != nil:
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.overrides.apply(cfg).Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", m.path, err)
	}
	m.file = cfg
	if missing {
		return m.saveUnsafe()
	}
	return nil
}

// Peek returns the effective configuration without keeping or writing
// anything. A missing file yields the defaults.
func (m *Manager) Peek() (*Config, error) {
	cfg, err := m.read()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = DefaultConfig()
	case err != nil:
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.overrides.apply(cfg), nil
}

// Reload re-reads the file. When the file is unreadable or invalid the
// current configuration stays in effect. It reports whether the effective
// configuration changed.
func (m *Manager) Reload() (bool, error) {
	cfg, err := m.read()
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.overrides.apply(cfg)
	if err := next.Validate(); err != nil {
		return false, fmt.Errorf("invalid config %s: %w", m.path, err)
	}
	changed := m.file == nil || !reflect.DeepEqual(m.overrides.apply(m.file), next)
	m.file = cfg
	return changed, nil
}

func (m *Manager) read() (*Config, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", m.path, err)
	}
	return cfg, nil
}

// Save writes the file values. Overrides are not persisted.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveUnsafe()
}

func (m *Manager) saveUnsafe() error {
	if m.file == nil {
		return fmt.Errorf("no configuration to save")
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(m.file)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(m.path, data, 0600)
}

// Path returns the file backing this manager.
func (m *Manager) Path() string {
	return m.path
}

// Get returns the effective configuration, or nil before Load.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.file == nil {
		return nil
	}
	return m.overrides.apply(m.file)
}

// Update replaces the file values and persists them.
func (m *Manager) Update(cfg *Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.overrides.apply(cfg).Validate(); err != nil {
		return err
	}
	m.file = cfg
	return m.saveUnsafe()
}
