package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// Manager holds the current configuration snapshot. Get is lock-free;
// Load/Reload swap the whole snapshot atomically and notify subscribers.
type Manager struct {
	current   atomic.Pointer[Config]
	path      string
	watchers  []func(*Config)
	watcherMu sync.RWMutex
}

// NewManager creates a manager seeded with defaults. path may be empty,
// in which case Load applies only environment overrides.
func NewManager(path string) *Manager {
	m := &Manager{path: path}
	m.current.Store(Default())
	return m
}

// Get returns the current snapshot. Callers must not mutate it.
func (m *Manager) Get() *Config {
	return m.current.Load()
}

// Load reads the config file over the defaults, applies environment
// overrides, and swaps the snapshot in.
func (m *Manager) Load() error {
	cfg := Default()

	if m.path != "" {
		data, err := os.ReadFile(m.path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return fmt.Errorf("parse config %s: %w", m.path, err)
			}
		}
	}

	applyEnvironment(cfg)

	m.current.Store(cfg)
	m.notify(cfg)
	return nil
}

// Reload re-reads the config file.
func (m *Manager) Reload() error { return m.Load() }

// OnChange registers a callback invoked after each successful Load.
func (m *Manager) OnChange(fn func(*Config)) {
	m.watcherMu.Lock()
	m.watchers = append(m.watchers, fn)
	m.watcherMu.Unlock()
}

func (m *Manager) notify(cfg *Config) {
	m.watcherMu.RLock()
	watchers := m.watchers
	m.watcherMu.RUnlock()

	for _, fn := range watchers {
		fn(cfg)
	}
}

func applyEnvironment(cfg *Config) {
	if v := os.Getenv("SVALA_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SVALA_CATALOG_PATH"); v != "" {
		cfg.Catalog.Path = v
	}
	if v := os.Getenv("SVALA_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SVALA_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("SVALA_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("SVALA_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("SVALA_LIMIT_MAX_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Limits.MaxRequests = n
		}
	}
	if v := os.Getenv("SVALA_LIMIT_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Limits.Window = d
		}
	}
	if v := os.Getenv("SVALA_EXTERNAL_KNOWLEDGE"); v != "" {
		cfg.Routing.ExternalEnabled = v == "true" || v == "1"
	}
}
