package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Limits.MaxRequests != 60 || cfg.Limits.Window != time.Minute {
		t.Errorf("limits default: %+v", cfg.Limits)
	}
	if cfg.Breakers.FailureThreshold != 5 {
		t.Errorf("breaker threshold default: %d", cfg.Breakers.FailureThreshold)
	}
	if cfg.Routing.ExternalEnabled {
		t.Error("external knowledge enabled by default")
	}
	if cfg.Dispatch.MaxSteps != 6 {
		t.Errorf("max steps default: %d", cfg.Dispatch.MaxSteps)
	}
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "absent.yaml"))
	if err := m.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Get().Limits.MaxRequests != 60 {
		t.Fatalf("defaults lost: %+v", m.Get().Limits)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  addr: "0.0.0.0:9000"
limits:
  max_requests: 5
  window: 10s
workers:
  - name: travel
    primary_namespaces: ["action/travel"]
    tool_limit: 3
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(path)
	if err := m.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	cfg := m.Get()
	if cfg.Server.Addr != "0.0.0.0:9000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Limits.MaxRequests != 5 || cfg.Limits.Window != 10*time.Second {
		t.Errorf("limits = %+v", cfg.Limits)
	}
	if len(cfg.Workers) != 1 || cfg.Workers[0].Name != "travel" {
		t.Errorf("workers = %+v", cfg.Workers)
	}
	// Untouched sections keep defaults.
	if cfg.Breakers.FailureThreshold != 5 {
		t.Errorf("breakers lost defaults: %+v", cfg.Breakers)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("SVALA_LLM_PROVIDER", "openai")
	t.Setenv("SVALA_LIMIT_MAX_REQUESTS", "7")
	t.Setenv("SVALA_EXTERNAL_KNOWLEDGE", "true")

	m := NewManager("")
	if err := m.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	cfg := m.Get()
	if cfg.LLM.Provider != "openai" {
		t.Errorf("provider = %q", cfg.LLM.Provider)
	}
	if cfg.Limits.MaxRequests != 7 {
		t.Errorf("max requests = %d", cfg.Limits.MaxRequests)
	}
	if !cfg.Routing.ExternalEnabled {
		t.Error("env did not enable external knowledge")
	}
}

func TestOnChangeNotified(t *testing.T) {
	m := NewManager("")

	var seen *Config
	m.OnChange(func(cfg *Config) { seen = cfg })

	if err := m.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if seen == nil {
		t.Fatal("watcher not notified")
	}
	if seen != m.Get() {
		t.Fatal("watcher saw a different snapshot")
	}
}

func TestReloadSwapsSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("limits:\n  max_requests: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(path)
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}
	first := m.Get()

	if err := os.WriteFile(path, []byte("limits:\n  max_requests: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := m.Reload(); err != nil {
		t.Fatal(err)
	}

	if m.Get() == first {
		t.Fatal("snapshot not swapped")
	}
	if m.Get().Limits.MaxRequests != 2 {
		t.Fatalf("reloaded value = %d", m.Get().Limits.MaxRequests)
	}
}
