// Package config loads and holds the process configuration: one YAML file,
// environment overrides, an atomically swapped snapshot, and change
// notification for subscribers.
package config

import (
	"time"

	"github.com/svala-ai/svala/core/llm"
	"github.com/svala-ai/svala/core/routing"
	"github.com/svala-ai/svala/core/workers"
)

// Config is the full process configuration.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Routing   RoutingConfig    `yaml:"routing"`
	Limits    LimitsConfig     `yaml:"limits"`
	Breakers  BreakersConfig   `yaml:"breakers"`
	Workers   []workers.Config `yaml:"workers"`
	Catalog   CatalogConfig    `yaml:"catalog"`
	Database  DatabaseConfig   `yaml:"database"`
	Cache     CacheConfig      `yaml:"cache"`
	Retrieval RetrievalConfig  `yaml:"retrieval"`
	Dispatch  DispatchConfig   `yaml:"dispatch"`
	LLM       llm.Config       `yaml:"llm"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// RoutingConfig carries the keyword taxonomies in matching order; the first
// matching category wins, so order is meaningful.
type RoutingConfig struct {
	ActionKeywords    []routing.KeywordTaxonomy `yaml:"action_keywords"`
	KnowledgeKeywords []routing.KeywordTaxonomy `yaml:"knowledge_keywords"`
	ExternalEnabled   bool                      `yaml:"external_enabled"`
	FallbackTimeout   time.Duration             `yaml:"fallback_timeout"`
}

type LimitsConfig struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

type BreakersConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout"`
}

type CatalogConfig struct {
	Path string `yaml:"path"`

	// WatchReload rebuilds the tool index when the catalog file changes.
	WatchReload bool `yaml:"watch_reload"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type CacheConfig struct {
	TTL      time.Duration `yaml:"ttl"`
	Disabled bool          `yaml:"disabled"`
}

type RetrievalConfig struct {
	BoostWeight float64 `yaml:"boost_weight"`
}

type DispatchConfig struct {
	MaxSteps         int `yaml:"max_steps"`
	MaxRepeatedCalls int `yaml:"max_repeated_calls"`
}

// Default returns the built-in configuration. A missing config file runs on
// these values alone.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:8090",
		},
		Routing: RoutingConfig{
			ExternalEnabled: false,
			FallbackTimeout: 2 * time.Second,
		},
		Limits: LimitsConfig{
			MaxRequests: 60,
			Window:      time.Minute,
		},
		Breakers: BreakersConfig{
			FailureThreshold: 5,
			ResetTimeout:     60 * time.Second,
		},
		Catalog: CatalogConfig{
			Path:        "catalog.yaml",
			WatchReload: true,
		},
		Database: DatabaseConfig{
			Path: "svala.db",
		},
		Cache: CacheConfig{
			TTL: 24 * time.Hour,
		},
		Retrieval: RetrievalConfig{
			BoostWeight: 0.5,
		},
		Dispatch: DispatchConfig{
			MaxSteps:         6,
			MaxRepeatedCalls: 2,
		},
		LLM: llm.Config{
			Provider:  "anthropic",
			MaxTokens: 1024,
		},
	}
}
