package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Config declares one worker. Declaring a worker costs nothing; the agent
// behind it is built on first Get.
type Config struct {
	Name               string   `yaml:"name"`
	PrimaryNamespaces  []string `yaml:"primary_namespaces"`
	FallbackNamespaces []string `yaml:"fallback_namespaces"`
	ToolLimit          int      `yaml:"tool_limit"`
}

// DefaultToolLimit bounds the tool set handed to a worker when its config
// does not say otherwise.
const DefaultToolLimit = 8

// BuildFunc constructs the agent for a worker. Called at most once per
// worker name for the lifetime of the pool.
type BuildFunc func(ctx context.Context, cfg Config) (Agent, []string, error)

// Pool lazily constructs workers. Concurrent Gets for the same name share
// one construction; Gets for different names never block each other.
type Pool struct {
	build  BuildFunc
	logger *slog.Logger

	mu      sync.RWMutex
	configs map[string]Config
	handles map[string]*Handle
	locks   map[string]*sync.Mutex
}

// NewPool creates a pool over the declared worker configs.
func NewPool(configs []Config, build BuildFunc, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pool{
		build:   build,
		logger:  logger,
		configs: make(map[string]Config, len(configs)),
		handles: make(map[string]*Handle),
		locks:   make(map[string]*sync.Mutex),
	}
	for _, cfg := range configs {
		if cfg.ToolLimit <= 0 {
			cfg.ToolLimit = DefaultToolLimit
		}
		p.configs[cfg.Name] = cfg
		p.locks[cfg.Name] = &sync.Mutex{}
	}
	return p
}

// Get returns the worker by name, constructing it on first use. An
// unconfigured name returns (nil, nil) without taking any lock a
// construction could hold.
func (p *Pool) Get(ctx context.Context, name string) (*Handle, error) {
	p.mu.RLock()
	cfg, configured := p.configs[name]
	handle := p.handles[name]
	lock := p.locks[name]
	p.mu.RUnlock()

	if !configured {
		return nil, nil
	}
	if handle != nil {
		return handle, nil
	}

	// Per-name lock: losers of the race wait for the winner's build, then
	// see the handle on the double-check.
	lock.Lock()
	defer lock.Unlock()

	p.mu.RLock()
	handle = p.handles[name]
	p.mu.RUnlock()
	if handle != nil {
		return handle, nil
	}

	start := time.Now()
	agent, toolIDs, err := p.build(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build worker %q: %w", name, err)
	}

	handle = &Handle{
		Name:             name,
		Agent:            agent,
		AvailableToolIDs: toolIDs,
		CreatedAt:        time.Now(),
	}

	p.mu.Lock()
	p.handles[name] = handle
	p.mu.Unlock()

	p.logger.Info("worker constructed",
		"worker", name,
		"tools", len(toolIDs),
		"duration", time.Since(start),
	)

	return handle, nil
}

// Config returns the declared config for a worker name.
func (p *Pool) Config(name string) (Config, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cfg, ok := p.configs[name]
	return cfg, ok
}

// Has reports whether the name is configured, without constructing.
func (p *Pool) Has(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.configs[name]
	return ok
}

// Names returns the configured worker names, sorted.
func (p *Pool) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.configs))
	for name := range p.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Constructed returns the names of workers built so far.
func (p *Pool) Constructed() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.handles))
	for name := range p.handles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
