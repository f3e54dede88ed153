package combocache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"
)

const (
	defaultNumCounters = 1e6
	defaultMaxCost     = 1e7
	defaultBufferItems = 64
	defaultTTL         = 24 * time.Hour
	defaultEntryCost   = 256
)

// CacheConfig configures the combo cache.
type CacheConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64

	// TTL is the freshness horizon: an entry whose UpdatedAt is older than
	// TTL is treated as a miss even when still persisted. Staleness is
	// judged at read time, so a long-idle entry never resurfaces.
	TTL time.Duration
}

// DefaultCacheConfig returns production defaults.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		NumCounters: defaultNumCounters,
		MaxCost:     defaultMaxCost,
		BufferItems: defaultBufferItems,
		TTL:         defaultTTL,
	}
}

func (c CacheConfig) withDefaults() CacheConfig {
	d := DefaultCacheConfig()
	if c.NumCounters <= 0 {
		c.NumCounters = d.NumCounters
	}
	if c.MaxCost <= 0 {
		c.MaxCost = d.MaxCost
	}
	if c.BufferItems <= 0 {
		c.BufferItems = d.BufferItems
	}
	if c.TTL <= 0 {
		c.TTL = d.TTL
	}
	return c
}

// ComboCache layers a ristretto memory tier over the sqlite store. Reads
// try memory first; a store hit repopulates memory. Writes go to both.
type ComboCache struct {
	memory *ristretto.Cache
	store  *Store
	config CacheConfig
	logger *slog.Logger

	disabled atomic.Bool
	hits     atomic.Int64
	misses   atomic.Int64

	now func() time.Time
}

// NewComboCache wires both tiers. store may be nil for a memory-only cache.
func NewComboCache(store *Store, config CacheConfig, logger *slog.Logger) (*ComboCache, error) {
	config = config.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	memory, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: config.NumCounters,
		MaxCost:     config.MaxCost,
		BufferItems: config.BufferItems,
	})
	if err != nil {
		return nil, err
	}

	return &ComboCache{
		memory: memory,
		store:  store,
		config: config,
		logger: logger,
		now:    time.Now,
	}, nil
}

// setClock is a test hook.
func (cc *ComboCache) setClock(now func() time.Time) { cc.now = now }

// Disabled reports whether the cache is administratively off.
func (cc *ComboCache) Disabled() bool { return cc.disabled.Load() }

// SetDisabled toggles the cache. A disabled cache misses every Get and
// drops every Put; existing entries stay where they are.
func (cc *ComboCache) SetDisabled(disabled bool) {
	cc.disabled.Store(disabled)
	cc.logger.Info("combo cache toggled", "disabled", disabled)
}

// Get returns the fresh entry for a key, consulting memory before the
// store. Stale and missing both count as a miss.
func (cc *ComboCache) Get(ctx context.Context, key string) (Entry, bool, error) {
	if cc.disabled.Load() {
		return Entry{}, false, nil
	}

	if value, found := cc.memory.Get(key); found {
		if e, ok := value.(Entry); ok && cc.fresh(e) {
			cc.hits.Add(1)
			return e, true, nil
		}
		cc.memory.Del(key)
	}

	if cc.store == nil {
		cc.misses.Add(1)
		return Entry{}, false, nil
	}

	e, found, err := cc.store.Get(ctx, key)
	if err != nil {
		return Entry{}, false, err
	}
	if !found || !cc.fresh(e) {
		cc.misses.Add(1)
		return Entry{}, false, nil
	}

	cc.memory.SetWithTTL(key, e, defaultEntryCost, cc.config.TTL)
	cc.hits.Add(1)
	return e, true, nil
}

// Put stores the entry in both tiers.
func (cc *ComboCache) Put(ctx context.Context, e Entry) error {
	if cc.disabled.Load() {
		return nil
	}

	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = cc.now()
	}
	if e.LastUsedAt.IsZero() {
		e.LastUsedAt = e.UpdatedAt
	}

	if cc.store != nil {
		if err := cc.store.Put(ctx, e); err != nil {
			return err
		}
	}
	cc.memory.SetWithTTL(e.CacheKey, e, defaultEntryCost, cc.config.TTL)
	return nil
}

// Touch records a hit against the persisted entry.
func (cc *ComboCache) Touch(ctx context.Context, key string) error {
	if cc.disabled.Load() || cc.store == nil {
		return nil
	}
	return cc.store.Touch(ctx, key, cc.now())
}

func (cc *ComboCache) fresh(e Entry) bool {
	return cc.now().Sub(e.UpdatedAt) < cc.config.TTL
}

// CacheStats is a point-in-time snapshot.
type CacheStats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Disabled bool  `json:"disabled"`
}

// Stats returns a snapshot of the counters.
func (cc *ComboCache) Stats() CacheStats {
	return CacheStats{
		Hits:     cc.hits.Load(),
		Misses:   cc.misses.Load(),
		Disabled: cc.disabled.Load(),
	}
}

// Name identifies the cache to the admin clear path.
func (cc *ComboCache) Name() string { return "agent_combos" }

// Clear empties the memory tier, then the store, returning how many
// persisted entries were removed. Memory goes first so a reader cannot
// repopulate it from rows about to be deleted.
func (cc *ComboCache) Clear(ctx context.Context) (int64, error) {
	cc.memory.Clear()
	if cc.store == nil {
		return 0, nil
	}
	return cc.store.Clear(ctx)
}

// Close releases the memory tier.
func (cc *ComboCache) Close() {
	cc.memory.Close()
}
