package routing

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultRouteCacheSize = 4096
	defaultRouteCacheTTL  = time.Hour
)

// RouteCache remembers fallback classification results so repeat ambiguous
// queries skip the LLM entirely. Entries expire on TTL and the LRU bound
// keeps memory flat.
type RouteCache struct {
	entries *expirable.LRU[string, Route]
	hits    atomic.Int64
	misses  atomic.Int64
}

// RouteCacheConfig configures the route cache.
type RouteCacheConfig struct {
	MaxSize int
	TTL     time.Duration
}

// NewRouteCache creates a route cache with LRU + TTL eviction.
func NewRouteCache(cfg RouteCacheConfig) *RouteCache {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultRouteCacheSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultRouteCacheTTL
	}
	return &RouteCache{
		entries: expirable.NewLRU[string, Route](cfg.MaxSize, nil, cfg.TTL),
	}
}

// Get returns the cached route for a query, if present and unexpired.
func (c *RouteCache) Get(query string) (Route, bool) {
	route, ok := c.entries.Get(normalizeQuery(query))
	if ok {
		c.hits.Add(1)
		return route, true
	}
	c.misses.Add(1)
	return "", false
}

// Set stores a classification result.
func (c *RouteCache) Set(query string, route Route) {
	c.entries.Add(normalizeQuery(query), route)
}

// Len reports the number of live entries.
func (c *RouteCache) Len() int {
	return c.entries.Len()
}

// Clear drops all entries and returns how many were removed. The context
// parameter keeps the signature uniform with the persisted cache clearers.
func (c *RouteCache) Clear(_ context.Context) (int64, error) {
	n := c.entries.Len()
	c.entries.Purge()
	return int64(n), nil
}

// Name identifies this cache in administrative clear reports.
func (c *RouteCache) Name() string { return "route_cache" }

// RouteCacheStats is a point-in-time snapshot of cache effectiveness.
type RouteCacheStats struct {
	Size    int     `json:"size"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Stats returns cache statistics.
func (c *RouteCache) Stats() RouteCacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses

	hitRate := 0.0
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return RouteCacheStats{
		Size:    c.entries.Len(),
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate,
	}
}

func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
