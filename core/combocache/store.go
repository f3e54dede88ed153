package combocache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/svala-ai/svala/core/database"
)

// Entry is one persisted agent combination.
type Entry struct {
	CacheKey     string          `json:"cache_key"`
	RouteHint    string          `json:"route_hint"`
	Pattern      string          `json:"pattern"`
	RecentAgents []string        `json:"recent_agents"`
	Agents       json.RawMessage `json:"agents"`
	HitCount     int64           `json:"hit_count"`
	LastUsedAt   time.Time       `json:"last_used_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Store is the sqlite tier of the combo cache.
type Store struct {
	pool *database.Pool
}

// NewStore creates a store over an opened, migrated pool.
func NewStore(pool *database.Pool) *Store {
	return &Store{pool: pool}
}

// Put inserts or replaces the entry for its cache key.
func (s *Store) Put(ctx context.Context, e Entry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO agent_combos
			(cache_key, route_hint, pattern, recent_agents, agents, hit_count, last_used_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET
			route_hint    = excluded.route_hint,
			pattern       = excluded.pattern,
			recent_agents = excluded.recent_agents,
			agents        = excluded.agents,
			last_used_at  = excluded.last_used_at,
			updated_at    = excluded.updated_at`,
		e.CacheKey, e.RouteHint, e.Pattern,
		strings.Join(e.RecentAgents, ","), string(e.Agents),
		e.HitCount, e.LastUsedAt.UTC(), e.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("put combo: %w", err)
	}
	return nil
}

// Get returns the entry for a cache key.
func (s *Store) Get(ctx context.Context, key string) (Entry, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT cache_key, route_hint, pattern, recent_agents, agents, hit_count, last_used_at, updated_at
		FROM agent_combos WHERE cache_key = ?`, key)

	var e Entry
	var recent, agents string
	err := row.Scan(&e.CacheKey, &e.RouteHint, &e.Pattern, &recent, &agents,
		&e.HitCount, &e.LastUsedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get combo: %w", err)
	}

	if recent != "" {
		e.RecentAgents = strings.Split(recent, ",")
	}
	e.Agents = json.RawMessage(agents)
	return e, true, nil
}

// Touch records one hit: bumps hit_count and last_used_at without changing
// the combination itself.
func (s *Store) Touch(ctx context.Context, key string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE agent_combos
		SET hit_count = hit_count + 1, last_used_at = ?
		WHERE cache_key = ?`, at.UTC(), key)
	if err != nil {
		return fmt.Errorf("touch combo: %w", err)
	}
	return nil
}

// Count reports the number of persisted entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM agent_combos`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count combos: %w", err)
	}
	return n, nil
}

// Clear deletes every persisted entry, returning how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.pool.Exec(ctx, `DELETE FROM agent_combos`)
	if err != nil {
		return 0, fmt.Errorf("clear combos: %w", err)
	}
	return res.RowsAffected()
}
