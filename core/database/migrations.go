package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

// Migration is one versioned schema step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// Migrate applies all pending migrations in version order, each inside its
// own transaction, bumping PRAGMA user_version as it goes.
func (p *Pool) Migrate(ctx context.Context, migrations []Migration) error {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})

	current, err := p.Version()
	if err != nil {
		return fmt.Errorf("get version: %w", err)
	}

	for _, m := range sorted {
		if m.Version <= current {
			continue
		}
		if err := p.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
	}

	return nil
}

func (p *Pool) applyMigration(ctx context.Context, m Migration) error {
	return p.Transaction(ctx, func(tx *sql.Tx) error {
		if err := m.Up(tx); err != nil {
			return err
		}
		_, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version))
		return err
	})
}

// Schema returns the dispatch layer's migrations: the retrieval feedback
// table and the agent combo cache table.
func Schema() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "retrieval feedback signals",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE IF NOT EXISTS retrieval_feedback (
						tool_id       TEXT NOT NULL,
						query_pattern TEXT NOT NULL,
						successes     INTEGER NOT NULL DEFAULT 0,
						failures      INTEGER NOT NULL DEFAULT 0,
						updated_at    TIMESTAMP NOT NULL,
						UNIQUE (tool_id, query_pattern)
					);
					CREATE INDEX IF NOT EXISTS idx_retrieval_feedback_updated
						ON retrieval_feedback (updated_at DESC);
				`)
				return err
			},
		},
		{
			Version:     2,
			Description: "agent combo cache",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE IF NOT EXISTS agent_combos (
						cache_key     TEXT NOT NULL UNIQUE,
						route_hint    TEXT NOT NULL,
						pattern       TEXT NOT NULL,
						recent_agents TEXT NOT NULL,
						agents        TEXT NOT NULL,
						hit_count     INTEGER NOT NULL DEFAULT 0,
						last_used_at  TIMESTAMP NOT NULL,
						updated_at    TIMESTAMP NOT NULL
					);
				`)
				return err
			},
		},
	}
}
