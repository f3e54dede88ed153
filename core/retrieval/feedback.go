package retrieval

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/svala-ai/svala/core/database"
)

// Signal is the aggregated outcome history for one (tool, query pattern)
// pair. Counters only ever grow.
type Signal struct {
	ToolID    string    `json:"tool_id"`
	Pattern   string    `json:"query_pattern"`
	Successes int64     `json:"successes"`
	Failures  int64     `json:"failures"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SuccessRate returns successes / total, or 0 with no observations.
func (s Signal) SuccessRate() float64 {
	total := s.Successes + s.Failures
	if total == 0 {
		return 0
	}
	return float64(s.Successes) / float64(total)
}

// FeedbackStore persists retrieval feedback signals in sqlite.
type FeedbackStore struct {
	pool *database.Pool
}

// NewFeedbackStore creates a store over an opened, migrated pool.
func NewFeedbackStore(pool *database.Pool) *FeedbackStore {
	return &FeedbackStore{pool: pool}
}

const upsertSignalSQL = `
	INSERT INTO retrieval_feedback (tool_id, query_pattern, successes, failures, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (tool_id, query_pattern) DO UPDATE SET
		successes  = successes + excluded.successes,
		failures   = failures + excluded.failures,
		updated_at = excluded.updated_at`

// Upsert records one observation. The increment happens inside the
// database, so concurrent observations for the same pair both land.
func (fs *FeedbackStore) Upsert(ctx context.Context, toolID, pattern string, success bool) error {
	s, f := counters(success)
	_, err := fs.pool.Exec(ctx, upsertSignalSQL, toolID, pattern, s, f, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert feedback: %w", err)
	}
	return nil
}

// UpsertTx is Upsert inside a caller-managed transaction; commit and
// rollback stay the caller's responsibility.
func (fs *FeedbackStore) UpsertTx(ctx context.Context, tx *sql.Tx, toolID, pattern string, success bool) error {
	s, f := counters(success)
	_, err := tx.ExecContext(ctx, upsertSignalSQL, toolID, pattern, s, f, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert feedback: %w", err)
	}
	return nil
}

func counters(success bool) (successes, failures int64) {
	if success {
		return 1, 0
	}
	return 0, 1
}

// Get returns the signal for one pair.
func (fs *FeedbackStore) Get(ctx context.Context, toolID, pattern string) (Signal, bool, error) {
	row := fs.pool.QueryRow(ctx, `
		SELECT tool_id, query_pattern, successes, failures, updated_at
		FROM retrieval_feedback WHERE tool_id = ? AND query_pattern = ?`,
		toolID, pattern)

	var s Signal
	err := row.Scan(&s.ToolID, &s.Pattern, &s.Successes, &s.Failures, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return Signal{}, false, nil
	}
	if err != nil {
		return Signal{}, false, fmt.Errorf("get feedback: %w", err)
	}
	return s, true, nil
}

// ForPattern returns every signal recorded under one query pattern, keyed
// by tool id. This is the ranking-time lookup.
func (fs *FeedbackStore) ForPattern(ctx context.Context, pattern string) (map[string]Signal, error) {
	rows, err := fs.pool.Query(ctx, `
		SELECT tool_id, query_pattern, successes, failures, updated_at
		FROM retrieval_feedback WHERE query_pattern = ?`, pattern)
	if err != nil {
		return nil, fmt.Errorf("feedback for pattern: %w", err)
	}
	defer rows.Close()

	signals := make(map[string]Signal)
	for rows.Next() {
		var s Signal
		if err := rows.Scan(&s.ToolID, &s.Pattern, &s.Successes, &s.Failures, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		signals[s.ToolID] = s
	}
	return signals, rows.Err()
}

// Recent returns the n most-recently-updated signals, newest first. Used
// for snapshot loading at startup.
func (fs *FeedbackStore) Recent(ctx context.Context, n int) ([]Signal, error) {
	rows, err := fs.pool.Query(ctx, `
		SELECT tool_id, query_pattern, successes, failures, updated_at
		FROM retrieval_feedback ORDER BY updated_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("recent feedback: %w", err)
	}
	defer rows.Close()

	var signals []Signal
	for rows.Next() {
		var s Signal
		if err := rows.Scan(&s.ToolID, &s.Pattern, &s.Successes, &s.Failures, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		signals = append(signals, s)
	}
	return signals, rows.Err()
}
