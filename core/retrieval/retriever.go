package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/svala-ai/svala/core/catalog"
)

// ScoredTool is one ranked retrieval result.
type ScoredTool struct {
	Tool  *catalog.Tool
	Score float64
}

// RetrieverConfig tunes the retriever.
type RetrieverConfig struct {
	// BoostWeight scales the feedback bias. A tool with a perfect success
	// rate scores (1 + BoostWeight) times its relevance score; a tool with
	// no history keeps its raw score. Boosting never reorders a tool below
	// one it already outranked on equal history.
	BoostWeight float64

	// CandidateFactor is how many index hits to pull per namespace tier
	// relative to the requested limit, so namespace filtering still leaves
	// enough candidates.
	CandidateFactor int
}

// DefaultRetrieverConfig returns production defaults.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		BoostWeight:     0.5,
		CandidateFactor: 4,
	}
}

// SmartRetriever ranks catalog tools for a query: full-text relevance from
// the index, biased by persisted success/failure feedback, with primary
// namespaces always outranking fallback namespaces.
type SmartRetriever struct {
	index    *ToolIndex
	feedback *FeedbackStore
	config   RetrieverConfig
	logger   *slog.Logger

	// snapshot holds recently updated signals grouped by pattern, loaded at
	// startup. Used only when the live feedback lookup fails.
	snapshotMu sync.RWMutex
	snapshot   map[string]map[string]Signal
}

// NewSmartRetriever wires the retriever. feedback may be nil, in which case
// ranking is pure relevance.
func NewSmartRetriever(index *ToolIndex, feedback *FeedbackStore, config RetrieverConfig, logger *slog.Logger) *SmartRetriever {
	if config.BoostWeight < 0 {
		config.BoostWeight = 0
	}
	if config.CandidateFactor <= 0 {
		config.CandidateFactor = DefaultRetrieverConfig().CandidateFactor
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SmartRetriever{
		index:    index,
		feedback: feedback,
		config:   config,
		logger:   logger,
	}
}

// Retrieve returns up to limit tools for the query. Every primary-namespace
// match ranks ahead of every fallback-namespace match; fallback namespaces
// are consulted only when the primary tier comes up short.
func (r *SmartRetriever) Retrieve(ctx context.Context, query string, primary, fallback []string, limit int) ([]ScoredTool, error) {
	if limit <= 0 {
		return nil, nil
	}

	primaryGlobs, err := catalog.CompileNamespaces(primary)
	if err != nil {
		return nil, err
	}
	fallbackGlobs, err := catalog.CompileNamespaces(fallback)
	if err != nil {
		return nil, err
	}

	hits, err := r.index.Search(ctx, query, limit*r.config.CandidateFactor)
	if err != nil {
		return nil, fmt.Errorf("retrieve %q: %w", query, err)
	}

	pattern := PatternHash(query)
	signals, err := r.signalsFor(ctx, pattern)
	if err != nil {
		// Feedback is a bias, not a dependency. Fall back to the startup
		// snapshot, or rank on relevance alone.
		r.logger.Warn("feedback lookup failed, using snapshot", "error", err)
		signals = r.snapshotFor(pattern)
	}

	cat := r.index.Catalog()
	var primaryTier, fallbackTier []ScoredTool
	for _, h := range hits {
		tool, ok := cat.Get(h.ToolID)
		if !ok {
			continue
		}
		st := ScoredTool{Tool: tool, Score: r.biased(h.Score, signals[h.ToolID])}
		switch {
		case catalog.MatchesAny(tool.Namespace, primaryGlobs):
			primaryTier = append(primaryTier, st)
		case catalog.MatchesAny(tool.Namespace, fallbackGlobs):
			fallbackTier = append(fallbackTier, st)
		}
	}

	sortByScore(primaryTier)
	results := primaryTier
	if len(results) > limit {
		results = results[:limit]
	}
	if len(results) < limit && len(fallbackTier) > 0 {
		sortByScore(fallbackTier)
		room := limit - len(results)
		if len(fallbackTier) > room {
			fallbackTier = fallbackTier[:room]
		}
		results = append(results, fallbackTier...)
	}

	r.logger.Debug("retrieved tools",
		"query_pattern", PatternHash(query),
		"primary", len(primaryTier),
		"fallback", len(fallbackTier),
		"returned", len(results),
	)

	return results, nil
}

// RecordOutcome persists one success/failure observation for a tool against
// the query's pattern bucket.
func (r *SmartRetriever) RecordOutcome(ctx context.Context, query, toolID string, success bool) error {
	if r.feedback == nil {
		return nil
	}
	return r.feedback.Upsert(ctx, toolID, PatternHash(query), success)
}

func (r *SmartRetriever) signalsFor(ctx context.Context, pattern string) (map[string]Signal, error) {
	if r.feedback == nil {
		return nil, nil
	}
	return r.feedback.ForPattern(ctx, pattern)
}

// Preload fills the snapshot with the n most recently updated signals.
// Called once at startup; the snapshot is not refreshed afterwards.
func (r *SmartRetriever) Preload(ctx context.Context, n int) error {
	if r.feedback == nil || n <= 0 {
		return nil
	}

	recent, err := r.feedback.Recent(ctx, n)
	if err != nil {
		return err
	}

	snapshot := make(map[string]map[string]Signal)
	for _, sig := range recent {
		if snapshot[sig.Pattern] == nil {
			snapshot[sig.Pattern] = make(map[string]Signal)
		}
		snapshot[sig.Pattern][sig.ToolID] = sig
	}

	r.snapshotMu.Lock()
	r.snapshot = snapshot
	r.snapshotMu.Unlock()

	r.logger.Info("feedback snapshot loaded", "signals", len(recent), "patterns", len(snapshot))
	return nil
}

func (r *SmartRetriever) snapshotFor(pattern string) map[string]Signal {
	r.snapshotMu.RLock()
	defer r.snapshotMu.RUnlock()
	return r.snapshot[pattern]
}

// biased applies the feedback multiplier. More successes for the same
// relevance always means an equal-or-higher final score.
func (r *SmartRetriever) biased(score float64, sig Signal) float64 {
	return score * (1 + r.config.BoostWeight*sig.SuccessRate())
}

func sortByScore(tools []ScoredTool) {
	sort.SliceStable(tools, func(i, j int) bool {
		return tools[i].Score > tools[j].Score
	})
}
