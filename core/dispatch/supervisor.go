// Package dispatch ties the layers together: classify the query, pick a
// worker, hand it a bounded tool set, and run the agent loop under the
// breaker and the rate limiter.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/svala-ai/svala/core/combocache"
	"github.com/svala-ai/svala/core/resilience"
	"github.com/svala-ai/svala/core/retrieval"
	"github.com/svala-ai/svala/core/routing"
	"github.com/svala-ai/svala/core/workers"
)

// Request is one inbound query.
type Request struct {
	SessionID    string
	Query        string
	Flags        routing.Flags
	RecentAgents []string
}

// Result is the outcome of one dispatch. Throttling and unavailability are
// outcomes, not errors: the caller renders them to the user.
type Result struct {
	ID             string        `json:"id"`
	Text           string        `json:"text"`
	ActionRoute    routing.Route `json:"action_route"`
	KnowledgeRoute routing.Route `json:"knowledge_route"`
	Worker         string        `json:"worker"`
	ToolIDs        []string      `json:"tool_ids,omitempty"`
	Steps          int           `json:"steps"`
	ComboCacheHit  bool          `json:"combo_cache_hit"`

	Throttled  bool          `json:"throttled,omitempty"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`

	Unavailable bool   `json:"unavailable,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// ToolExecutor runs one tool call and returns its textual result.
type ToolExecutor interface {
	Execute(ctx context.Context, call workers.ToolCall) (string, error)
}

// SupervisorConfig tunes the dispatch loop.
type SupervisorConfig struct {
	// MaxSteps bounds agent/tool round trips for one request.
	MaxSteps int

	// MaxRepeatedCalls cuts the loop when the agent issues the same tool
	// call this many times in a row.
	MaxRepeatedCalls int

	// RouteWorkers maps action routes to worker names. Routes without an
	// entry use the route name as the worker name.
	RouteWorkers map[routing.Route]string
}

// DefaultSupervisorConfig returns production defaults.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		MaxSteps:         6,
		MaxRepeatedCalls: 2,
	}
}

// Supervisor owns one dispatch pipeline. All collaborators are injected;
// the supervisor holds no global state.
type Supervisor struct {
	actions   *routing.ActionClassifier
	knowledge *routing.KnowledgeClassifier
	limiter   *resilience.RateLimiter
	breakers  *resilience.BreakerRegistry
	pool      *workers.Pool
	retriever *retrieval.SmartRetriever
	combos    *combocache.ComboCache
	executor  ToolExecutor
	config    SupervisorConfig
	logger    *slog.Logger
}

// SupervisorDeps collects the injected collaborators.
type SupervisorDeps struct {
	Actions   *routing.ActionClassifier
	Knowledge *routing.KnowledgeClassifier
	Limiter   *resilience.RateLimiter
	Breakers  *resilience.BreakerRegistry
	Pool      *workers.Pool
	Retriever *retrieval.SmartRetriever
	Combos    *combocache.ComboCache
	Executor  ToolExecutor
}

// NewSupervisor wires the pipeline.
func NewSupervisor(deps SupervisorDeps, config SupervisorConfig, logger *slog.Logger) *Supervisor {
	d := DefaultSupervisorConfig()
	if config.MaxSteps <= 0 {
		config.MaxSteps = d.MaxSteps
	}
	if config.MaxRepeatedCalls <= 0 {
		config.MaxRepeatedCalls = d.MaxRepeatedCalls
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Supervisor{
		actions:   deps.Actions,
		knowledge: deps.Knowledge,
		limiter:   deps.Limiter,
		breakers:  deps.Breakers,
		pool:      deps.Pool,
		retriever: deps.Retriever,
		combos:    deps.Combos,
		executor:  deps.Executor,
		config:    config,
		logger:    logger,
	}
}

// Dispatch runs one query through the full pipeline.
func (s *Supervisor) Dispatch(ctx context.Context, req Request) (*Result, error) {
	result := &Result{ID: uuid.NewString()}

	if s.limiter != nil {
		decision := s.limiter.Check(req.SessionID)
		if !decision.Allowed {
			result.Throttled = true
			result.RetryAfter = decision.RetryAfter
			s.logger.Warn("request throttled",
				"session", req.SessionID,
				"retry_after", decision.RetryAfter,
			)
			return result, nil
		}
	}

	result.ActionRoute = s.actions.Classify(ctx, req.Query, req.Flags)
	result.KnowledgeRoute = s.knowledge.Classify(ctx, req.Query, req.Flags)

	workerName, cacheHit := s.resolveWorker(ctx, req, result.ActionRoute)
	result.Worker = workerName
	result.ComboCacheHit = cacheHit

	handle, err := s.pool.Get(ctx, workerName)
	if err != nil {
		return nil, fmt.Errorf("dispatch %s: %w", result.ID, err)
	}
	if handle == nil {
		result.Unavailable = true
		result.Reason = fmt.Sprintf("no worker configured for route %s", result.ActionRoute)
		return result, nil
	}

	breaker := s.breakers.Get(workerName)
	if !breaker.CanExecute() {
		result.Unavailable = true
		result.Reason = fmt.Sprintf("worker %s circuit open", workerName)
		s.logger.Warn("dispatch rejected by open circuit", "worker", workerName)
		return result, nil
	}

	toolIDs, err := s.toolsFor(ctx, req.Query, workerName)
	if err != nil {
		return nil, fmt.Errorf("dispatch %s: %w", result.ID, err)
	}
	result.ToolIDs = toolIDs

	text, steps, err := s.runLoop(ctx, handle, req, toolIDs)
	if err != nil {
		breaker.RecordFailure()
		return nil, fmt.Errorf("dispatch %s: worker %s: %w", result.ID, workerName, err)
	}
	breaker.RecordSuccess()

	result.Text = text
	result.Steps = steps

	s.rememberCombo(ctx, req, result.ActionRoute, workerName, cacheHit)

	return result, nil
}

// resolveWorker picks the worker for the route, preferring a remembered
// combination for this conversation shape.
func (s *Supervisor) resolveWorker(ctx context.Context, req Request, route routing.Route) (string, bool) {
	if s.combos != nil {
		key := combocache.ComputeKey(req.RecentAgents, string(route))
		if entry, found, err := s.combos.Get(ctx, key); err == nil && found {
			var agents []string
			if json.Unmarshal(entry.Agents, &agents) == nil && len(agents) > 0 && s.pool.Has(agents[0]) {
				if err := s.combos.Touch(ctx, key); err != nil {
					s.logger.Warn("combo touch failed", "error", err)
				}
				return agents[0], true
			}
		}
	}

	if name, ok := s.config.RouteWorkers[route]; ok {
		return name, false
	}
	return string(route), false
}

func (s *Supervisor) rememberCombo(ctx context.Context, req Request, route routing.Route, worker string, wasHit bool) {
	if s.combos == nil || wasHit {
		return
	}

	agents, err := json.Marshal([]string{worker})
	if err != nil {
		return
	}

	key := combocache.ComputeKey(req.RecentAgents, string(route))
	entry := combocache.Entry{
		CacheKey:     key,
		RouteHint:    string(route),
		Pattern:      retrieval.PatternHash(req.Query),
		RecentAgents: req.RecentAgents,
		Agents:       agents,
	}
	if err := s.combos.Put(ctx, entry); err != nil {
		s.logger.Warn("combo put failed", "key", key, "error", err)
	}
}

func (s *Supervisor) toolsFor(ctx context.Context, query, workerName string) ([]string, error) {
	if s.retriever == nil {
		return nil, nil
	}

	cfg, ok := s.pool.Config(workerName)
	if !ok {
		return nil, nil
	}

	scored, err := s.retriever.Retrieve(ctx, query, cfg.PrimaryNamespaces, cfg.FallbackNamespaces, cfg.ToolLimit)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(scored))
	for _, st := range scored {
		ids = append(ids, st.Tool.ID)
	}
	return ids, nil
}
