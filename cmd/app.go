package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/svala-ai/svala/core/catalog"
	"github.com/svala-ai/svala/core/combocache"
	"github.com/svala-ai/svala/core/config"
	"github.com/svala-ai/svala/core/database"
	"github.com/svala-ai/svala/core/dispatch"
	"github.com/svala-ai/svala/core/llm"
	"github.com/svala-ai/svala/core/resilience"
	"github.com/svala-ai/svala/core/retrieval"
	"github.com/svala-ai/svala/core/routing"
	"github.com/svala-ai/svala/core/workers"
)

// feedbackSnapshotSize is how many recent feedback signals are loaded at
// startup as a fallback for live lookups.
const feedbackSnapshotSize = 500

// app is the wired dispatch pipeline. Everything is injected top-down from
// one configuration snapshot; there is no package-level state.
type app struct {
	config     *config.Config
	logger     *slog.Logger
	pool       *database.Pool
	index      *retrieval.ToolIndex
	retriever  *retrieval.SmartRetriever
	combos     *combocache.ComboCache
	routes     *routing.RouteCache
	limiter    *resilience.RateLimiter
	breakers   *resilience.BreakerRegistry
	actions    *routing.ActionClassifier
	knowledge  *routing.KnowledgeClassifier
	workers    *workers.Pool
	executor   *dispatch.ExecutorRegistry
	supervisor *dispatch.Supervisor
	admin      *combocache.Admin
	watcher    *catalog.Watcher
}

// buildApp wires the full pipeline from the configuration file.
func buildApp(ctx context.Context) (*app, error) {
	manager := config.NewManager(configPath)
	if err := manager.Load(); err != nil {
		return nil, err
	}
	cfg := manager.Get()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	pool, err := database.Open(cfg.Database.Path, database.DefaultPoolConfig())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := pool.Migrate(ctx, database.Schema()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	index, err := retrieval.NewToolIndex(cat)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("build tool index: %w", err)
	}

	feedback := retrieval.NewFeedbackStore(pool)
	retrieverCfg := retrieval.DefaultRetrieverConfig()
	if cfg.Retrieval.BoostWeight > 0 {
		retrieverCfg.BoostWeight = cfg.Retrieval.BoostWeight
	}
	retriever := retrieval.NewSmartRetriever(index, feedback, retrieverCfg, logger)
	if err := retriever.Preload(ctx, feedbackSnapshotSize); err != nil {
		logger.Warn("feedback snapshot preload failed", "error", err)
	}

	comboCfg := combocache.DefaultCacheConfig()
	if cfg.Cache.TTL > 0 {
		comboCfg.TTL = cfg.Cache.TTL
	}
	combos, err := combocache.NewComboCache(combocache.NewStore(pool), comboCfg, logger)
	if err != nil {
		pool.Close()
		index.Close()
		return nil, fmt.Errorf("combo cache: %w", err)
	}
	combos.SetDisabled(cfg.Cache.Disabled)

	routeCache := routing.NewRouteCache(routing.RouteCacheConfig{})

	var provider llm.Provider
	if cfg.LLM.APIKey != "" {
		provider, err = llm.New(ctx, cfg.LLM)
		if err != nil {
			pool.Close()
			index.Close()
			combos.Close()
			return nil, err
		}
	} else {
		logger.Warn("no llm api key configured, fallback classification disabled")
	}

	fallbackCfg := routing.FallbackConfig{
		Timeout: cfg.Routing.FallbackTimeout,
		Cache:   routeCache,
	}
	actions := routing.NewActionClassifier(routingProvider(provider), routing.ActionClassifierConfig{
		Taxonomy: cfg.Routing.ActionKeywords,
		Fallback: fallbackCfg,
	}, logger)
	knowledge := routing.NewKnowledgeClassifier(routingProvider(provider), routing.KnowledgeClassifierConfig{
		Taxonomy:        cfg.Routing.KnowledgeKeywords,
		ExternalEnabled: cfg.Routing.ExternalEnabled,
		Fallback:        fallbackCfg,
	}, logger)

	executor := dispatch.NewExecutorRegistry()

	workerPool := workers.NewPool(cfg.Workers, func(ctx context.Context, wc workers.Config) (workers.Agent, []string, error) {
		if provider == nil {
			return nil, nil, fmt.Errorf("worker %s: no llm provider configured", wc.Name)
		}

		globs, err := catalog.CompileNamespaces(wc.PrimaryNamespaces)
		if err != nil {
			return nil, nil, err
		}
		var toolIDs []string
		for _, t := range index.Catalog().InNamespaces(globs) {
			toolIDs = append(toolIDs, t.ID)
		}

		agent := workers.NewProviderAgent(provider, workerSystemPrompt(wc.Name))
		return agent, toolIDs, nil
	}, logger)

	limiter := resilience.NewRateLimiter(resilience.RateLimiterConfig{
		MaxRequests: cfg.Limits.MaxRequests,
		Window:      cfg.Limits.Window,
	})
	breakers := resilience.NewBreakerRegistry(resilience.BreakerConfig{
		FailureThreshold: cfg.Breakers.FailureThreshold,
		ResetTimeout:     cfg.Breakers.ResetTimeout,
	})

	supervisor := dispatch.NewSupervisor(dispatch.SupervisorDeps{
		Actions:   actions,
		Knowledge: knowledge,
		Limiter:   limiter,
		Breakers:  breakers,
		Pool:      workerPool,
		Retriever: retriever,
		Combos:    combos,
		Executor:  executor,
	}, dispatch.SupervisorConfig{
		MaxSteps:         cfg.Dispatch.MaxSteps,
		MaxRepeatedCalls: cfg.Dispatch.MaxRepeatedCalls,
	}, logger)

	a := &app{
		config:     cfg,
		logger:     logger,
		pool:       pool,
		index:      index,
		retriever:  retriever,
		combos:     combos,
		routes:     routeCache,
		limiter:    limiter,
		breakers:   breakers,
		actions:    actions,
		knowledge:  knowledge,
		workers:    workerPool,
		executor:   executor,
		supervisor: supervisor,
		admin:      combocache.NewAdmin(logger, routeCache, combos),
	}

	if cfg.Catalog.WatchReload {
		watcher, err := catalog.NewWatcher(cfg.Catalog.Path, func(fresh *catalog.Catalog) {
			if err := index.Reload(fresh); err != nil {
				logger.Error("tool index reload failed", "error", err)
			}
		}, logger)
		if err != nil {
			logger.Warn("catalog watch unavailable", "error", err)
		} else {
			a.watcher = watcher
		}
	}

	return a, nil
}

// routingProvider adapts the llm provider to the classifier's narrower
// interface while keeping a typed nil out of the classifier.
func routingProvider(p llm.Provider) routing.Provider {
	if p == nil {
		return nil
	}
	return p
}

func workerSystemPrompt(name string) string {
	return fmt.Sprintf(`You are the %s worker of a Swedish personal assistant.
Answer in the user's language. Use only the tools listed in the message.`, name)
}

func (a *app) close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	a.combos.Close()
	a.index.Close()
	if err := a.pool.Close(); err != nil {
		a.logger.Warn("database close failed", "error", err)
	}
}
