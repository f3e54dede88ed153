package routing

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

const defaultFallbackTimeout = 2 * time.Second

// Provider is the LLM capability the fallback tier consumes: one system
// prompt, one user text, one string reply. Any richer behavior lives behind
// this boundary.
type Provider interface {
	Invoke(ctx context.Context, system, user string) (string, error)
}

// FallbackClassifier asks the LLM to pick a route when no rule fired.
// Errors are never propagated; every failure maps to the default route.
type FallbackClassifier struct {
	provider Provider
	system   string
	tokens   []Route
	def      Route
	timeout  time.Duration
	cache    *RouteCache
	prefix   string
	logger   *slog.Logger
}

// FallbackConfig configures the LLM fallback tier.
type FallbackConfig struct {
	SystemPrompt string
	Timeout      time.Duration
	Cache        *RouteCache

	// CachePrefix namespaces cache keys so classifiers sharing one cache
	// never read each other's routes.
	CachePrefix string
}

// NewFallbackClassifier creates a fallback that maps replies onto the given
// route tokens, in order, defaulting to def. A nil provider is permitted and
// short-circuits to the default route.
func NewFallbackClassifier(provider Provider, tokens []Route, def Route, cfg FallbackConfig, logger *slog.Logger) *FallbackClassifier {
	fc := &FallbackClassifier{
		provider: provider,
		system:   cfg.SystemPrompt,
		tokens:   tokens,
		def:      def,
		timeout:  defaultFallbackTimeout,
		cache:    cfg.Cache,
		prefix:   cfg.CachePrefix,
		logger:   logger,
	}
	if cfg.Timeout > 0 {
		fc.timeout = cfg.Timeout
	}
	if fc.logger == nil {
		fc.logger = slog.Default()
	}
	return fc
}

// Classify returns a route for an ambiguous query. The reply is lower-cased
// and substring-matched against the known route tokens; unknown replies and
// provider errors both yield the default route.
func (fc *FallbackClassifier) Classify(ctx context.Context, query string) Route {
	if fc.provider == nil {
		return fc.def
	}

	if fc.cache != nil {
		if route, ok := fc.cache.Get(fc.prefix + query); ok {
			return route
		}
	}

	llmCtx, cancel := context.WithTimeout(ctx, fc.timeout)
	defer cancel()

	reply, err := fc.provider.Invoke(llmCtx, fc.system, query)
	if err != nil {
		fc.logger.Debug("fallback classification failed, using default",
			"default", fc.def, "error", err)
		return fc.def
	}

	route := fc.matchReply(reply)
	if fc.cache != nil {
		fc.cache.Set(fc.prefix+query, route)
	}
	return route
}

func (fc *FallbackClassifier) matchReply(reply string) Route {
	normalized := strings.ToLower(reply)
	for _, token := range fc.tokens {
		if strings.Contains(normalized, string(token)) {
			return token
		}
	}
	return fc.def
}
