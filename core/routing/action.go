package routing

import (
	"context"
	"log/slog"
	"strings"
)

// ActionClassifier routes queries that require doing something: web lookup,
// media playback, travel/weather queries, marketplace and statistics.
//
// Precedence, in order:
//  1. empty query → smalltalk (no LLM call)
//  2. URL present → web
//  3. keyword categories in configured order, first match wins
//  4. LLM fallback, defaulting to smalltalk on any failure
type ActionClassifier struct {
	rules    *RuleSet
	fallback *FallbackClassifier
	logger   *slog.Logger
}

// ActionClassifierConfig configures the action classifier.
type ActionClassifierConfig struct {
	Taxonomy []KeywordTaxonomy
	Fallback FallbackConfig
}

// DefaultActionPrompt is the system prompt for the action fallback tier.
// Overridable through FallbackConfig.SystemPrompt.
const DefaultActionPrompt = `You route user queries for a personal assistant.
Reply with exactly one word: web, media, travel, data or smalltalk.
web: internet lookups and links. media: playback of music, film, video.
travel: weather, transit, traffic, trips. data: marketplace listings,
prices, statistics. smalltalk: greetings and chitchat.`

// NewActionClassifier builds the action classifier. A nil provider disables
// the fallback tier; rule misses then return smalltalk directly.
func NewActionClassifier(provider Provider, cfg ActionClassifierConfig, logger *slog.Logger) *ActionClassifier {
	if logger == nil {
		logger = slog.Default()
	}

	taxonomy := cfg.Taxonomy
	if len(taxonomy) == 0 {
		taxonomy = defaultActionKeywords()
	}

	fallbackCfg := cfg.Fallback
	if fallbackCfg.SystemPrompt == "" {
		fallbackCfg.SystemPrompt = DefaultActionPrompt
	}
	fallbackCfg.CachePrefix = "action:"

	return &ActionClassifier{
		rules:    NewRuleSet(compileTaxonomy(taxonomy, ParseActionRoute)...),
		fallback: NewFallbackClassifier(provider, ActionRoutes, RouteSmalltalk, fallbackCfg, logger),
		logger:   logger,
	}
}

// Classify returns an action route for the query. It never fails.
func (ac *ActionClassifier) Classify(ctx context.Context, query string, _ Flags) Route {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return RouteSmalltalk
	}

	if urlPattern.MatchString(trimmed) {
		return RouteWeb
	}

	if route, ok := ac.rules.Match(trimmed); ok {
		ac.logger.Debug("action route matched by rule", "route", route)
		return route
	}

	return ac.fallback.Classify(ctx, trimmed)
}
