package routing

import (
	"context"
	"log/slog"
	"strings"
)

// KnowledgeClassifier routes queries that ask for information: internal
// memory, uploaded documents, or external real-time knowledge.
//
// Precedence, in order:
//  1. empty query → internal (no LLM call)
//  2. attachments or mentions present → internal, regardless of text
//  3. keyword categories in configured order, first match wins
//  4. external routes downgraded to internal when disabled by configuration
//  5. LLM fallback, defaulting to internal on any failure
type KnowledgeClassifier struct {
	rules           *RuleSet
	fallback        *FallbackClassifier
	externalEnabled bool
	logger          *slog.Logger
}

// KnowledgeClassifierConfig configures the knowledge classifier.
type KnowledgeClassifierConfig struct {
	Taxonomy        []KeywordTaxonomy
	ExternalEnabled bool
	Fallback        FallbackConfig
}

// DefaultKnowledgePrompt is the system prompt for the knowledge fallback
// tier. Overridable through FallbackConfig.SystemPrompt.
const DefaultKnowledgePrompt = `You route knowledge queries for a personal assistant.
Reply with exactly one word: docs, internal or external.
docs: the user's stored documents and manuals. internal: conversation
memory and the assistant's own knowledge. external: fresh information
that must come from the outside world.`

// NewKnowledgeClassifier builds the knowledge classifier.
func NewKnowledgeClassifier(provider Provider, cfg KnowledgeClassifierConfig, logger *slog.Logger) *KnowledgeClassifier {
	if logger == nil {
		logger = slog.Default()
	}

	taxonomy := cfg.Taxonomy
	if len(taxonomy) == 0 {
		taxonomy = defaultKnowledgeKeywords()
	}

	fallbackCfg := cfg.Fallback
	if fallbackCfg.SystemPrompt == "" {
		fallbackCfg.SystemPrompt = DefaultKnowledgePrompt
	}
	fallbackCfg.CachePrefix = "knowledge:"

	return &KnowledgeClassifier{
		rules:           NewRuleSet(compileTaxonomy(taxonomy, ParseKnowledgeRoute)...),
		fallback:        NewFallbackClassifier(provider, KnowledgeRoutes, RouteInternal, fallbackCfg, logger),
		externalEnabled: cfg.ExternalEnabled,
		logger:          logger,
	}
}

// Classify returns a knowledge route for the query. It never fails.
func (kc *KnowledgeClassifier) Classify(ctx context.Context, query string, flags Flags) Route {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return RouteInternal
	}

	if flags.HasAttachments || flags.HasMentions {
		return RouteInternal
	}

	if route, ok := kc.rules.Match(trimmed); ok {
		kc.logger.Debug("knowledge route matched by rule", "route", route)
		return kc.downgrade(route)
	}

	return kc.downgrade(kc.fallback.Classify(ctx, trimmed))
}

// downgrade maps external to internal when real-time routes are disabled.
func (kc *KnowledgeClassifier) downgrade(route Route) Route {
	if route == RouteExternal && !kc.externalEnabled {
		return RouteInternal
	}
	return route
}
