// Package llm adapts the hosted model providers behind one small surface:
// a system prompt, a user message, a text reply. The classifiers use it for
// fallback classification; workers use it for generation.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider is one hosted model endpoint.
type Provider interface {
	Name() string
	Invoke(ctx context.Context, system, user string) (string, error)
}

// ConfigError marks a provider misconfiguration. Construction fails fast on
// it rather than deferring the failure to the first request.
type ConfigError struct {
	Provider string
	Field    string
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("llm provider %s: %s: %s", e.Provider, e.Field, e.Reason)
}

// Config selects and configures the provider.
type Config struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	MaxTokens int    `yaml:"max_tokens"`
}

const defaultMaxTokens = 1024

// New builds the configured provider. Unknown provider names and missing
// API keys are configuration defects.
func New(ctx context.Context, cfg Config) (Provider, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	switch strings.ToLower(cfg.Provider) {
	case "anthropic":
		return newAnthropicProvider(cfg)
	case "openai":
		return newOpenAIProvider(cfg)
	case "gemini", "genai":
		return newGeminiProvider(ctx, cfg)
	default:
		return nil, &ConfigError{Provider: cfg.Provider, Field: "provider", Reason: "unknown provider"}
	}
}
