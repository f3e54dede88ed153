package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNewFailsFastOnMissingKey(t *testing.T) {
	ctx := context.Background()

	for _, provider := range []string{"anthropic", "openai", "gemini"} {
		_, err := New(ctx, Config{Provider: provider})
		if err == nil {
			t.Errorf("%s: expected config error without api key", provider)
			continue
		}

		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("%s: error %v is not a ConfigError", provider, err)
			continue
		}
		if cfgErr.Field != "api_key" {
			t.Errorf("%s: field = %q, want api_key", provider, cfgErr.Field)
		}
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "mistral"})

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error %v is not a ConfigError", err)
	}
	if cfgErr.Field != "provider" {
		t.Fatalf("field = %q, want provider", cfgErr.Field)
	}
	if !strings.Contains(err.Error(), "mistral") {
		t.Fatalf("error does not name the provider: %v", err)
	}
}

func TestNewAnthropicDefaults(t *testing.T) {
	p, err := New(context.Background(), Config{Provider: "anthropic", APIKey: "test-key"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if p.Name() != "anthropic" {
		t.Fatalf("name = %q", p.Name())
	}

	ap := p.(*anthropicProvider)
	if ap.model != defaultAnthropicModel {
		t.Fatalf("model = %q, want default", ap.model)
	}
	if ap.maxTokens != defaultMaxTokens {
		t.Fatalf("max tokens = %d, want %d", ap.maxTokens, defaultMaxTokens)
	}
}

func TestNewProviderNameCaseInsensitive(t *testing.T) {
	p, err := New(context.Background(), Config{Provider: "OpenAI", APIKey: "test-key"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if p.Name() != "openai" {
		t.Fatalf("name = %q", p.Name())
	}
}
