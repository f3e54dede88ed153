package routing

import (
	"context"
	"errors"
	"testing"
)

// failingProvider asserts the rule tier is exhausted before the fallback
// fires: any call is an immediate test failure.
type failingProvider struct {
	t *testing.T
}

func (p *failingProvider) Invoke(_ context.Context, _, _ string) (string, error) {
	p.t.Helper()
	p.t.Error("LLM fallback invoked for a query the rule tier should handle")
	return "", errors.New("should not be called")
}

// stubProvider returns a canned reply or error.
type stubProvider struct {
	reply string
	err   error
	calls int
}

func (p *stubProvider) Invoke(_ context.Context, _, _ string) (string, error) {
	p.calls++
	return p.reply, p.err
}

func TestActionClassifier_EmptyQuery(t *testing.T) {
	ac := NewActionClassifier(&failingProvider{t: t}, ActionClassifierConfig{}, nil)

	for _, query := range []string{"", "   ", "\n\t"} {
		if got := ac.Classify(context.Background(), query, Flags{}); got != RouteSmalltalk {
			t.Errorf("Classify(%q) = %q, want smalltalk", query, got)
		}
	}
}

func TestActionClassifier_RuleTier(t *testing.T) {
	ac := NewActionClassifier(&failingProvider{t: t}, ActionClassifierConfig{}, nil)
	ctx := context.Background()

	tests := []struct {
		query string
		want  Route
	}{
		{"Hej!", RouteSmalltalk},
		{"kolla https://example.com tack", RouteWeb},
		{"vad blir vädret imorgon", RouteTravel},
		{"när går tåget till Uppsala", RouteTravel},
		{"spela en låt av Kent", RouteMedia},
		{"vad kostar en begagnad cykel på blocket", RouteData},
	}

	for _, tt := range tests {
		if got := ac.Classify(ctx, tt.query, Flags{}); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestActionClassifier_URLBeatsKeywords(t *testing.T) {
	ac := NewActionClassifier(&failingProvider{t: t}, ActionClassifierConfig{}, nil)

	// Contains a travel keyword, but the URL category is tested first.
	got := ac.Classify(context.Background(), "vädret enligt https://smhi.se", Flags{})
	if got != RouteWeb {
		t.Errorf("Classify = %q, want web (URL precedence)", got)
	}
}

func TestActionClassifier_FallbackParsesReply(t *testing.T) {
	provider := &stubProvider{reply: "I think this is a TRAVEL question."}
	ac := NewActionClassifier(provider, ActionClassifierConfig{}, nil)

	got := ac.Classify(context.Background(), "hur ser det ut på vägarna", Flags{})
	if got != RouteTravel {
		t.Errorf("Classify = %q, want travel from fallback reply", got)
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}
}

func TestActionClassifier_FallbackErrorsToDefault(t *testing.T) {
	provider := &stubProvider{err: errors.New("model unavailable")}
	ac := NewActionClassifier(provider, ActionClassifierConfig{}, nil)

	got := ac.Classify(context.Background(), "nånting helt obegripligt", Flags{})
	if got != RouteSmalltalk {
		t.Errorf("Classify = %q, want smalltalk on provider error", got)
	}
}

func TestActionClassifier_FallbackUnknownReplyToDefault(t *testing.T) {
	provider := &stubProvider{reply: "banana"}
	ac := NewActionClassifier(provider, ActionClassifierConfig{}, nil)

	got := ac.Classify(context.Background(), "nånting helt obegripligt", Flags{})
	if got != RouteSmalltalk {
		t.Errorf("Classify = %q, want smalltalk for unknown reply", got)
	}
}

func TestActionClassifier_NilProvider(t *testing.T) {
	ac := NewActionClassifier(nil, ActionClassifierConfig{}, nil)

	got := ac.Classify(context.Background(), "nånting helt obegripligt", Flags{})
	if got != RouteSmalltalk {
		t.Errorf("Classify = %q, want smalltalk with nil provider", got)
	}
}

func TestKnowledgeClassifier_EmptyQuery(t *testing.T) {
	kc := NewKnowledgeClassifier(&failingProvider{t: t}, KnowledgeClassifierConfig{}, nil)

	if got := kc.Classify(context.Background(), "  ", Flags{}); got != RouteInternal {
		t.Errorf("Classify = %q, want internal", got)
	}
}

func TestKnowledgeClassifier_AttachmentsForceInternal(t *testing.T) {
	kc := NewKnowledgeClassifier(&failingProvider{t: t}, KnowledgeClassifierConfig{ExternalEnabled: true}, nil)
	ctx := context.Background()

	// Text alone would match the external category.
	query := "senaste nytt om valet"

	if got := kc.Classify(ctx, query, Flags{HasAttachments: true}); got != RouteInternal {
		t.Errorf("Classify with attachments = %q, want internal", got)
	}
	if got := kc.Classify(ctx, query, Flags{HasMentions: true}); got != RouteInternal {
		t.Errorf("Classify with mentions = %q, want internal", got)
	}
}

func TestKnowledgeClassifier_RuleTier(t *testing.T) {
	kc := NewKnowledgeClassifier(&failingProvider{t: t}, KnowledgeClassifierConfig{ExternalEnabled: true}, nil)
	ctx := context.Background()

	tests := []struct {
		query string
		want  Route
	}{
		{"var hittar jag dokumentation om semesterpolicyn", RouteDocs},
		{"senaste nytt om räntan", RouteExternal},
	}

	for _, tt := range tests {
		if got := kc.Classify(ctx, tt.query, Flags{}); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestKnowledgeClassifier_ExternalDisabledDowngrades(t *testing.T) {
	kc := NewKnowledgeClassifier(&failingProvider{t: t}, KnowledgeClassifierConfig{ExternalEnabled: false}, nil)

	got := kc.Classify(context.Background(), "senaste nytt om räntan", Flags{})
	if got != RouteInternal {
		t.Errorf("Classify = %q, want internal when external disabled", got)
	}
}

func TestKnowledgeClassifier_FallbackDowngradesToo(t *testing.T) {
	provider := &stubProvider{reply: "external"}
	kc := NewKnowledgeClassifier(provider, KnowledgeClassifierConfig{ExternalEnabled: false}, nil)

	got := kc.Classify(context.Background(), "hmmmm svårt att säga", Flags{})
	if got != RouteInternal {
		t.Errorf("Classify = %q, want internal (fallback external downgraded)", got)
	}
}

func TestFallbackClassifier_CachesResults(t *testing.T) {
	provider := &stubProvider{reply: "travel"}
	cache := NewRouteCache(RouteCacheConfig{MaxSize: 8})
	fc := NewFallbackClassifier(provider, ActionRoutes, RouteSmalltalk, FallbackConfig{Cache: cache}, nil)
	ctx := context.Background()

	if got := fc.Classify(ctx, "hur ser vägarna ut"); got != RouteTravel {
		t.Fatalf("first Classify = %q, want travel", got)
	}
	if got := fc.Classify(ctx, "Hur ser  vägarna ut"); got != RouteTravel {
		t.Fatalf("second Classify = %q, want travel", got)
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1 (second hit served from cache)", provider.calls)
	}

	stats := cache.Stats()
	if stats.Hits != 1 {
		t.Errorf("cache hits = %d, want 1", stats.Hits)
	}
}

func TestClassifiers_SharedCacheIsolated(t *testing.T) {
	cache := NewRouteCache(RouteCacheConfig{MaxSize: 8})
	ctx := context.Background()
	query := "hmmmm svårt att säga"

	// The action tier caches its answer first.
	ac := NewActionClassifier(&stubProvider{reply: "travel"}, ActionClassifierConfig{
		Fallback: FallbackConfig{Cache: cache},
	}, nil)
	if got := ac.Classify(ctx, query, Flags{}); got != RouteTravel {
		t.Fatalf("action Classify = %q, want travel", got)
	}

	// The knowledge tier shares the cache but must not see "travel".
	kc := NewKnowledgeClassifier(&stubProvider{reply: "docs"}, KnowledgeClassifierConfig{
		Fallback: FallbackConfig{Cache: cache},
	}, nil)
	if got := kc.Classify(ctx, query, Flags{}); got != RouteDocs {
		t.Errorf("knowledge Classify = %q, want docs (not the cached action route)", got)
	}
}

func TestRouteCache_Clear(t *testing.T) {
	cache := NewRouteCache(RouteCacheConfig{MaxSize: 8})
	cache.Set("a", RouteWeb)
	cache.Set("b", RouteTravel)

	n, err := cache.Clear(context.Background())
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 2 {
		t.Errorf("Clear removed %d, want 2", n)
	}
	if cache.Len() != 0 {
		t.Errorf("Len = %d after clear, want 0", cache.Len())
	}
}
