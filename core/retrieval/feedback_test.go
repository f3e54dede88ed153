package retrieval

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/svala-ai/svala/core/database"
)

func newTestStore(t *testing.T) *FeedbackStore {
	t.Helper()

	pool, err := database.Open(filepath.Join(t.TempDir(), "feedback.db"), database.DefaultPoolConfig())
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if err := pool.Migrate(context.Background(), database.Schema()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return NewFeedbackStore(pool)
}

func TestFeedbackUpsertAccumulates(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	pattern := PatternHash("vad blir vädret imorgon")

	for i := 0; i < 3; i++ {
		if err := store.Upsert(ctx, "smhi_forecast", pattern, true); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if err := store.Upsert(ctx, "smhi_forecast", pattern, false); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	sig, ok, err := store.Get(ctx, "smhi_forecast", pattern)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("signal not found")
	}
	if sig.Successes != 3 || sig.Failures != 1 {
		t.Fatalf("got %d/%d, want 3/1", sig.Successes, sig.Failures)
	}
	if rate := sig.SuccessRate(); rate != 0.75 {
		t.Fatalf("success rate = %v, want 0.75", rate)
	}
}

func TestFeedbackConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	pattern := PatternHash("tågtider från göteborg")

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Upsert(ctx, "train_departures", pattern, true); err != nil {
				t.Errorf("upsert: %v", err)
			}
		}()
	}
	wg.Wait()

	sig, ok, err := store.Get(ctx, "train_departures", pattern)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if sig.Successes != workers {
		t.Fatalf("successes = %d, want %d", sig.Successes, workers)
	}
}

func TestFeedbackForPattern(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	pattern := PatternHash("vädret i malmö")

	if err := store.Upsert(ctx, "smhi_forecast", pattern, true); err != nil {
		t.Fatal(err)
	}
	if err := store.Upsert(ctx, "doc_search", pattern, false); err != nil {
		t.Fatal(err)
	}
	// Different pattern must not leak in.
	if err := store.Upsert(ctx, "smhi_forecast", PatternHash("helt annan fråga"), true); err != nil {
		t.Fatal(err)
	}

	signals, err := store.ForPattern(ctx, pattern)
	if err != nil {
		t.Fatalf("for pattern: %v", err)
	}
	if len(signals) != 2 {
		t.Fatalf("got %d signals, want 2", len(signals))
	}
	if signals["smhi_forecast"].Successes != 1 || signals["doc_search"].Failures != 1 {
		t.Fatalf("unexpected signals: %+v", signals)
	}
}

func TestFeedbackGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, ok, err := store.Get(context.Background(), "nope", "0000000000000000")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("expected missing signal")
	}
}

func TestFeedbackRecent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	queries := []string{"första frågan", "andra frågan", "tredje frågan"}
	for _, q := range queries {
		if err := store.Upsert(ctx, "doc_search", PatternHash(q), true); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d signals, want 2", len(recent))
	}
}
