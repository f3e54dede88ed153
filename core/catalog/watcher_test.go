package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")

	initial := `
tools:
  - id: smhi_forecast
    name: smhi forecast
    namespace: action/travel
`
	if err := os.WriteFile(path, []byte(initial), 0o644); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Catalog, 1)
	w, err := NewWatcher(path, func(c *Catalog) {
		select {
		case reloaded <- c:
		default:
		}
	}, nil)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	updated := initial + `  - id: train_departures
    name: train departures
    namespace: action/travel
`
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-reloaded:
		if c.Len() != 2 {
			t.Fatalf("reloaded catalog has %d tools, want 2", c.Len())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload within 5s")
	}
}

func TestWatcherKeepsSnapshotOnBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(path, []byte("tools: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Catalog, 1)
	w, err := NewWatcher(path, func(c *Catalog) { reloaded <- c }, nil)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	// Duplicate ids fail validation; the callback must not fire.
	bad := `
tools:
  - id: dup
    name: a
    namespace: action/web
  - id: dup
    name: b
    namespace: action/web
`
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloaded:
		t.Fatal("invalid catalog triggered the reload callback")
	case <-time.After(time.Second):
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(path, []byte("tools: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Catalog, 1)
	w, err := NewWatcher(path, func(c *Catalog) { reloaded <- c }, nil)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloaded:
		t.Fatal("unrelated file triggered a reload")
	case <-time.After(time.Second):
	}
}
