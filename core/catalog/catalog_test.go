package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func testTools() []Tool {
	return []Tool{
		{ID: "smhi_forecast", Name: "SMHI Forecast", Namespace: "action/travel",
			Keywords: []string{"väder", "prognos"}, Category: "weather"},
		{ID: "train_departures", Name: "Train Departures", Namespace: "action/travel",
			Keywords: []string{"tåg", "avgång"}, Category: "transit",
			FallbackToolIDs: []string{"traffic_status"}},
		{ID: "doc_search", Name: "Document Search", Namespace: "knowledge/docs",
			Keywords: []string{"dokument"}, Category: "search"},
		{ID: "listing_search", Name: "Listing Search", Namespace: "action/data",
			Keywords: []string{"annons", "pris"}, Category: "marketplace",
			RequiresFilter: true, DefaultLimit: 20},
	}
}

func TestNew_IndexesByIDAndNamespace(t *testing.T) {
	c, err := New(testTools())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if c.Len() != 4 {
		t.Errorf("Len = %d, want 4", c.Len())
	}

	tool, ok := c.Get("smhi_forecast")
	if !ok || tool.Category != "weather" {
		t.Errorf("Get(smhi_forecast) = (%v, %v)", tool, ok)
	}

	namespaces := c.Namespaces()
	want := []string{"action/data", "action/travel", "knowledge/docs"}
	if len(namespaces) != len(want) {
		t.Fatalf("Namespaces = %v, want %v", namespaces, want)
	}
	for i := range want {
		if namespaces[i] != want[i] {
			t.Errorf("Namespaces[%d] = %q, want %q", i, namespaces[i], want[i])
		}
	}
}

func TestNew_RejectsDuplicatesAndMissingFields(t *testing.T) {
	if _, err := New([]Tool{{ID: "a", Namespace: "x"}, {ID: "a", Namespace: "x"}}); err == nil {
		t.Error("duplicate id accepted")
	}
	if _, err := New([]Tool{{Namespace: "x"}}); err == nil {
		t.Error("missing id accepted")
	}
	if _, err := New([]Tool{{ID: "a"}}); err == nil {
		t.Error("missing namespace accepted")
	}
}

func TestInNamespaces_GlobMatching(t *testing.T) {
	c, err := New(testTools())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	globs, err := CompileNamespaces([]string{"action/**"})
	if err != nil {
		t.Fatalf("CompileNamespaces: %v", err)
	}

	tools := c.InNamespaces(globs)
	if len(tools) != 3 {
		t.Fatalf("InNamespaces(action/**) returned %d tools, want 3", len(tools))
	}
	for _, tool := range tools {
		if tool.Namespace == "knowledge/docs" {
			t.Errorf("knowledge tool %q matched action glob", tool.ID)
		}
	}

	exact, err := CompileNamespaces([]string{"knowledge/docs"})
	if err != nil {
		t.Fatalf("CompileNamespaces: %v", err)
	}
	if got := c.InNamespaces(exact); len(got) != 1 || got[0].ID != "doc_search" {
		t.Errorf("exact namespace match = %v", got)
	}
}

func TestCompileNamespaces_BadPattern(t *testing.T) {
	if _, err := CompileNamespaces([]string{"[unclosed"}); err == nil {
		t.Error("invalid pattern accepted")
	}
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")

	content := `tools:
  - id: smhi_forecast
    name: SMHI Forecast
    description: Weather forecasts for Swedish locations
    keywords: [väder, prognos, temperatur]
    namespace: action/travel
    category: weather
    default_limit: 5
  - id: listing_search
    name: Listing Search
    namespace: action/data
    requires_filter: true
    fallback_tool_ids: [listing_browse]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}

	tool, _ := c.Get("listing_search")
	if tool == nil || !tool.RequiresFilter || len(tool.FallbackToolIDs) != 1 {
		t.Errorf("listing_search parsed incorrectly: %+v", tool)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/catalog.yaml"); err == nil {
		t.Error("missing file accepted")
	}
}
