package retrieval

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/svala-ai/svala/core/catalog"
)

// toolDocument is the indexed shape of a catalog tool.
type toolDocument struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Keywords    string `json:"keywords"`
	Namespace   string `json:"namespace"`
	Category    string `json:"category"`
}

// Hit is one scored index result.
type Hit struct {
	ToolID string
	Score  float64
}

// ToolIndex is an in-memory bleve index over the tool catalog. Rebuilt
// whole on catalog reload; reads take the swap under a read lock.
type ToolIndex struct {
	mu      sync.RWMutex
	index   bleve.Index
	catalog *catalog.Catalog
}

// NewToolIndex builds the index from a catalog snapshot.
func NewToolIndex(c *catalog.Catalog) (*ToolIndex, error) {
	idx, err := buildIndex(c)
	if err != nil {
		return nil, err
	}
	return &ToolIndex{index: idx, catalog: c}, nil
}

func buildIndex(c *catalog.Catalog) (bleve.Index, error) {
	mapping := bleve.NewIndexMapping()
	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}

	batch := idx.NewBatch()
	for _, t := range c.All() {
		doc := toolDocument{
			Name:        t.Name,
			Description: t.Description,
			Keywords:    strings.Join(t.Keywords, " "),
			Namespace:   t.Namespace,
			Category:    t.Category,
		}
		if err := batch.Index(t.ID, doc); err != nil {
			return nil, fmt.Errorf("index tool %q: %w", t.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}

	return idx, nil
}

// Reload swaps in a freshly built index over a new catalog snapshot.
func (ti *ToolIndex) Reload(c *catalog.Catalog) error {
	idx, err := buildIndex(c)
	if err != nil {
		return err
	}

	ti.mu.Lock()
	old := ti.index
	ti.index = idx
	ti.catalog = c
	ti.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Catalog returns the catalog snapshot backing the current index.
func (ti *ToolIndex) Catalog() *catalog.Catalog {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	return ti.catalog
}

// Search runs a relevance query across name, keywords and description.
// Name and keyword matches outrank description matches. Results are not
// namespace-filtered here; the retriever applies namespace precedence.
func (ti *ToolIndex) Search(ctx context.Context, query string, size int) ([]Hit, error) {
	ti.mu.RLock()
	idx := ti.index
	ti.mu.RUnlock()

	nameQ := bleve.NewMatchQuery(query)
	nameQ.SetField("name")
	nameQ.SetBoost(3)

	kwQ := bleve.NewMatchQuery(query)
	kwQ.SetField("keywords")
	kwQ.SetBoost(2)

	descQ := bleve.NewMatchQuery(query)
	descQ.SetField("description")

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(nameQ, kwQ, descQ), size, 0, false)

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search tools: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{ToolID: h.ID, Score: h.Score})
	}
	return hits, nil
}

// Close releases the index.
func (ti *ToolIndex) Close() error {
	ti.mu.Lock()
	defer ti.mu.Unlock()

	if ti.index == nil {
		return nil
	}
	err := ti.index.Close()
	ti.index = nil
	return err
}
