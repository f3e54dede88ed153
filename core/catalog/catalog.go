// Package catalog holds the static tool catalog: read-only definitions of
// every tool the dispatch layer can hand to a worker, grouped by namespace.
package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// Tool is one catalog entry. Loaded from configuration, never mutated at
// runtime.
type Tool struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	Keywords        []string `yaml:"keywords"`
	Namespace       string   `yaml:"namespace"`
	Category        string   `yaml:"category"`
	FilterKind      string   `yaml:"filter_kind"`
	DefaultLimit    int      `yaml:"default_limit"`
	RequiresFilter  bool     `yaml:"requires_filter"`
	FallbackToolIDs []string `yaml:"fallback_tool_ids"`
}

// Catalog is an immutable snapshot of the tool catalog.
type Catalog struct {
	tools       []Tool
	byID        map[string]*Tool
	byNamespace map[string][]*Tool
}

// New builds a catalog from definitions. Duplicate ids and missing required
// fields are configuration defects and fail fast.
func New(tools []Tool) (*Catalog, error) {
	c := &Catalog{
		tools:       make([]Tool, len(tools)),
		byID:        make(map[string]*Tool, len(tools)),
		byNamespace: make(map[string][]*Tool),
	}
	copy(c.tools, tools)

	for i := range c.tools {
		t := &c.tools[i]
		if t.ID == "" {
			return nil, fmt.Errorf("catalog entry %d: missing id", i)
		}
		if t.Namespace == "" {
			return nil, fmt.Errorf("catalog entry %q: missing namespace", t.ID)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("catalog entry %q: duplicate id", t.ID)
		}
		c.byID[t.ID] = t
		c.byNamespace[t.Namespace] = append(c.byNamespace[t.Namespace], t)
	}

	return c, nil
}

// catalogFile is the YAML document shape.
type catalogFile struct {
	Tools []Tool `yaml:"tools"`
}

// Load reads a catalog YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	return New(file.Tools)
}

// Get returns the tool with the given id.
func (c *Catalog) Get(id string) (*Tool, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// All returns every tool in the catalog.
func (c *Catalog) All() []Tool {
	out := make([]Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

// Len reports the catalog size.
func (c *Catalog) Len() int { return len(c.tools) }

// Namespaces returns the distinct namespaces, sorted.
func (c *Catalog) Namespaces() []string {
	out := make([]string, 0, len(c.byNamespace))
	for ns := range c.byNamespace {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// InNamespaces returns tools whose namespace matches any of the compiled
// patterns.
func (c *Catalog) InNamespaces(patterns []glob.Glob) []*Tool {
	var out []*Tool
	for i := range c.tools {
		t := &c.tools[i]
		for _, p := range patterns {
			if p.Match(t.Namespace) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// CompileNamespaces compiles namespace path patterns ("knowledge/**",
// "action/travel") with '/' as the separator.
func CompileNamespaces(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("namespace pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// MatchesAny reports whether namespace matches any compiled pattern.
func MatchesAny(namespace string, patterns []glob.Glob) bool {
	for _, p := range patterns {
		if p.Match(namespace) {
			return true
		}
	}
	return false
}

// SearchText joins the searchable text of a tool for indexing.
func (t *Tool) SearchText() string {
	return strings.Join([]string{t.Name, t.Description, strings.Join(t.Keywords, " ")}, " ")
}
