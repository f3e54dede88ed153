package routing

import (
	"regexp"
	"strings"
)

// urlPattern fires before any keyword category; links always go to the web
// worker regardless of surrounding text.
var urlPattern = regexp.MustCompile(`(?i)\bhttps?://\S+`)

// RuleCategory groups the compiled keyword patterns that vote for one route.
type RuleCategory struct {
	Route    Route
	patterns []*regexp.Regexp
}

// NewRuleCategory compiles word-boundary patterns for each keyword.
// Keywords that fail to compile are skipped.
func NewRuleCategory(route Route, keywords []string) RuleCategory {
	patterns := make([]*regexp.Regexp, 0, len(keywords))
	for _, kw := range keywords {
		escaped := regexp.QuoteMeta(strings.ToLower(kw))
		re, err := regexp.Compile(`(?i)\b` + escaped + `\b`)
		if err == nil {
			patterns = append(patterns, re)
		}
	}
	return RuleCategory{Route: route, patterns: patterns}
}

func (c RuleCategory) matches(query string) bool {
	for _, p := range c.patterns {
		if p.MatchString(query) {
			return true
		}
	}
	return false
}

// RuleSet is the deterministic tier of a classifier. Categories are tested
// in the order given at construction and the first matching category wins,
// keeping cheap explainable routing ahead of any LLM call.
type RuleSet struct {
	categories []RuleCategory
}

// NewRuleSet builds a rule set with the given category precedence.
func NewRuleSet(categories ...RuleCategory) *RuleSet {
	return &RuleSet{categories: categories}
}

// Match returns the route of the first matching category.
func (rs *RuleSet) Match(query string) (Route, bool) {
	for _, c := range rs.categories {
		if c.matches(query) {
			return c.Route, true
		}
	}
	return "", false
}

// CategoryCount reports how many categories the set tests.
func (rs *RuleSet) CategoryCount() int {
	return len(rs.categories)
}

// KeywordTaxonomy is one ordered category of a configured taxonomy.
type KeywordTaxonomy struct {
	Route    string   `yaml:"route"`
	Keywords []string `yaml:"keywords"`
}

// defaultActionKeywords covers the high-precision, high-frequency phrasing
// seen in production queries. Swedish first, English where users mix.
func defaultActionKeywords() []KeywordTaxonomy {
	return []KeywordTaxonomy{
		{Route: string(RouteSmalltalk), Keywords: []string{
			"hej", "hejsan", "tjena", "god morgon", "god kväll", "tack",
			"hello", "hi there",
		}},
		{Route: string(RouteTravel), Keywords: []string{
			"vädret", "väder", "regn", "snö", "temperatur", "prognos",
			"tåg", "buss", "avgång", "försening", "trafikläget", "resa",
			"weather", "forecast", "train", "departure",
		}},
		{Route: string(RouteMedia), Keywords: []string{
			"spela", "film", "musik", "låt", "video", "serie", "avsnitt",
			"play", "movie", "episode",
		}},
		{Route: string(RouteData), Keywords: []string{
			"statistik", "pris", "priser", "annons", "blocket", "till salu",
			"jämför", "statistics", "price", "for sale",
		}},
	}
}

// defaultKnowledgeKeywords orders docs detection ahead of external signals.
func defaultKnowledgeKeywords() []KeywordTaxonomy {
	return []KeywordTaxonomy{
		{Route: string(RouteDocs), Keywords: []string{
			"dokumentation", "manual", "handbok", "policy", "rutin",
			"dokumentet", "documentation", "handbook",
		}},
		{Route: string(RouteExternal), Keywords: []string{
			"just nu", "senaste nytt", "idag", "aktuell", "nyheter",
			"right now", "latest", "breaking",
		}},
	}
}

func compileTaxonomy(taxonomy []KeywordTaxonomy, parse func(string) (Route, bool)) []RuleCategory {
	categories := make([]RuleCategory, 0, len(taxonomy))
	for _, t := range taxonomy {
		route, ok := parse(t.Route)
		if !ok {
			continue
		}
		categories = append(categories, NewRuleCategory(route, t.Keywords))
	}
	return categories
}
