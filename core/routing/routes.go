// Package routing implements the two-tier route classifiers: a deterministic
// rule tier evaluated in strict category order, backed by an LLM fallback for
// queries no rule can place. Classification never fails; every path degrades
// to the taxonomy's default route.
package routing

import "strings"

// Route is a symbolic category selecting which worker and tool subset
// handles a query. Values belong to one of two taxonomies: action routes
// (web, media, travel, data, smalltalk) and knowledge routes (docs,
// internal, external).
type Route string

const (
	// Action taxonomy.
	RouteWeb       Route = "web"
	RouteMedia     Route = "media"
	RouteTravel    Route = "travel"
	RouteData      Route = "data"
	RouteSmalltalk Route = "smalltalk"

	// Knowledge taxonomy.
	RouteDocs     Route = "docs"
	RouteInternal Route = "internal"
	RouteExternal Route = "external"
)

// ActionRoutes lists the action taxonomy in fallback-token match order.
var ActionRoutes = []Route{RouteWeb, RouteMedia, RouteTravel, RouteData, RouteSmalltalk}

// KnowledgeRoutes lists the knowledge taxonomy in fallback-token match order.
var KnowledgeRoutes = []Route{RouteDocs, RouteExternal, RouteInternal}

// actionAliases maps historical route strings to current action routes.
// Consulted before strict parsing so stored values from older deployments
// keep resolving.
var actionAliases = map[string]Route{
	"search":      RouteWeb,
	"browse":      RouteWeb,
	"video":       RouteMedia,
	"music":       RouteMedia,
	"weather":     RouteTravel,
	"transit":     RouteTravel,
	"traffic":     RouteTravel,
	"marketplace": RouteData,
	"stats":       RouteData,
	"statistics":  RouteData,
	"chat":        RouteSmalltalk,
	"greeting":    RouteSmalltalk,
}

// knowledgeAliases maps historical route strings to current knowledge routes.
var knowledgeAliases = map[string]Route{
	"local":         RouteInternal,
	"memory":        RouteInternal,
	"wiki":          RouteDocs,
	"documentation": RouteDocs,
	"manual":        RouteDocs,
	"realtime":      RouteExternal,
	"live":          RouteExternal,
	"web_knowledge": RouteExternal,
}

// ParseActionRoute resolves s to an action route. Historical aliases are
// normalized first; unknown values report ok=false.
func ParseActionRoute(s string) (Route, bool) {
	return parseRoute(s, actionAliases, ActionRoutes)
}

// ParseKnowledgeRoute resolves s to a knowledge route, normalizing
// historical aliases first.
func ParseKnowledgeRoute(s string) (Route, bool) {
	return parseRoute(s, knowledgeAliases, KnowledgeRoutes)
}

func parseRoute(s string, aliases map[string]Route, members []Route) (Route, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if r, ok := aliases[normalized]; ok {
		return r, true
	}
	for _, r := range members {
		if normalized == string(r) {
			return r, true
		}
	}
	return "", false
}

// Flags carries hard context signals that can force a route before any
// pattern matching runs.
type Flags struct {
	HasAttachments bool
	HasMentions    bool
}
