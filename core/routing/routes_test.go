package routing

import "testing"

func TestParseActionRoute(t *testing.T) {
	tests := []struct {
		input string
		want  Route
		ok    bool
	}{
		{"web", RouteWeb, true},
		{"travel", RouteTravel, true},
		{"smalltalk", RouteSmalltalk, true},
		{"  Media ", RouteMedia, true},
		{"search", RouteWeb, true},
		{"weather", RouteTravel, true},
		{"transit", RouteTravel, true},
		{"marketplace", RouteData, true},
		{"greeting", RouteSmalltalk, true},
		{"docs", "", false},
		{"nonsense", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseActionRoute(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseActionRoute(%q) = (%q, %v), want (%q, %v)",
				tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseKnowledgeRoute(t *testing.T) {
	tests := []struct {
		input string
		want  Route
		ok    bool
	}{
		{"internal", RouteInternal, true},
		{"docs", RouteDocs, true},
		{"external", RouteExternal, true},
		{"local", RouteInternal, true},
		{"wiki", RouteDocs, true},
		{"documentation", RouteDocs, true},
		{"realtime", RouteExternal, true},
		{"LIVE", RouteExternal, true},
		{"web", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseKnowledgeRoute(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseKnowledgeRoute(%q) = (%q, %v), want (%q, %v)",
				tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAliasesResolveToDeclaredMembers(t *testing.T) {
	declared := map[Route]bool{}
	for _, r := range ActionRoutes {
		declared[r] = true
	}
	for _, r := range KnowledgeRoutes {
		declared[r] = true
	}

	for alias, route := range actionAliases {
		if !declared[route] {
			t.Errorf("action alias %q maps to undeclared route %q", alias, route)
		}
	}
	for alias, route := range knowledgeAliases {
		if !declared[route] {
			t.Errorf("knowledge alias %q maps to undeclared route %q", alias, route)
		}
	}
}
