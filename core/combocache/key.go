// Package combocache remembers which agent combination served a
// conversation pattern, so repeat traffic skips agent selection. Entries
// live in a ristretto memory tier backed by sqlite.
package combocache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

const cacheKeyLength = 32

// ComputeKey derives the cache key from the recently active agents and the
// route hint. Agent order does not matter: the same working set produces
// the same key regardless of activation order.
func ComputeKey(recentAgents []string, routeHint string) string {
	agents := make([]string, 0, len(recentAgents))
	for _, a := range recentAgents {
		a = strings.TrimSpace(strings.ToLower(a))
		if a != "" {
			agents = append(agents, a)
		}
	}
	sort.Strings(agents)

	var b strings.Builder
	b.WriteString(strings.TrimSpace(strings.ToLower(routeHint)))
	for _, a := range agents {
		b.WriteByte('|')
		b.WriteString(a)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:cacheKeyLength]
}
