// Package retrieval selects the bounded tool subset a worker sees for a
// query: a bleve full-text index over the catalog, ranked with a bias from
// persisted success/failure feedback.
package retrieval

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const patternHashLength = 16

// PatternHash buckets structurally similar queries for feedback lookups.
// The hash is a pure function of the text content: lower-cased, whitespace
// collapsed, sha256, truncated hex. Stable across process restarts.
func PatternHash(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:patternHashLength]
}
