// Package activity keeps a queryable history of screen events: which lists
// were refreshed, which saves failed and which sessions came and went.
package activity

import "time"

// QueryOptions controls filtering and pagination for event history queries.
type QueryOptions struct {
	Model      string     // filter to one model
	StateID    string     // filter to one screen state
	Types      []string   // filter to specific event types
	Categories []string   // filter to specific categories
	MinWeight  string     // minimum weight threshold (default: "info")
	Since      *time.Time // default: 24 hours ago
	Until      *time.Time
	Limit      int    // max results (default: 100, max: 500)
	Cursor     string // cursor for pagination
}

// SearchOptions controls filtering for summary search.
type SearchOptions struct {
	Model      string
	Since      *time.Time
	Categories []string
	Limit      int // max results (default: 20)
}

// DefaultQueryOptions returns QueryOptions with sensible defaults.
func DefaultQueryOptions() QueryOptions {
	dayAgo := time.Now().Add(-24 * time.Hour)
	return QueryOptions{
		Since:     &dayAgo,
		MinWeight: "info",
		Limit:     100,
	}
}

// DefaultSearchOptions returns SearchOptions with sensible defaults.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Limit: 20,
	}
}

// WeightOrder ranks event weights from least to most severe.
var WeightOrder = map[string]int{
	"info":    0,
	"warning": 1,
	"error":   2,
}

// IsAtLeastWeight reports whether weight is at least as severe as min.
// Unknown weights rank as info.
func IsAtLeastWeight(weight, min string) bool {
	return WeightOrder[weight] >= WeightOrder[min]
}

// weightsAtLeast returns every known weight at least as severe as min.
func weightsAtLeast(min string) []string {
	var out []string
	for w := range WeightOrder {
		if IsAtLeastWeight(w, min) {
			out = append(out, w)
		}
	}
	return out
}

func (o QueryOptions) limit() int {
	if o.Limit <= 0 || o.Limit > 500 {
		return 100
	}
	return o.Limit
}

func (o SearchOptions) limit() int {
	if o.Limit <= 0 {
		return 20
	}
	return o.Limit
}
