package list

import (
	"fmt"
	"strings"
)

// SortOrder is the direction of a sort key.
type SortOrder int

const (
	Asc SortOrder = iota
	Desc
)

func (o SortOrder) String() string {
	if o == Desc {
		return "desc"
	}
	return "asc"
}

// ParseSortOrder parses "asc" or "desc", case-insensitively.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(s) {
	case "asc", "":
		return Asc, nil
	case "desc":
		return Desc, nil
	default:
		return Asc, fmt.Errorf("list: unknown sort order %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o SortOrder) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *SortOrder) UnmarshalText(b []byte) error {
	v, err := ParseSortOrder(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// Sort is one sort key. Earlier keys take precedence.
type Sort struct {
	Path  string    `json:"path"`
	Order SortOrder `json:"order"`
}

// Filter is one filter condition. The operator vocabulary is left to the
// refresh callback; the stores in this module understand the Op constants.
type Filter struct {
	Path     string `json:"path"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// Operators understood by the stores.
const (
	OpEq       = "eq"
	OpNeq      = "neq"
	OpGt       = "gt"
	OpGte      = "gte"
	OpLt       = "lt"
	OpLte      = "lte"
	OpContains = "contains"
	OpPrefix   = "prefix"
	OpIn       = "in"
)

// Paging describes the current page of a paged list.
type Paging struct {
	Page         int `json:"page"`
	NumPages     int `json:"num_pages"`
	NumItems     int `json:"num_items"`
	ItemsPerPage int `json:"items_per_page"`
}

// normalize fixes up impossible values: at least one item per page, page
// counts derived from item counts and the page clamped to [1, NumPages].
func (p Paging) normalize() Paging {
	if p.ItemsPerPage < 1 {
		p.ItemsPerPage = 1
	}
	if p.NumItems < 0 {
		p.NumItems = 0
	}
	if p.NumItems > 0 {
		p.NumPages = (p.NumItems + p.ItemsPerPage - 1) / p.ItemsPerPage
	}
	if p.NumPages < 0 {
		p.NumPages = 0
	}
	p.Page = clampPage(p.Page, p.NumPages)
	return p
}

func clampPage(page, numPages int) int {
	page = min(page, numPages)
	return max(page, 1)
}

// Mode is a named display mode of a list.
type Mode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Data  any    `json:"data,omitempty"`
}

// Query is the snapshot of list state handed to a refresh callback.
type Query struct {
	Seq     uint64   `json:"seq"`
	Filters []Filter `json:"filters"`
	Sorting []Sort   `json:"sorting"`
	Paging  *Paging  `json:"paging,omitempty"`
	Mode    string   `json:"mode,omitempty"`
	Visible []string `json:"visible"`
}

// Limit returns the page size, or 0 when the query is not paged.
func (q Query) Limit() int {
	if q.Paging == nil {
		return 0
	}
	return max(q.Paging.ItemsPerPage, 1)
}

// Offset returns the number of items before the requested page.
func (q Query) Offset() int {
	if q.Paging == nil {
		return 0
	}
	return (max(q.Paging.Page, 1) - 1) * q.Limit()
}

// Result is what a refresh callback returns. Paging, when set, reports the
// totals of the filtered collection.
type Result[T any] struct {
	Items  []T
	Paging *Paging
}
