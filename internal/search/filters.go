package search

import "fmt"

// SortBy selects the result ordering key.
type SortBy int

const (
	SortByRelevance SortBy = iota
	SortByName
	SortByDate
)

// SortOrder selects ascending or descending ordering.
type SortOrder int

const (
	OrderDesc SortOrder = iota
	OrderAsc
)

// Filters narrow and order search results. The zero value means
// "all categories, by relevance, descending" — the UI defaults.
type Filters struct {
	Category  string
	SortBy    SortBy
	SortOrder SortOrder
}

// ParseFilters validates free-form filter parameters (as they arrive from
// query strings or CLI flags) into a Filters value. Empty strings select the
// defaults. Unknown sort keys or orders are rejected rather than silently
// coerced.
func ParseFilters(category, sortBy, sortOrder string) (Filters, error) {
	f := Filters{Category: category}

	switch sortBy {
	case "", "relevance":
		f.SortBy = SortByRelevance
	case "name":
		f.SortBy = SortByName
	case "date":
		f.SortBy = SortByDate
	default:
		return Filters{}, fmt.Errorf("invalid sort key %q (want name, relevance, or date)", sortBy)
	}

	switch sortOrder {
	case "", "desc":
		f.SortOrder = OrderDesc
	case "asc":
		f.SortOrder = OrderAsc
	default:
		return Filters{}, fmt.Errorf("invalid sort order %q (want asc or desc)", sortOrder)
	}

	return f, nil
}
