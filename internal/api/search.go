package api

import (
	"encoding/json"
	"net/http"

	"github.com/muahib/showcase/internal/search"
)

// SearchResponse wraps the ranked results together with the effective query,
// mirroring what the search UI needs to render a result page.
type SearchResponse struct {
	Query   string          `json:"query"`
	Total   int             `json:"total"`
	Results []SearchResult  `json:"results"`
	Related []string        `json:"related_searches"`
	Filters responseFilters `json:"filters"`
}

type responseFilters struct {
	Category  string `json:"category"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order"`
}

// SearchResult is one ranked catalog entry with markup-highlighted fields.
type SearchResult struct {
	search.Result
	HighlightedName        string `json:"highlighted_name,omitempty"`
	HighlightedDescription string `json:"highlighted_description,omitempty"`
}

func handleSearch(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		query := q.Get("q")

		filters, err := search.ParseFilters(q.Get("category"), q.Get("sort_by"), q.Get("sort_order"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		results := deps.Engine.Search(query, filters)

		category := q.Get("category")
		if category == "" {
			category = "all"
		}
		sortBy := q.Get("sort_by")
		if sortBy == "" {
			sortBy = "relevance"
		}
		sortOrder := q.Get("sort_order")
		if sortOrder == "" {
			sortOrder = "desc"
		}

		resp := SearchResponse{
			Query:   query,
			Total:   len(results),
			Results: make([]SearchResult, len(results)),
			Related: search.RelatedSearches(query, 5),
			Filters: responseFilters{
				Category:  category,
				SortBy:    sortBy,
				SortOrder: sortOrder,
			},
		}
		for i, res := range results {
			sr := SearchResult{Result: res}
			for _, m := range res.Matches {
				switch m.Field {
				case "name":
					sr.HighlightedName = search.Highlight(res.Name, []search.FieldMatch{m})
				case "description":
					sr.HighlightedDescription = search.Highlight(res.Description, []search.FieldMatch{m})
				}
			}
			resp.Results[i] = sr
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func handleSuggestions(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partial := r.URL.Query().Get("q")
		limit := parseIntParam(r, "limit", 5, 20)

		suggestions := deps.Engine.Suggestions(partial, limit)
		if suggestions == nil {
			suggestions = []string{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"suggestions": suggestions})
	}
}

func handleRelated(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		limit := parseIntParam(r, "limit", 5, 20)

		related := search.RelatedSearches(query, limit)
		if related == nil {
			related = []string{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"related_searches": related})
	}
}

func handleCategories(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"categories": search.Categories})
	}
}
