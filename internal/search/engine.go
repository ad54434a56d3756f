// Package search ranks the site catalog against free-text queries with
// typo-tolerant matching, synonym expansion, category filtering, and sorting.
package search

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/muahib/showcase/internal/storage"
)

// field weights, heaviest first. A name hit outranks an equally good
// description or URL hit.
var fieldWeights = []struct {
	name   string
	weight float64
	value  func(storage.Site) string
}{
	{"name", 0.4, func(s storage.Site) string { return s.Name }},
	{"description", 0.3, func(s storage.Site) string { return s.Description }},
	{"url", 0.2, func(s storage.Site) string { return s.URL }},
}

// FieldMatch carries the matched character ranges for one field of a result,
// used by the UI for highlighting.
type FieldMatch struct {
	Field   string   `json:"field"`
	Indices [][2]int `json:"indices"`
}

// Result is a catalog site with its relevance score (lower = more relevant;
// 0 for the unfiltered "all sites" listing) and highlight ranges.
type Result struct {
	storage.Site
	Score   float64      `json:"score"`
	Matches []FieldMatch `json:"matches,omitempty"`
}

// Engine matches queries against a catalog snapshot. The catalog is owned
// externally; call UpdateSites whenever it changes.
type Engine struct {
	mu    sync.RWMutex
	sites []storage.Site
}

// NewEngine creates an Engine over the given catalog snapshot.
func NewEngine(sites []storage.Site) *Engine {
	e := &Engine{}
	e.UpdateSites(sites)
	return e
}

// UpdateSites replaces the catalog snapshot.
func (e *Engine) UpdateSites(sites []storage.Site) {
	snapshot := make([]storage.Site, len(sites))
	copy(snapshot, sites)

	e.mu.Lock()
	e.sites = snapshot
	e.mu.Unlock()
}

// Search returns the catalog entries matching query, filtered and sorted per
// filters. An empty or blank query lists the whole catalog with score 0.
// Search never fails: malformed queries degrade to the full listing and an
// internal matching fault yields an empty result set.
func (e *Engine) Search(query string, filters Filters) []Result {
	e.mu.RLock()
	sites := e.sites
	e.mu.RUnlock()

	var results []Result
	if strings.TrimSpace(query) == "" {
		results = allSites(sites)
	} else {
		results = fuzzySearch(sites, query)
	}

	results = applyCategoryFilter(results, filters.Category)
	applySorting(results, filters)
	return results
}

func allSites(sites []storage.Site) []Result {
	results := make([]Result, len(sites))
	for i, s := range sites {
		results[i] = Result{Site: s, Score: 0}
	}
	return results
}

// fuzzySearch runs the token matcher over every site. Matching is a
// convenience feature for the UI, so a panic from pathological input is
// downgraded to an empty result set instead of taking the caller down.
func fuzzySearch(sites []storage.Site, query string) (results []Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("fuzzy matching failed", "query", query, "panic", r)
			results = nil
		}
	}()

	tokens := strings.Fields(preprocessQuery(query))

	for _, site := range sites {
		var weighted, totalWeight float64
		var matches []FieldMatch

		for _, f := range fieldWeights {
			score, spans, ok := matchField(tokens, f.value(site))
			if !ok {
				continue
			}
			weighted += score * f.weight
			totalWeight += f.weight

			indices := make([][2]int, len(spans))
			for i, sp := range spans {
				indices[i] = [2]int(sp)
			}
			matches = append(matches, FieldMatch{Field: f.name, Indices: indices})
		}

		if totalWeight == 0 {
			continue
		}
		results = append(results, Result{
			Site:    site,
			Score:   weighted / totalWeight,
			Matches: matches,
		})
	}
	return results
}

func applyCategoryFilter(results []Result, category string) []Result {
	if category == "" || category == "all" {
		return results
	}
	filtered := results[:0]
	for _, r := range results {
		if hasCategory(r.Site, category) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// applySorting orders results in place. The relevance comparator intentionally
// mirrors the long-standing UI behavior: it computes scoreA - scoreB and
// negates for descending order, even though scores are lower-is-better (see
// DESIGN.md). Name and date (id proxy) sort lexicographically.
func applySorting(results []Result, filters Filters) {
	sort.SliceStable(results, func(i, j int) bool {
		var cmp int
		switch filters.SortBy {
		case SortByName:
			cmp = strings.Compare(results[i].Name, results[j].Name)
		case SortByDate:
			cmp = strings.Compare(results[i].ID, results[j].ID)
		default:
			switch {
			case results[i].Score < results[j].Score:
				cmp = -1
			case results[i].Score > results[j].Score:
				cmp = 1
			}
		}
		if filters.SortOrder == OrderDesc {
			cmp = -cmp
		}
		return cmp < 0
	})
}
