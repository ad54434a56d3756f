package search

import "strings"

// popularSearches seeds suggestions when the user hasn't typed anything yet.
var popularSearches = []string{
	"website development",
	"mobile app",
	"AI integration",
	"chatbot",
	"graphics design",
	"business website",
	"ecommerce",
	"portfolio",
}

// Suggestions returns up to limit completion candidates for a partial query:
// popular searches containing it, site names containing it, and long words
// from descriptions containing it, deduplicated in that insertion order.
// No relevance ranking happens at this stage.
func (e *Engine) Suggestions(partial string, limit int) []string {
	if limit <= 0 {
		limit = 5
	}
	if strings.TrimSpace(partial) == "" {
		if limit > len(popularSearches) {
			limit = len(popularSearches)
		}
		return append([]string(nil), popularSearches[:limit]...)
	}

	query := strings.ToLower(partial)
	seen := make(map[string]bool)
	var suggestions []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			suggestions = append(suggestions, s)
		}
	}

	for _, s := range popularSearches {
		if strings.Contains(strings.ToLower(s), query) {
			add(s)
		}
	}

	e.mu.RLock()
	sites := e.sites
	e.mu.RUnlock()

	for _, site := range sites {
		if strings.Contains(strings.ToLower(site.Name), query) {
			add(site.Name)
		}
		for _, word := range strings.Fields(strings.ToLower(site.Description)) {
			if len(word) > 3 && strings.Contains(word, query) {
				add(word)
			}
		}
	}

	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}

// RelatedSearches returns up to limit static follow-up queries keyed on the
// topic the query touches.
func RelatedSearches(query string, limit int) []string {
	if limit <= 0 {
		limit = 3
	}
	q := strings.ToLower(query)

	var related []string
	switch {
	case strings.Contains(q, "web") || strings.Contains(q, "site"):
		related = []string{"mobile app development", "AI integration", "responsive design"}
	case strings.Contains(q, "mobile") || strings.Contains(q, "app"):
		related = []string{"iOS development", "Android development", "cross-platform"}
	case strings.Contains(q, "ai") || strings.Contains(q, "artificial"):
		related = []string{"chatbot development", "automation", "machine learning"}
	case strings.Contains(q, "design") || strings.Contains(q, "graphics"):
		related = []string{"UI/UX design", "branding", "logo design"}
	default:
		related = []string{"website development", "mobile apps", "AI integration"}
	}

	if len(related) > limit {
		related = related[:limit]
	}
	return related
}
