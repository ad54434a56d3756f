package search

import (
	"strings"

	"github.com/muahib/showcase/internal/storage"
)

// Categories lists the facet values the UI can filter on. "all" matches
// every site.
var Categories = []string{
	"all",
	"business",
	"technology",
	"education",
	"ecommerce",
	"portfolio",
}

// categoryKeywords maps each facet category to the substrings that place a
// site in it. Inference scans name + description + url, case-insensitive.
var categoryKeywords = map[string][]string{
	"business":   {"business", "corporate", "consulting", "services"},
	"technology": {"tech", "software", "digital", "innovation"},
	"education":  {"university", "education", "learning", "course"},
	"ecommerce":  {"shop", "marketplace", "store", "ecommerce"},
	"portfolio":  {"portfolio", "showcase", "gallery"},
}

func siteContent(site storage.Site) string {
	return strings.ToLower(site.Name + " " + site.Description + " " + site.URL)
}

// Categorize returns the categories a site belongs to, computed from its
// content on demand (never stored). "all" is always included; a site may
// carry any number of the others.
func Categorize(site storage.Site) []string {
	categories := []string{"all"}
	content := siteContent(site)

	for _, cat := range Categories[1:] {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(content, kw) {
				categories = append(categories, cat)
				break
			}
		}
	}
	return categories
}

func hasCategory(site storage.Site, category string) bool {
	if category == "all" {
		return true
	}
	keywords, ok := categoryKeywords[category]
	if !ok {
		return false
	}
	content := siteContent(site)
	for _, kw := range keywords {
		if strings.Contains(content, kw) {
			return true
		}
	}
	return false
}
