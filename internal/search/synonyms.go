package search

import "strings"

// synonym expansions applied to query words before fuzzy matching. Keys are
// whole words; each word of the query is mapped independently in a single
// left-to-right pass, so expansion output is never re-expanded ("site" →
// "website" stays "website" even though it contains "web").
var synonyms = map[string]string{
	"web":      "website",
	"site":     "website",
	"app":      "application",
	"mobile":   "mobile app",
	"ai":       "artificial intelligence",
	"bot":      "chatbot",
	"design":   "graphics design",
	"shop":     "ecommerce",
	"store":    "ecommerce",
	"business": "corporate",
	"company":  "corporate",
}

// preprocessQuery lowercases and trims the query, then replaces each word
// with its synonym expansion. Tokenizing first keeps the substitution
// deterministic and order-independent: every input word is looked up exactly
// once against the full table.
func preprocessQuery(query string) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	for i, w := range words {
		if repl, ok := synonyms[w]; ok {
			words[i] = repl
		}
	}
	return strings.Join(words, " ")
}
