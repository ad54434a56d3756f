package search

import "strings"

const (
	// fuzzyThreshold is the normalized edit-distance ceiling for a token to
	// count as matching a word: 0 requires an exact match, 1 matches anything.
	// 0.4 tolerates roughly one typo per 2-3 characters.
	fuzzyThreshold = 0.4

	// minMatchLength is the shortest query token considered for matching.
	minMatchLength = 2

	// containmentScore is the score assigned when a token appears verbatim
	// inside a longer word. Near-exact, but ranked behind a full-word match.
	containmentScore = 0.1

	// unmatchedPenalty is charged per query token that matched nothing in a
	// field, so fields matching more of the query rank better.
	unmatchedPenalty = 1.0
)

// span is an inclusive [start, end] character range within a field value.
type span [2]int

// tokenMatch is the best occurrence of one query token within a field.
type tokenMatch struct {
	score float64
	span  span
}

// matchField scores every query token against the words of a single field
// value and returns the field score (lower = better), the matched character
// ranges, and whether at least one token matched. Match position within the
// field is deliberately ignored: a hit at the end of a description counts
// the same as a hit at the start.
func matchField(tokens []string, value string) (float64, []span, bool) {
	if value == "" || len(tokens) == 0 {
		return 0, nil, false
	}
	lower := strings.ToLower(value)
	words := fieldWords(lower)
	if len(words) == 0 {
		return 0, nil, false
	}

	var total float64
	var spans []span
	matched := 0

	for _, tok := range tokens {
		if len(tok) < minMatchLength {
			continue
		}
		best, ok := bestWordMatch(tok, lower, words)
		if !ok {
			total += unmatchedPenalty
			continue
		}
		total += best.score
		spans = append(spans, best.span)
		matched++
	}

	if matched == 0 {
		return 0, nil, false
	}
	return total / float64(eligibleTokens(tokens)), mergeSpans(spans), true
}

// eligibleTokens counts tokens long enough to participate in matching.
func eligibleTokens(tokens []string) int {
	n := 0
	for _, tok := range tokens {
		if len(tok) >= minMatchLength {
			n++
		}
	}
	return n
}

// fieldWord is a word of a field value with its character offset.
type fieldWord struct {
	text  string
	start int
}

// fieldWords splits a lowercased field value into alphanumeric words,
// keeping character offsets for highlight ranges.
func fieldWords(lower string) []fieldWord {
	var words []fieldWord
	start := -1
	for i, r := range lower {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			words = append(words, fieldWord{text: lower[start:i], start: start})
			start = -1
		}
	}
	if start >= 0 {
		words = append(words, fieldWord{text: lower[start:], start: start})
	}
	return words
}

func isWordRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127
}

// bestWordMatch finds the lowest-scoring occurrence of tok among words.
// Exact word < substring containment < fuzzy edit-distance match.
func bestWordMatch(tok, lower string, words []fieldWord) (tokenMatch, bool) {
	best := tokenMatch{score: fuzzyThreshold + 1}

	for _, w := range words {
		var m tokenMatch
		switch {
		case w.text == tok:
			m = tokenMatch{score: 0, span: span{w.start, w.start + len(w.text) - 1}}
		case strings.Contains(w.text, tok):
			idx := strings.Index(w.text, tok)
			m = tokenMatch{score: containmentScore, span: span{w.start + idx, w.start + idx + len(tok) - 1}}
		default:
			d := levenshtein(tok, w.text)
			longer := max(len(tok), len(w.text))
			norm := float64(d) / float64(longer)
			if norm > fuzzyThreshold {
				continue
			}
			m = tokenMatch{score: norm, span: span{w.start, w.start + len(w.text) - 1}}
		}
		if m.score < best.score {
			best = m
		}
		if best.score == 0 {
			break
		}
	}

	if best.score > fuzzyThreshold {
		return tokenMatch{}, false
	}
	return best, true
}

// levenshtein computes the edit distance between two strings using the
// classic two-row dynamic program.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// mergeSpans sorts spans by start offset and merges overlapping ranges so
// highlighting never double-wraps the same characters.
func mergeSpans(spans []span) []span {
	if len(spans) < 2 {
		return spans
	}
	for i := 1; i < len(spans); i++ {
		for j := i; j > 0 && spans[j][0] < spans[j-1][0]; j-- {
			spans[j], spans[j-1] = spans[j-1], spans[j]
		}
	}
	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s[0] <= last[1]+1 {
			if s[1] > last[1] {
				last[1] = s[1]
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}
