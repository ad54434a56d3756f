package search

import "sort"

const (
	highlightOpen  = "<mark>"
	highlightClose = "</mark>"
)

// Highlight wraps every matched range of text in highlight markers. Ranges
// use inclusive [start, end] character offsets. Insertions are applied in
// descending start order so earlier offsets stay valid while later ones are
// rewritten. Text without matches is returned unchanged.
func Highlight(text string, matches []FieldMatch) string {
	if len(matches) == 0 {
		return text
	}

	var ranges [][2]int
	for _, m := range matches {
		ranges = append(ranges, m.Indices...)
	}
	if len(ranges) == 0 {
		return text
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i][0] > ranges[j][0] })

	out := text
	for _, r := range ranges {
		start, end := r[0], r[1]
		if start < 0 || end < start || end >= len(text) {
			continue
		}
		out = out[:start] + highlightOpen + out[start:end+1] + highlightClose + out[end+1:]
	}
	return out
}
