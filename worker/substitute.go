package worker

import (
	"sort"
	"strings"
)

// Replacement swaps the byte span [Start, End) of the original text
// for Text. Spans come from the extractor, so identical link literals
// at different positions are replaced independently.
type Replacement struct {
	Start int
	End   int
	Text  string
}

// Substitute stitches the replacements into text by position. Spans
// must not overlap; out-of-range spans are skipped.
func Substitute(text string, replacements []Replacement) string {
	if len(replacements) == 0 {
		return text
	}

	sorted := make([]Replacement, len(replacements))
	copy(sorted, replacements)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	var b strings.Builder
	b.Grow(len(text))

	prev := 0
	for _, r := range sorted {
		if r.Start < prev || r.End > len(text) || r.Start > r.End {
			continue
		}
		b.WriteString(text[prev:r.Start])
		b.WriteString(r.Text)
		prev = r.End
	}
	b.WriteString(text[prev:])
	return b.String()
}
