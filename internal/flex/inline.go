package flex

import (
	"regexp"
	"strings"
)

// boldPattern matches **text** or __text__, shortest match first.
var boldPattern = regexp.MustCompile(`\*\*(.+?)\*\*|__(.+?)__`)

// HasBold reports whether line contains at least one complete bold marker pair.
func HasBold(line string) bool {
	return boldPattern.MatchString(line)
}

// StripBold replaces every bold marker pair with its inner text.
// Unbalanced markers are left as they are.
func StripBold(line string) string {
	return boldPattern.ReplaceAllStringFunc(line, func(m string) string {
		return boldInner(m)
	})
}

// SplitSpans decomposes line into alternating plain and bold runs, in order.
// Concatenating the span texts yields StripBold(line). Empty plain runs
// between adjacent bold pairs are not emitted.
func SplitSpans(line string) []*Span {
	var spans []*Span
	var plain strings.Builder

	flushPlain := func() {
		if plain.Len() > 0 {
			spans = append(spans, &Span{Text: plain.String()})
			plain.Reset()
		}
	}

	last := 0
	for _, loc := range boldPattern.FindAllStringIndex(line, -1) {
		plain.WriteString(line[last:loc[0]])
		flushPlain()
		spans = append(spans, &Span{Text: boldInner(line[loc[0]:loc[1]]), Weight: WeightBold})
		last = loc[1]
	}
	plain.WriteString(line[last:])
	flushPlain()
	return spans
}

// boldInner drops the two-character markers from a matched bold pair.
func boldInner(m string) string {
	return m[2 : len(m)-2]
}
