package flex

import (
	"regexp"
	"strings"
)

var headingPattern = regexp.MustCompile(`^(#+)\s+(.+)$`)

// ComposeBlocks turns table-free, image-free text into heading and
// paragraph Text nodes, one per non-blank line, in input order.
//
// Lines starting with a pipe are table remnants and are skipped.
func ComposeBlocks(text string) []*Text {
	var blocks []*Text
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "|"):
			continue
		}

		if m := headingPattern.FindStringSubmatch(line); m != nil {
			blocks = append(blocks, &Text{
				Text:   strings.TrimSpace(m[2]),
				Weight: WeightBold,
				Size:   headingSize(len(m[1])),
				Wrap:   true,
			})
			continue
		}

		if HasBold(line) {
			blocks = append(blocks, &Text{
				Text:     StripBold(line),
				Contents: SplitSpans(line),
				Wrap:     true,
			})
			continue
		}

		blocks = append(blocks, &Text{Text: line, Wrap: true})
	}
	return blocks
}

// headingSize maps a heading level to a text size.
func headingSize(level int) string {
	switch {
	case level <= 2:
		return SizeXL
	case level == 3:
		return SizeLG
	default:
		return SizeMD
	}
}
