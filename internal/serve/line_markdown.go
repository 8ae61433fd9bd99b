package serve

import (
	"strings"

	"github.com/samsaffron/line-llm/internal/flex"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// lineMarkdown is a shared goldmark instance used only to inspect answers;
// it never renders HTML. Linkify is left out so a bare URL stays plain text
// and an answer with only bare URLs and images still goes out as images.
var lineMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough),
)

// needsRichRendering reports whether an answer is worth sending as a Flex
// bubble: it holds a table, a link or a fenced code block. Images alone do
// not qualify; they are sent as image messages instead.
func needsRichRendering(answer string) bool {
	if strings.TrimSpace(answer) == "" {
		return false
	}
	// Pipe runs the renderer turns into grids, even when GFM would not
	// call them tables (no separator row).
	if flex.HasTable(answer) {
		return true
	}

	doc := lineMarkdown.Parser().Parse(text.NewReader([]byte(answer)))
	found := false
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case extast.KindTable, ast.KindLink, ast.KindAutoLink, ast.KindFencedCodeBlock:
			found = true
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return found
}

// truncateRunes shortens s to at most limit runes, marking the cut with an ellipsis.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit == 1 {
		return string(runes[:1])
	}
	return string(runes[:limit-1]) + "…"
}
