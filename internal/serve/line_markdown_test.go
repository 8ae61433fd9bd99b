package serve

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNeedsRichRendering(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"plain prose", "Just a friendly answer.", false},
		{"bold only", "This is **important**.", false},
		{"heading only", "# Title\nbody", false},
		{"gfm table", "| A | B |\n|---|---|\n| 1 | 2 |", true},
		{"pipe run without separator", "| Name | Age |\n| Bob | 42 |", true},
		{"single pipe line", "Use a | b to pipe.", false},
		{"inline link", "See [the docs](https://example.com/docs).", true},
		{"bare url", "Visit https://example.com today", false},
		{"bare url with image", "see https://foo.com\n![a](u)", false},
		{"autolink", "Mail <https://example.com>", true},
		{"fenced code", "```go\nfmt.Println(1)\n```", true},
		{"image only", "![cat](https://example.com/cat.png)", false},
		{"empty", "   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := needsRichRendering(tt.input); got != tt.want {
				t.Errorf("needsRichRendering(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("short", 10); got != "short" {
		t.Errorf("got %q, want unchanged", got)
	}
	long := strings.Repeat("日本", 300)
	got := truncateRunes(long, 400)
	if n := utf8.RuneCountInString(got); n != 400 {
		t.Errorf("rune count = %d, want 400", n)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("expected ellipsis suffix, got %q", got[len(got)-10:])
	}
	if got := truncateRunes("abc", 0); got != "" {
		t.Errorf("limit 0 = %q, want empty", got)
	}
}
