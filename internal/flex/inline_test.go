package flex

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplitSpans(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []*Span
	}{
		{
			name:  "plain only",
			input: "hello world",
			want:  []*Span{{Text: "hello world"}},
		},
		{
			name:  "trailing bold",
			input: "Hello **world**",
			want:  []*Span{{Text: "Hello "}, {Text: "world", Weight: WeightBold}},
		},
		{
			name:  "underscore bold",
			input: "a __b__ c",
			want:  []*Span{{Text: "a "}, {Text: "b", Weight: WeightBold}, {Text: " c"}},
		},
		{
			name:  "adjacent bold pairs",
			input: "**a****b**",
			want:  []*Span{{Text: "a", Weight: WeightBold}, {Text: "b", Weight: WeightBold}},
		},
		{
			name:  "mixed markers",
			input: "**x** and __y__!",
			want: []*Span{
				{Text: "x", Weight: WeightBold},
				{Text: " and "},
				{Text: "y", Weight: WeightBold},
				{Text: "!"},
			},
		},
		{
			name:  "unbalanced markers stay literal",
			input: "tail **open",
			want:  []*Span{{Text: "tail **open"}},
		},
		{
			name:  "shortest pair wins",
			input: "**open and **closed",
			want: []*Span{
				{Text: "open and ", Weight: WeightBold},
				{Text: "closed"},
			},
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSpans(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SplitSpans(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestSplitSpansRoundTrip(t *testing.T) {
	inputs := []string{
		"Hello **world**",
		"**lead** middle __tail__",
		"no markers at all",
		"**unbalanced",
		"x **a** y **b** z",
		"日本語 **太字** テキスト",
	}
	for _, input := range inputs {
		var sb strings.Builder
		for _, span := range SplitSpans(input) {
			sb.WriteString(span.Text)
		}
		if got, want := sb.String(), StripBold(input); got != want {
			t.Errorf("spans of %q join to %q, want %q", input, got, want)
		}
	}
}

func TestStripBold(t *testing.T) {
	cases := map[string]string{
		"**a** b":        "a b",
		"__a__":          "a",
		"plain":          "plain",
		"** not bold":    "** not bold",
		"**a** **b**":    "a b",
		"2 ** 3 = 8":     "2 ** 3 = 8",
		"**multi word**": "multi word",
	}
	for input, want := range cases {
		if got := StripBold(input); got != want {
			t.Errorf("StripBold(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestHasBold(t *testing.T) {
	if !HasBold("some **bold** text") {
		t.Error("expected bold pair to be detected")
	}
	if HasBold("some ** text") {
		t.Error("single marker should not count as bold")
	}
	if HasBold("****") {
		t.Error("empty bold pair should not count as bold")
	}
}
