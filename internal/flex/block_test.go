package flex

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestComposeBlocks(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []*Text
	}{
		{
			name:  "heading and bold paragraph",
			input: "# Title\n\nHello **world**",
			want: []*Text{
				{Text: "Title", Weight: WeightBold, Size: SizeXL, Wrap: true},
				{
					Text:     "Hello world",
					Contents: []*Span{{Text: "Hello "}, {Text: "world", Weight: WeightBold}},
					Wrap:     true,
				},
			},
		},
		{
			name:  "heading levels",
			input: "## two\n### three\n#### four\n###### six",
			want: []*Text{
				{Text: "two", Weight: WeightBold, Size: SizeXL, Wrap: true},
				{Text: "three", Weight: WeightBold, Size: SizeLG, Wrap: true},
				{Text: "four", Weight: WeightBold, Size: SizeMD, Wrap: true},
				{Text: "six", Weight: WeightBold, Size: SizeMD, Wrap: true},
			},
		},
		{
			name:  "hash without space is a paragraph",
			input: "#hashtag",
			want:  []*Text{{Text: "#hashtag", Wrap: true}},
		},
		{
			name:  "table remnants skipped",
			input: "| stray | row\nkeep me\n  | indented remnant",
			want:  []*Text{{Text: "keep me", Wrap: true}},
		},
		{
			name:  "blank lines skipped",
			input: "\n\n  \t\nonly\n\n",
			want:  []*Text{{Text: "only", Wrap: true}},
		},
		{
			name:  "unbalanced bold stays literal",
			input: "see **this",
			want:  []*Text{{Text: "see **this", Wrap: true}},
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComposeBlocks(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ComposeBlocks(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestHeadingSize(t *testing.T) {
	cases := map[int]string{1: SizeXL, 2: SizeXL, 3: SizeLG, 4: SizeMD, 9: SizeMD}
	for level, want := range cases {
		if got := headingSize(level); got != want {
			t.Errorf("headingSize(%d) = %q, want %q", level, got, want)
		}
	}
}
