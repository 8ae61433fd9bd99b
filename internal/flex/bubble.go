package flex

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// MaxBubbleBytes is the largest bubble JSON the Messaging API accepts.
const MaxBubbleBytes = 30000

// ErrBubbleTooLarge is returned by Bubble.JSON when the encoded bubble
// exceeds MaxBubbleBytes.
var ErrBubbleTooLarge = errors.New("flex bubble exceeds size limit")

// Options tunes rendering.
type Options struct {
	// ExactLineRemoval removes every line textually equal to a table line,
	// anywhere in the document, instead of only the table's own lines.
	ExactLineRemoval bool
}

// Renderer converts markdown into a Bubble.
type Renderer struct {
	opts   Options
	logger *slog.Logger
}

// NewRenderer returns a Renderer. A nil logger discards output.
func NewRenderer(opts Options, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Renderer{opts: opts, logger: logger}
}

// Render builds a bubble from md. Text blocks come first, then images,
// then tables, regardless of where they appear in md. Empty input yields a
// bubble with an empty body.
func (r *Renderer) Render(md string) *Bubble {
	tables, rest := ExtractTables(md, r.opts)
	images, rest := ExtractImages(rest)
	blocks := ComposeBlocks(rest)

	r.logger.Debug("rendered flex bubble",
		"blocks", len(blocks),
		"images", len(images),
		"tables", len(tables))

	return Assemble(blocks, images, tables)
}

// Assemble wraps blocks, images and tables, in that order, into one
// vertical body box inside a giga bubble.
func Assemble(blocks []*Text, images []*Image, tables []*Box) *Bubble {
	contents := make([]Component, 0, len(blocks)+len(images)+len(tables))
	for _, b := range blocks {
		contents = append(contents, b)
	}
	for _, img := range images {
		contents = append(contents, img)
	}
	for _, t := range tables {
		contents = append(contents, t)
	}
	return &Bubble{
		Size: SizeGiga,
		Body: &Box{
			Layout:     LayoutVertical,
			Contents:   contents,
			Spacing:    SizeMD,
			PaddingAll: SizeLG,
		},
	}
}

// JSON encodes the bubble, enforcing MaxBubbleBytes.
func (b *Bubble) JSON() ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal bubble: %w", err)
	}
	if len(data) > MaxBubbleBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrBubbleTooLarge, len(data))
	}
	return data, nil
}
