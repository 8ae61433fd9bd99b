// Package flex renders markdown answers into LINE Flex Message containers.
//
// The renderer is deliberately line oriented: tables, images and
// headings/paragraphs are pulled out of the text in separate passes and
// then assembled into a single bubble in a fixed order (text, images,
// tables). It is a pure function over its input and safe for concurrent use.
package flex

import "encoding/json"

// Component is a node in a Flex container tree.
type Component interface {
	componentType() string
}

// Layout values for Box.
const (
	LayoutVertical   = "vertical"
	LayoutHorizontal = "horizontal"
)

// Size keywords understood by the chat client.
const (
	SizeXS   = "xs"
	SizeSM   = "sm"
	SizeMD   = "md"
	SizeLG   = "lg"
	SizeXL   = "xl"
	SizeFull = "full"
	SizeGiga = "giga"
)

// Weight values for Text and Span.
const (
	WeightRegular = "regular"
	WeightBold    = "bold"
)

// Bubble is the top-level envelope holding one body box.
type Bubble struct {
	Size string `json:"size,omitempty"`
	Body *Box   `json:"body,omitempty"`
}

// Box lays out its children vertically or horizontally.
type Box struct {
	Layout          string      `json:"layout"`
	Contents        []Component `json:"contents"`
	BackgroundColor string      `json:"backgroundColor,omitempty"`
	BorderColor     string      `json:"borderColor,omitempty"`
	BorderWidth     string      `json:"borderWidth,omitempty"`
	CornerRadius    string      `json:"cornerRadius,omitempty"`
	PaddingAll      string      `json:"paddingAll,omitempty"`
	Spacing         string      `json:"spacing,omitempty"`
	Width           string      `json:"width,omitempty"`
	Flex            *int        `json:"flex,omitempty"`
}

// Text is a block of text. When Contents is set the client renders the
// spans and Text is only the fallback literal.
type Text struct {
	Text     string  `json:"text"`
	Contents []*Span `json:"contents,omitempty"`
	Weight   string  `json:"weight,omitempty"`
	Size     string  `json:"size,omitempty"`
	Align    string  `json:"align,omitempty"`
	Wrap     bool    `json:"wrap,omitempty"`
	Color    string  `json:"color,omitempty"`
}

// Span is an inline styled fragment of a Text. Spans have no children.
type Span struct {
	Text   string `json:"text"`
	Weight string `json:"weight,omitempty"`
	Size   string `json:"size,omitempty"`
	Color  string `json:"color,omitempty"`
}

// Image displays a remote image.
type Image struct {
	URL         string `json:"url"`
	Size        string `json:"size,omitempty"`
	AspectMode  string `json:"aspectMode,omitempty"`
	AspectRatio string `json:"aspectRatio,omitempty"`
}

func (*Bubble) componentType() string { return "bubble" }
func (*Box) componentType() string    { return "box" }
func (*Text) componentType() string   { return "text" }
func (*Span) componentType() string   { return "span" }
func (*Image) componentType() string  { return "image" }

// Each node marshals with its "type" discriminator. The local alias types
// drop the MarshalJSON method so the embedded fields encode normally.

func (b *Bubble) MarshalJSON() ([]byte, error) {
	type alias Bubble
	return json.Marshal(struct {
		Type string `json:"type"`
		*alias
	}{b.componentType(), (*alias)(b)})
}

func (b *Box) MarshalJSON() ([]byte, error) {
	type alias Box
	a := (*alias)(b)
	if a.Contents == nil {
		cp := *a
		cp.Contents = []Component{}
		a = &cp
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		*alias
	}{b.componentType(), a})
}

func (t *Text) MarshalJSON() ([]byte, error) {
	type alias Text
	return json.Marshal(struct {
		Type string `json:"type"`
		*alias
	}{t.componentType(), (*alias)(t)})
}

func (s *Span) MarshalJSON() ([]byte, error) {
	type alias Span
	return json.Marshal(struct {
		Type string `json:"type"`
		*alias
	}{s.componentType(), (*alias)(s)})
}

func (i *Image) MarshalJSON() ([]byte, error) {
	type alias Image
	return json.Marshal(struct {
		Type string `json:"type"`
		*alias
	}{i.componentType(), (*alias)(i)})
}
