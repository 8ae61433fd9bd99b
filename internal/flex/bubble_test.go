package flex

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// mustParseJSON unmarshals raw JSON into a generic map.
func mustParseJSON(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("invalid JSON: %v\nraw: %s", err, raw)
	}
	return m
}

// child returns contents[idx] of a JSON node.
func child(t *testing.T, node map[string]any, idx int) map[string]any {
	t.Helper()
	contents, ok := node["contents"].([]any)
	if !ok {
		t.Fatalf("node %v has no contents array", node["type"])
	}
	if idx >= len(contents) {
		t.Fatalf("content index %d out of range (len=%d)", idx, len(contents))
	}
	c, ok := contents[idx].(map[string]any)
	if !ok {
		t.Fatalf("content %d is not an object", idx)
	}
	return c
}

func TestRenderOrdering(t *testing.T) {
	md := strings.Join([]string{
		"| H |",
		"|---|",
		"| v |",
		"![pic](https://e.com/p.png)",
		"# Late heading",
		"closing words",
	}, "\n")

	bubble := NewRenderer(Options{}, nil).Render(md)
	if bubble.Size != SizeGiga {
		t.Errorf("bubble size = %q, want giga", bubble.Size)
	}
	contents := bubble.Body.Contents
	if len(contents) != 4 {
		t.Fatalf("body has %d children, want 4", len(contents))
	}

	var kinds []string
	for _, c := range contents {
		kinds = append(kinds, c.componentType())
	}
	want := []string{"text", "text", "image", "box"}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("body order = %v, want %v", kinds, want)
		}
	}
	if got := contents[0].(*Text).Text; got != "Late heading" {
		t.Errorf("first text = %q, want heading", got)
	}
}

func TestRenderEmpty(t *testing.T) {
	bubble := NewRenderer(Options{}, nil).Render("")
	if bubble.Body == nil {
		t.Fatal("expected body box")
	}
	if len(bubble.Body.Contents) != 0 {
		t.Errorf("body has %d children, want 0", len(bubble.Body.Contents))
	}

	data, err := bubble.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	body := mustParseJSON(t, data)["body"].(map[string]any)
	if contents, ok := body["contents"].([]any); !ok || len(contents) != 0 {
		t.Errorf("body contents = %v, want empty array", body["contents"])
	}
}

func TestBubbleJSONSchema(t *testing.T) {
	data, err := NewRenderer(Options{}, nil).Render("# Title\n\nHello **world**").JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	root := mustParseJSON(t, data)
	if root["type"] != "bubble" || root["size"] != "giga" {
		t.Fatalf("root = %v/%v, want bubble/giga", root["type"], root["size"])
	}

	body := root["body"].(map[string]any)
	if body["type"] != "box" || body["layout"] != "vertical" {
		t.Errorf("body = %v/%v, want vertical box", body["type"], body["layout"])
	}
	if body["spacing"] != "md" || body["paddingAll"] != "lg" {
		t.Errorf("body spacing/padding = %v/%v", body["spacing"], body["paddingAll"])
	}

	heading := child(t, body, 0)
	if heading["type"] != "text" || heading["text"] != "Title" || heading["weight"] != "bold" || heading["size"] != "xl" {
		t.Errorf("heading = %v", heading)
	}

	para := child(t, body, 1)
	if para["text"] != "Hello world" || para["wrap"] != true {
		t.Errorf("paragraph = %v", para)
	}
	plain := child(t, para, 0)
	bold := child(t, para, 1)
	if plain["type"] != "span" || plain["text"] != "Hello " {
		t.Errorf("span 0 = %v", plain)
	}
	if _, ok := plain["weight"]; ok {
		t.Errorf("plain span should omit weight: %v", plain)
	}
	if bold["type"] != "span" || bold["text"] != "world" || bold["weight"] != "bold" {
		t.Errorf("span 1 = %v", bold)
	}
}

func TestBubbleJSONTable(t *testing.T) {
	data, err := NewRenderer(Options{}, nil).Render("| A | B |\n|---|---|\n| 1 | 2 |").JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	body := mustParseJSON(t, data)["body"].(map[string]any)
	grid := child(t, body, 0)
	header := child(t, grid, 0)
	if header["layout"] != "horizontal" {
		t.Errorf("header layout = %v", header["layout"])
	}
	cell := child(t, header, 1)
	if cell["width"] != "50%" || cell["layout"] != "vertical" {
		t.Errorf("header cell = %v", cell)
	}
	if text := child(t, cell, 0); text["text"] != "B" || text["weight"] != "bold" {
		t.Errorf("header text = %v", text)
	}
}

func TestBubbleJSONTooLarge(t *testing.T) {
	md := strings.Repeat("a very long paragraph line that keeps going\n", 2000)
	_, err := NewRenderer(Options{}, nil).Render(md).JSON()
	if !errors.Is(err, ErrBubbleTooLarge) {
		t.Fatalf("err = %v, want ErrBubbleTooLarge", err)
	}
}

func TestAssembleNilInputs(t *testing.T) {
	bubble := Assemble(nil, nil, nil)
	if bubble == nil || bubble.Body == nil {
		t.Fatal("expected bubble with body")
	}
	if bubble.Body.Layout != LayoutVertical {
		t.Errorf("layout = %q, want vertical", bubble.Body.Layout)
	}
}
