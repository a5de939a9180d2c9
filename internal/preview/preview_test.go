// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package preview

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/pdiddy/ocr-engine/pkg/types"
)

func render(t *testing.T, doc *types.MarkdownDocument) string {
	t.Helper()
	artifact, err := Render(doc)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return artifact.HTML
}

func TestRenderBasicDocument(t *testing.T) {
	html := render(t, &types.MarkdownDocument{Text: "# Invoice\n\nTotal: 42\n"})

	for _, want := range []string{
		"<!DOCTYPE html>",
		`class="markdown-body"`,
		"github-markdown.min.css",
		"<h1",
		"Invoice",
		"Total: 42",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML does not contain %q", want)
		}
	}
}

func TestRenderTable(t *testing.T) {
	md := "| Item | Price |\n| --- | --- |\n| Widget | 9.99 |\n"
	html := render(t, &types.MarkdownDocument{Text: md})

	if !strings.Contains(html, "<table>") {
		t.Errorf("GFM table not rendered:\n%s", html)
	}
	if !strings.Contains(html, "Widget") {
		t.Errorf("table cell missing:\n%s", html)
	}
}

func TestRenderMath(t *testing.T) {
	html := render(t, &types.MarkdownDocument{Text: "Euler: $e^{i\\pi} + 1 = 0$\n"})

	if !strings.Contains(html, "<math") {
		t.Errorf("inline math not rendered to MathML:\n%s", html)
	}
}

func TestRenderNeverFails(t *testing.T) {
	// Arbitrary and malformed input degrades to literal text; Render
	// must not return an error for any of it.
	inputs := []string{
		"",
		"plain text",
		"| broken | table\n| ---\n| cell",
		"$ unbalanced math",
		"\\[ stray opener",
		"[link](",
		"<div><span>raw html",
		strings.Repeat("#", 100),
		"\x00\x01\x02 control bytes",
	}
	for _, in := range inputs {
		if _, err := Render(&types.MarkdownDocument{Text: in}); err != nil {
			t.Errorf("Render(%q) error = %v, want nil", in, err)
		}
	}
}

func TestRenderInlinesAssets(t *testing.T) {
	// Minimal valid PNG header so content sniffing picks image/png.
	pngData := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}

	doc := &types.MarkdownDocument{
		Text: "![fig](images/page-0-img-0.png)\n",
		Assets: map[string][]byte{
			"page-0-img-0.png": pngData,
		},
	}
	html := render(t, doc)

	wantURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)
	if !strings.Contains(html, wantURI) {
		t.Errorf("asset not inlined as data URI:\n%s", html)
	}
	if strings.Contains(html, "images/page-0-img-0.png") {
		t.Errorf("file reference survived inlining:\n%s", html)
	}
}

func TestRenderUnmatchedReferenceLeftAlone(t *testing.T) {
	doc := &types.MarkdownDocument{
		Text:   "![missing](images/nope.png)\n",
		Assets: map[string][]byte{},
	}
	html := render(t, doc)

	if !strings.Contains(html, "images/nope.png") {
		t.Errorf("unmatched reference should stay as-is:\n%s", html)
	}
}

func TestContentTypeFallback(t *testing.T) {
	tests := []struct {
		name string
		file string
		data []byte
		want string
	}{
		{"sniffed png", "a.png", []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}, "image/png"},
		{"short payload falls back on extension", "b.png", []byte{0x01}, "image/png"},
		{"unknown payload and extension", "c.bin", []byte{0x01}, "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := contentType(tt.file, tt.data); got != tt.want {
				t.Errorf("contentType(%q) = %q, want %q", tt.file, got, tt.want)
			}
		})
	}
}
