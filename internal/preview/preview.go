// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package preview renders an assembled Markdown document into a
// standalone HTML artifact for inline display. Rendering is a pure
// function of the document and a fixed extension set; malformed input
// degrades to literal text, it never fails the render.
// Implements: prd004-preview (R1-R3).
package preview

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	treeblood "github.com/wyatt915/goldmark-treeblood"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/pdiddy/ocr-engine/pkg/types"
)

// htmlShell wraps the rendered body into a complete document. The
// stylesheet link matches GitHub's Markdown styling so the preview
// reads like the exported file will.
const htmlShell = `<!DOCTYPE html>
<html>
<head>
<title>Markdown Preview</title>
<meta charset="utf-8">
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/github-markdown-css/github-markdown.min.css">
</head>
<body>
<div id="content" class="markdown-body">
%s</div>
</body>
</html>
`

// renderer is the fixed goldmark configuration: GFM tables, footnotes
// and definition lists for the "extra" constructs, and MathML math for
// the dollar delimiters the assembler emits.
var renderer = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Footnote,
		extension.DefinitionList,
		treeblood.MathML(),
	),
)

// Render converts the Markdown document into a self-contained HTML
// page. Image references resolve against the document's asset set and
// are inlined as data URIs, so the artifact needs no files on disk.
func Render(doc *types.MarkdownDocument) (types.PreviewArtifact, error) {
	source := inlineAssets(doc)

	var buf bytes.Buffer
	if err := renderer.Convert([]byte(source), &buf); err != nil {
		// Convert only fails on writer errors; a bytes.Buffer cannot
		// produce one, but the contract stays explicit.
		return types.PreviewArtifact{}, fmt.Errorf("rendering markdown: %w", err)
	}

	return types.PreviewArtifact{HTML: fmt.Sprintf(htmlShell, buf.String())}, nil
}

// inlineAssets replaces images/<name> references with data URIs built
// from the asset payloads. References without a matching asset are
// left untouched and render as broken links rather than failing.
func inlineAssets(doc *types.MarkdownDocument) string {
	text := doc.Text
	for name, data := range doc.Assets {
		uri := fmt.Sprintf("data:%s;base64,%s",
			contentType(name, data), base64.StdEncoding.EncodeToString(data))
		text = strings.ReplaceAll(text, "(images/"+name+")", "("+uri+")")
	}
	return text
}

// contentType sniffs the asset payload, falling back on the extension
// for payloads too short to sniff.
func contentType(name string, data []byte) string {
	if len(data) > 0 {
		if ct := http.DetectContentType(data); ct != "application/octet-stream" {
			return ct
		}
	}
	if strings.HasSuffix(name, ".png") {
		return "image/png"
	}
	return "application/octet-stream"
}
