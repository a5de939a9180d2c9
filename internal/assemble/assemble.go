// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble converts a structured OCR result into a single
// Markdown document plus its image asset set. The transform is pure
// and deterministic: identical input yields byte-identical output.
// Implements: prd003-assembly (R1-R4).
package assemble

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/ocr-engine/pkg/types"
)

// PageBreak separates pages in the assembled document. Every page
// contributes one marker, including pages with no text and no images,
// so page-count traceability survives assembly.
const PageBreak = "\n\n---\n"

// assetDir is the subdirectory image references point into, agreed
// with the export stage.
const assetDir = "images"

// Assemble walks the OCR result page-by-page and produces the
// exportable MarkdownDocument. Service math delimiters are normalized
// for the preview math extension, and each embedded image is rewritten
// to a generated asset name with its payload recorded in the asset set.
// An image whose ID never appears in the page text contributes no
// asset; every asset key is referenced from the document.
func Assemble(res *types.OCRResult) *types.MarkdownDocument {
	var b strings.Builder
	assets := make(map[string][]byte)

	for _, page := range res.Pages {
		text := NormalizeMath(page.Markdown)

		for j, img := range page.Images {
			name := assetName(page.Index, j)
			rewritten, replaced := rewriteImageRef(text, img.ID, name)
			if !replaced {
				continue
			}
			text = rewritten
			assets[name] = img.Data
		}

		b.WriteString(strings.TrimRight(text, "\n"))
		b.WriteString(PageBreak)
	}

	return &types.MarkdownDocument{Text: b.String(), Assets: assets}
}

// assetName generates the stable name for an embedded image:
// page-{i}-img-{j}.png.
func assetName(pageIndex, imageIndex int) string {
	return fmt.Sprintf("page-%d-img-%d.png", pageIndex, imageIndex)
}

// rewriteImageRef replaces the service's self-referential image link
// ![id](id) with a reference into the asset directory, reporting
// whether anything was replaced. The alt text keeps the service ID so
// the link stays traceable to the source page. A duplicate ID on one
// page is consumed entirely by the first rewrite; later images with
// the same ID find nothing to claim.
func rewriteImageRef(text, id, name string) (string, bool) {
	old := fmt.Sprintf("![%s](%s)", id, id)
	if !strings.Contains(text, old) {
		return text, false
	}
	ref := fmt.Sprintf("![%s](%s/%s)", id, assetDir, name)
	return strings.ReplaceAll(text, old, ref), true
}

// mathDelimiters rewrites the service's LaTeX-style delimiters into
// the dollar convention the preview extension recognizes. Pairs only;
// a stray opener is left alone and degrades to literal text downstream.
var mathDelimiters = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\\\[((?s).*?)\\\]`), "$$$$${1}$$$$"},
	{regexp.MustCompile(`\\\(((?s).*?)\\\)`), "$$${1}$$"},
}

// NormalizeMath converts \(…\) to $…$ and \[…\] to $$…$$.
func NormalizeMath(text string) string {
	for _, d := range mathDelimiters {
		text = d.re.ReplaceAllString(text, d.repl)
	}
	return text
}

// assetRefPattern matches Markdown image references into the asset
// directory, capturing the asset name.
var assetRefPattern = regexp.MustCompile(`!\[[^\]]*\]\(` + assetDir + `/([^)]+)\)`)

// ReferencedAssets returns the asset names referenced from the
// document text, in order of first appearance, without duplicates.
func ReferencedAssets(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range assetRefPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
