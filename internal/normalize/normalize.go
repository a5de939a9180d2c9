// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize converts supported inputs into the canonical OCR
// input format: every document leaving this stage is a PDF.
// Implements: prd001-ingestion (R1-R3).
package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	// Register webp decoding for image.Decode; imaging pulls in the
	// bmp, tiff, gif, png, and jpeg decoders itself.
	_ "golang.org/x/image/webp"

	"github.com/pdiddy/ocr-engine/pkg/types"
)

// ErrUnsupportedFormat reports an input that is neither a PDF nor a
// recognized raster image.
var ErrUnsupportedFormat = errors.New("unsupported input format")

// ErrConversion reports a decode or PDF re-encode failure for an
// otherwise supported input.
var ErrConversion = errors.New("conversion failed")

// imageSubtypes maps supported raster extensions to their subtype name.
var imageSubtypes = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
	".gif":  "gif",
	".bmp":  "bmp",
	".tiff": "tiff",
	".tif":  "tiff",
	".webp": "webp",
}

// Detect resolves the input kind of the file at path from its
// extension. The kind is resolved exactly once here and carried through
// the pipeline as data (R1.2).
func Detect(path string) (types.SourceDocument, error) {
	ext := strings.ToLower(filepath.Ext(path))

	doc := types.SourceDocument{
		Path:       path,
		DetectedAt: time.Now().UTC(),
	}

	switch {
	case ext == ".pdf":
		doc.Kind = types.InputPDF
	default:
		subtype, ok := imageSubtypes[ext]
		if !ok {
			return types.SourceDocument{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
		}
		doc.Kind = types.InputImage
		doc.Subtype = subtype
	}
	return doc, nil
}

// Normalize turns a SourceDocument into the PDF byte stream the OCR
// client accepts. PDFs pass through byte-for-byte (R2.1); raster images
// become a single-page PDF with the image embedded at full page size,
// aspect ratio preserved (R2.2). Each input normalizes independently;
// multiple images are never merged.
func Normalize(doc types.SourceDocument) (types.NormalizedDocument, error) {
	data, err := os.ReadFile(doc.Path)
	if err != nil {
		return types.NormalizedDocument{}, fmt.Errorf("reading %s: %w", doc.Path, err)
	}

	switch doc.Kind {
	case types.InputPDF:
		return passThroughPDF(doc.Path, data)
	case types.InputImage:
		return imageToPDF(doc, data)
	default:
		return types.NormalizedDocument{}, fmt.Errorf("%w: kind %q", ErrUnsupportedFormat, doc.Kind)
	}
}

// passThroughPDF returns the payload unchanged. The page count comes
// from parsing the document; a PDF pdfcpu cannot parse never reaches
// the OCR call.
func passThroughPDF(path string, data []byte) (types.NormalizedDocument, error) {
	count, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return types.NormalizedDocument{}, fmt.Errorf("%w: parsing PDF %s: %v", ErrConversion, path, err)
	}
	return types.NormalizedDocument{PDF: data, PageCount: count}, nil
}

// imageToPDF decodes the raster payload and embeds it on a new PDF
// page via pdfcpu's image import. GIF and BMP are re-encoded to PNG
// first; pdfcpu imports PNG, JPEG, TIFF, and WebP natively.
func imageToPDF(doc types.SourceDocument, data []byte) (types.NormalizedDocument, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return types.NormalizedDocument{}, fmt.Errorf("%w: decoding %s image %s: %v", ErrConversion, doc.Subtype, doc.Path, err)
	}

	payload := data
	switch doc.Subtype {
	case "gif", "bmp":
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return types.NormalizedDocument{}, fmt.Errorf("%w: re-encoding %s as PNG: %v", ErrConversion, doc.Path, err)
		}
		payload = buf.Bytes()
	}

	imp := pdfcpu.DefaultImportConfig()

	var out bytes.Buffer
	if err := api.ImportImages(nil, &out, []io.Reader{bytes.NewReader(payload)}, imp, model.NewDefaultConfiguration()); err != nil {
		return types.NormalizedDocument{}, fmt.Errorf("%w: embedding %s into PDF: %v", ErrConversion, doc.Path, err)
	}

	return types.NormalizedDocument{PDF: out.Bytes(), PageCount: 1}, nil
}
