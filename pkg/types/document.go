// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// InputKind classifies a source document once at ingestion. The kind is
// carried through the pipeline as data; later stages never re-inspect
// the file.
type InputKind string

const (
	InputPDF   InputKind = "pdf"
	InputImage InputKind = "image"
)

// SourceDocument describes a file selected for processing. It is
// immutable for the lifetime of a pipeline run.
type SourceDocument struct {
	// Path is the filesystem path to the selected file.
	Path string `json:"path" yaml:"path"`

	// Kind is the resolved input kind (pdf or image).
	Kind InputKind `json:"kind" yaml:"kind"`

	// Subtype is the image subtype for image inputs (e.g. "png",
	// "jpeg", "webp"). Empty for PDFs.
	Subtype string `json:"subtype,omitempty" yaml:"subtype,omitempty"`

	// DetectedAt records when the document entered the pipeline.
	DetectedAt time.Time `json:"detected_at" yaml:"detected_at"`
}

// NormalizedDocument is the canonical OCR input: a PDF byte stream and
// its page count. It is derived from a SourceDocument (identity for
// PDFs) and owned exclusively by the pipeline run that produced it.
type NormalizedDocument struct {
	PDF       []byte
	PageCount int
}

// EmbeddedImage is an image extracted by the OCR service, decoded from
// the service's base64 payload.
type EmbeddedImage struct {
	// ID is the service-assigned image identifier referenced from the
	// page markdown.
	ID string

	// Data is the decoded binary payload.
	Data []byte
}

// OCRPage holds the recognized content of a single page.
type OCRPage struct {
	// Index is the zero-based page index; page order equals source
	// page order.
	Index int

	// Markdown is the recognized text with the service's inline math
	// markers intact.
	Markdown string

	// Images lists extracted embedded images in page order.
	Images []EmbeddedImage
}

// OCRResult is the full structured response of one successful OCR
// call. It is immutable after construction and never partial: either
// all pages parsed or the call failed.
type OCRResult struct {
	Pages []OCRPage
}

// MarkdownDocument is the canonical exportable artifact: the assembled
// Markdown text plus the binary assets it references.
type MarkdownDocument struct {
	// Text is the assembled Markdown body.
	Text string

	// Assets maps asset file names (e.g. "page-0-img-0.png") to their
	// binary payloads. Every image reference in Text resolves to
	// exactly one entry here.
	Assets map[string][]byte
}

// PreviewArtifact is a standalone HTML rendering of a
// MarkdownDocument. It is ephemeral and regenerated on demand, never
// the export of record.
type PreviewArtifact struct {
	HTML string
}

// ExportReceipt records a completed export: where the artifact landed
// and what it contained.
type ExportReceipt struct {
	// RunID uniquely identifies the pipeline run.
	RunID string `json:"run_id" yaml:"run_id"`

	// SourcePath is the path of the original input file.
	SourcePath string `json:"source_path" yaml:"source_path"`

	// OutputDir is the per-document directory the export created.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// MarkdownPath is the path of the exported Markdown file.
	MarkdownPath string `json:"markdown_path" yaml:"markdown_path"`

	// PageCount is the number of pages recognized.
	PageCount int `json:"page_count" yaml:"page_count"`

	// AssetCount is the number of image assets written.
	AssetCount int `json:"asset_count" yaml:"asset_count"`

	// ExportedAt is the completion time of the export.
	ExportedAt time.Time `json:"exported_at" yaml:"exported_at"`
}
