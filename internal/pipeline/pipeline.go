// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates one fixed sequence per document:
// normalize → recognize → assemble → export → preview. Stages run in
// strict order; the first failure ends the run with no later stages
// attempted and no partial output on disk.
// Implements: prd007-pipeline (R1-R4).
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/ocr-engine/internal/assemble"
	"github.com/pdiddy/ocr-engine/internal/export"
	"github.com/pdiddy/ocr-engine/internal/history"
	"github.com/pdiddy/ocr-engine/internal/normalize"
	"github.com/pdiddy/ocr-engine/internal/ocr"
	"github.com/pdiddy/ocr-engine/internal/preview"
	"github.com/pdiddy/ocr-engine/pkg/types"
)

// StageError annotates a stage failure with the document and stage
// that produced it. The underlying error passes through unchanged so
// its kind and raw message stay inspectable and user-visible.
type StageError struct {
	Doc   string
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Doc, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Pipeline processes documents one at a time. The OCR client carries
// the credential; History is optional and best-effort.
type Pipeline struct {
	OCR        *ocr.Client
	OutputRoot string

	// History, when set, records completed runs. Recording failures
	// warn but never fail a completed run.
	History *history.Store
}

// RunResult is the outcome of one successful pipeline run.
type RunResult struct {
	Receipt  *types.ExportReceipt
	Markdown *types.MarkdownDocument
	Preview  types.PreviewArtifact
}

// Process runs the full pipeline for one input file. Status lines go
// to w; on failure the returned error is a *StageError wrapping the
// stage's typed failure.
func (p *Pipeline) Process(ctx context.Context, path string, w io.Writer) (*RunResult, error) {
	fail := func(stage string, err error) (*RunResult, error) {
		return nil, &StageError{Doc: path, Stage: stage, Err: err}
	}

	src, err := normalize.Detect(path)
	if err != nil {
		return fail("detect", err)
	}

	normalized, err := normalize.Normalize(src)
	if err != nil {
		return fail("normalize", err)
	}
	if src.Kind == types.InputImage {
		fmt.Fprintf(w, "converted: %s (%s, 1 page)\n", path, src.Subtype)
	}

	result, err := p.OCR.Recognize(ctx, normalized)
	if err != nil {
		return fail("recognize", err)
	}
	fmt.Fprintf(w, "recognized: %s (%d pages)\n", path, len(result.Pages))

	doc := assemble.Assemble(result)

	receipt, err := export.Export(doc, src, p.OutputRoot, normalized.PageCount)
	if err != nil {
		return fail("export", err)
	}
	fmt.Fprintf(w, "exported: %s\n", receipt.MarkdownPath)

	artifact, err := preview.Render(doc)
	if err != nil {
		return fail("preview", err)
	}

	if p.History != nil {
		if err := p.History.Record(ctx, receipt, doc.Text); err != nil {
			fmt.Fprintf(w, "  warning: history record failed: %v\n", err)
		}
	}

	return &RunResult{Receipt: receipt, Markdown: doc, Preview: artifact}, nil
}

// BatchResult holds the outcome of a batch run.
type BatchResult struct {
	Succeeded int
	Failed    int
	Results   []*RunResult
	Errors    []error
}

// Total returns the number of documents processed.
func (r BatchResult) Total() int { return r.Succeeded + r.Failed }

// HasFailures reports whether any document failed.
func (r BatchResult) HasFailures() bool { return r.Failed > 0 }

// ProcessBatch runs the pipeline for each path sequentially, one fully
// completed run before the next starts. It continues after individual
// failures; one document's failure never aborts the remaining runs.
func (p *Pipeline) ProcessBatch(ctx context.Context, paths []string, w io.Writer) BatchResult {
	var result BatchResult
	for _, path := range paths {
		res, err := p.Process(ctx, path, w)
		if err != nil {
			fmt.Fprintf(w, "failed:  %v\n", err)
			result.Failed++
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Succeeded++
		result.Results = append(result.Results, res)
	}
	fmt.Fprintf(w, "\nBatch summary: %d succeeded, %d failed (total: %d)\n",
		result.Succeeded, result.Failed, result.Total())
	return result
}
