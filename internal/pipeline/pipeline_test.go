// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/ocr-engine/internal/history"
	"github.com/pdiddy/ocr-engine/internal/normalize"
	"github.com/pdiddy/ocr-engine/internal/ocr"
	"github.com/pdiddy/ocr-engine/pkg/types"
)

// writePNG writes a small test image and returns its path.
func writePNG(t *testing.T, dir, name string) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// newPipeline wires a pipeline against a fake OCR service handler.
func newPipeline(t *testing.T, outputRoot string, handler http.HandlerFunc) *Pipeline {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	return &Pipeline{
		OCR: &ocr.Client{
			HTTPClient: ts.Client(),
			APIKey:     "test-key",
			BaseURL:    ts.URL,
		},
		OutputRoot: outputRoot,
	}
}

func singlePageHandler(markdown string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"pages":[{"index":0,"markdown":%q,"images":[]}]}`, markdown)
	}
}

func TestProcessImageEndToEnd(t *testing.T) {
	dir := t.TempDir()
	inPath := writePNG(t, dir, "invoice.png")
	outputRoot := filepath.Join(dir, "outputs")

	p := newPipeline(t, outputRoot, singlePageHandler("Total: $42"))

	var status bytes.Buffer
	res, err := p.Process(context.Background(), inPath, &status)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if want := "Total: $42\n\n---\n"; res.Markdown.Text != want {
		t.Errorf("markdown = %q, want %q", res.Markdown.Text, want)
	}
	if res.Receipt.PageCount != 1 {
		t.Errorf("PageCount = %d, want 1", res.Receipt.PageCount)
	}

	md, err := os.ReadFile(res.Receipt.MarkdownPath)
	if err != nil {
		t.Fatalf("reading exported markdown: %v", err)
	}
	if string(md) != res.Markdown.Text {
		t.Errorf("exported markdown differs from result: %q", md)
	}

	if _, err := os.Stat(filepath.Join(res.Receipt.OutputDir, "images")); !os.IsNotExist(err) {
		t.Error("images/ exists for a document without assets")
	}

	if !strings.Contains(res.Preview.HTML, "Total: $42") {
		t.Error("preview does not contain the recognized text")
	}

	out := status.String()
	for _, want := range []string{"converted:", "recognized:", "exported:"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestProcessAuthFailureCreatesNoOutput(t *testing.T) {
	dir := t.TempDir()
	inPath := writePNG(t, dir, "doc.png")
	outputRoot := filepath.Join(dir, "outputs")

	p := newPipeline(t, outputRoot, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"Unauthorized"}`)
	})

	_, err := p.Process(context.Background(), inPath, &bytes.Buffer{})
	if !errors.Is(err, ocr.ErrAuth) {
		t.Fatalf("Process() error = %v, want ErrAuth", err)
	}

	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("Process() error = %T, want *StageError", err)
	}
	if se.Stage != "recognize" {
		t.Errorf("stage = %q, want %q", se.Stage, "recognize")
	}
	if se.Doc != inPath {
		t.Errorf("doc = %q, want %q", se.Doc, inPath)
	}

	// The failed run must not create the output root.
	if _, err := os.Stat(outputRoot); !os.IsNotExist(err) {
		t.Error("output root exists after a failed run")
	}
}

func TestProcessUnsupportedInput(t *testing.T) {
	dir := t.TempDir()
	badPath := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(badPath, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := newPipeline(t, filepath.Join(dir, "outputs"), singlePageHandler("unused"))

	_, err := p.Process(context.Background(), badPath, &bytes.Buffer{})
	if !errors.Is(err, normalize.ErrUnsupportedFormat) {
		t.Fatalf("Process() error = %v, want ErrUnsupportedFormat", err)
	}

	var se *StageError
	if !errors.As(err, &se) || se.Stage != "detect" {
		t.Errorf("error = %v, want detect stage failure", err)
	}
}

func TestProcessBatchContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	badPath := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(badPath, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	goodPath := writePNG(t, dir, "good.png")

	p := newPipeline(t, filepath.Join(dir, "outputs"), singlePageHandler("recognized text"))

	var status bytes.Buffer
	result := p.ProcessBatch(context.Background(), []string{badPath, goodPath}, &status)

	if result.Succeeded != 1 || result.Failed != 1 {
		t.Errorf("batch = %d succeeded, %d failed; want 1, 1", result.Succeeded, result.Failed)
	}
	if result.Total() != 2 {
		t.Errorf("Total() = %d, want 2", result.Total())
	}
	if !result.HasFailures() {
		t.Error("HasFailures() = false, want true")
	}
	if len(result.Results) != 1 || len(result.Errors) != 1 {
		t.Errorf("results/errors = %d/%d, want 1/1", len(result.Results), len(result.Errors))
	}

	// The good document completed despite the earlier failure.
	if _, err := os.Stat(result.Results[0].Receipt.MarkdownPath); err != nil {
		t.Errorf("good document not exported: %v", err)
	}

	out := status.String()
	if !strings.Contains(out, "failed:") {
		t.Errorf("status output missing failure line:\n%s", out)
	}
	if !strings.Contains(out, "Batch summary: 1 succeeded, 1 failed (total: 2)") {
		t.Errorf("status output missing summary:\n%s", out)
	}
}

func TestProcessRecordsHistory(t *testing.T) {
	dir := t.TempDir()
	inPath := writePNG(t, dir, "report.png")

	store, err := history.NewStore(types.HistoryConfig{HistoryDir: filepath.Join(dir, "history")})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	p := newPipeline(t, filepath.Join(dir, "outputs"), singlePageHandler("Annual report findings"))
	p.History = store

	res, err := p.Process(context.Background(), inPath, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	entries, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d history entries, want 1", len(entries))
	}
	if entries[0].RunID != res.Receipt.RunID {
		t.Errorf("recorded run ID = %q, want %q", entries[0].RunID, res.Receipt.RunID)
	}

	matches, err := store.Lookup(context.Background(), "findings", 10)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("got %d lookup matches, want 1", len(matches))
	}
}
