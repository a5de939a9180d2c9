// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export persists a MarkdownDocument under a per-document
// output directory. Writes are staged into a temporary directory and
// renamed into place on full success, so a failed export never leaves
// a directory that looks complete.
// Implements: prd005-export (R1-R4).
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/ocr-engine/pkg/types"
)

// ErrWrite reports a filesystem failure during export.
var ErrWrite = errors.New("export write failed")

const (
	imagesDir   = "images"
	receiptFile = "document.yaml"
)

// Export writes the Markdown text, image assets, and a YAML receipt
// under outputRoot/<stem> where stem derives from the source filename.
// When the directory already exists, a counter suffix (-1, -2, …)
// disambiguates instead of overwriting earlier runs.
func Export(doc *types.MarkdownDocument, src types.SourceDocument, outputRoot string, pageCount int) (*types.ExportReceipt, error) {
	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating output root %s: %v", ErrWrite, outputRoot, err)
	}

	stem := docStem(src.Path)
	destDir, err := pickDestination(outputRoot, stem)
	if err != nil {
		return nil, err
	}

	// Stage everything in a temp directory, rename on full success.
	tmpDir, err := os.MkdirTemp(outputRoot, ".export-*")
	if err != nil {
		return nil, fmt.Errorf("%w: creating staging directory: %v", ErrWrite, err)
	}
	defer os.RemoveAll(tmpDir)

	mdName := stem + ".md"
	receipt := &types.ExportReceipt{
		RunID:        uuid.NewString(),
		SourcePath:   src.Path,
		OutputDir:    destDir,
		MarkdownPath: filepath.Join(destDir, mdName),
		PageCount:    pageCount,
		AssetCount:   len(doc.Assets),
		ExportedAt:   time.Now().UTC(),
	}

	if err := stage(tmpDir, mdName, doc, receipt); err != nil {
		return nil, err
	}

	if err := os.Rename(tmpDir, destDir); err != nil {
		return nil, fmt.Errorf("%w: moving staged export to %s: %v", ErrWrite, destDir, err)
	}
	return receipt, nil
}

// stage writes all export files into dir.
func stage(dir, mdName string, doc *types.MarkdownDocument, receipt *types.ExportReceipt) error {
	if err := os.WriteFile(filepath.Join(dir, mdName), []byte(doc.Text), 0o644); err != nil {
		return fmt.Errorf("%w: writing markdown: %v", ErrWrite, err)
	}

	if len(doc.Assets) > 0 {
		imgDir := filepath.Join(dir, imagesDir)
		if err := os.Mkdir(imgDir, 0o755); err != nil {
			return fmt.Errorf("%w: creating %s: %v", ErrWrite, imgDir, err)
		}
		// Deterministic write order.
		names := make([]string, 0, len(doc.Assets))
		for name := range doc.Assets {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(imgDir, name), doc.Assets[name], 0o644); err != nil {
				return fmt.Errorf("%w: writing asset %s: %v", ErrWrite, name, err)
			}
		}
	}

	data, err := yaml.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("%w: marshaling receipt: %v", ErrWrite, err)
	}
	if err := os.WriteFile(filepath.Join(dir, receiptFile), data, 0o644); err != nil {
		return fmt.Errorf("%w: writing receipt: %v", ErrWrite, err)
	}
	return nil
}

// pickDestination returns outputRoot/<stem>, or the first free
// counter-suffixed variant when earlier runs already claimed the name.
func pickDestination(outputRoot, stem string) (string, error) {
	for i := 0; ; i++ {
		name := stem
		if i > 0 {
			name = fmt.Sprintf("%s-%d", stem, i)
		}
		dest := filepath.Join(outputRoot, name)
		if _, err := os.Stat(dest); err != nil {
			if os.IsNotExist(err) {
				return dest, nil
			}
			return "", fmt.Errorf("%w: probing %s: %v", ErrWrite, dest, err)
		}
	}
}

// docStem derives the output directory name from the source filename.
func docStem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
