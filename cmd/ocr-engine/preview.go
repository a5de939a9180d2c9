package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ocr-engine/internal/preview"
	"github.com/pdiddy/ocr-engine/pkg/types"
)

var previewCmd = &cobra.Command{
	Use:   "preview <markdown-file>",
	Short: "Render exported Markdown as a standalone HTML preview",
	Long: `Preview regenerates the HTML artifact from a previously exported Markdown
file. Image references are resolved against the images/ directory next to the
file and inlined, so the output is a single self-contained HTML document.

With --out the HTML is written to a file; otherwise it goes to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath, _ := cmd.Flags().GetString("out")

		doc, err := loadMarkdownDocument(args[0])
		if err != nil {
			return err
		}

		artifact, err := preview.Render(doc)
		if err != nil {
			return err
		}

		if outPath == "" {
			fmt.Fprint(os.Stdout, artifact.HTML)
			return nil
		}
		if err := os.WriteFile(outPath, []byte(artifact.HTML), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", outPath, err)
		}
		fmt.Fprintf(os.Stderr, "Preview written to %s\n", outPath)
		return nil
	},
}

// loadMarkdownDocument reads an exported Markdown file back into a
// MarkdownDocument, picking up assets from the sibling images/
// directory when present.
func loadMarkdownDocument(mdPath string) (*types.MarkdownDocument, error) {
	text, err := os.ReadFile(mdPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", mdPath, err)
	}

	doc := &types.MarkdownDocument{Text: string(text), Assets: map[string][]byte{}}

	imgDir := filepath.Join(filepath.Dir(mdPath), "images")
	entries, err := os.ReadDir(imgDir)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("reading %s: %w", imgDir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(imgDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading asset %s: %w", entry.Name(), err)
		}
		doc.Assets[entry.Name()] = data
	}
	return doc, nil
}

func init() {
	previewCmd.Flags().String("out", "", "write HTML to this file instead of stdout")

	rootCmd.AddCommand(previewCmd)
}
