package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/ocr-engine/internal/history"
	"github.com/pdiddy/ocr-engine/internal/ocr"
	"github.com/pdiddy/ocr-engine/internal/pipeline"
	"github.com/pdiddy/ocr-engine/pkg/types"
)

var processCmd = &cobra.Command{
	Use:   "process [files...]",
	Short: "Run the OCR pipeline on PDF or image files",
	Long: `Process converts each input file (PDF, JPEG, PNG, GIF, BMP, TIFF, or WebP)
into Markdown via the remote OCR service. Images are normalized to single-page
PDFs first. Each document gets its own directory under the output root with
the Markdown file, extracted images, and a receipt record.

Files are processed sequentially; one file's failure does not stop the rest.
The exit code is non-zero if any file failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		apiKeyFlag, _ := cmd.Flags().GetString("api-key")
		noHistory, _ := cmd.Flags().GetBool("no-history")

		apiKey := resolveAPIKey(apiKeyFlag)
		if apiKey == "" {
			return fmt.Errorf("no API key: use --api-key, MISTRAL_API_KEY, or .secrets/mistral-api-key")
		}

		cfg := processConfig(cmd, apiKey)

		p := &pipeline.Pipeline{
			OCR:        ocr.NewClient(cfg.OCR),
			OutputRoot: cfg.Output.OutputDir,
		}

		if !noHistory {
			store, err := history.NewStore(cfg.History)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: history index unavailable: %v\n", err)
			} else {
				defer store.Close()
				p.History = store
			}
		}

		result := p.ProcessBatch(cmd.Context(), args, os.Stdout)
		if result.HasFailures() {
			return fmt.Errorf("%d of %d documents failed", result.Failed, result.Total())
		}
		return nil
	},
}

// processConfig builds the pipeline configuration from flags, with
// config-file values filling in anything not set on the command line.
func processConfig(cmd *cobra.Command, apiKey string) types.PipelineConfig {
	flags := cmd.Flags()
	model, _ := flags.GetString("model")
	timeout, _ := flags.GetDuration("timeout")
	retries, _ := flags.GetInt("retries")

	outputDir, _ := flags.GetString("output-dir")
	if outputDir == "" {
		outputDir = viper.GetString("output.output_dir")
	}

	return types.PipelineConfig{
		OCR: types.OCRConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   timeout,
				UserAgent: "ocr-engine/" + version,
			},
			APIKey:     apiKey,
			Model:      model,
			MaxRetries: retries,
		},
		Output: types.OutputConfig{OutputDir: outputDir},
		History: types.HistoryConfig{
			HistoryDir: viper.GetString("history.history_dir"),
			MaxResults: viper.GetInt("history.max_results"),
		},
	}
}

func init() {
	processCmd.Flags().String("api-key", "", "OCR service API key (default: MISTRAL_API_KEY or .secrets/mistral-api-key)")
	processCmd.Flags().String("output-dir", "", `root directory for per-document output (default "outputs")`)
	processCmd.Flags().String("model", ocr.DefaultModel, "OCR model identifier")
	processCmd.Flags().Duration("timeout", 2*time.Minute, "HTTP timeout for the OCR call (0 = none)")
	processCmd.Flags().Int("retries", 0, "retry attempts on HTTP 429 (0 = no retries)")
	processCmd.Flags().Bool("no-history", false, "skip recording runs in the history index")

	viper.SetDefault("output.output_dir", "outputs")
	viper.SetDefault("history.history_dir", "history")

	rootCmd.AddCommand(processCmd)
}
