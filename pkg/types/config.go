package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Zero means no timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "ocr-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// OCRConfig holds settings for the remote OCR call.
type OCRConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey is the OCR service credential. Resolved once at startup
	// from flag, environment, or the secrets directory; read-only for
	// the rest of the process.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Model is the OCR model identifier (default "mistral-ocr-latest").
	Model string `json:"model" yaml:"model"`

	// MaxRetries is the number of retry attempts on HTTP 429. Zero
	// disables retries; the OCR client never retries on its own.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// OutputConfig holds settings for the export stage.
type OutputConfig struct {
	// OutputDir is the root under which one directory per processed
	// document is created (default "outputs").
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// HistoryConfig holds settings for the processing history index.
type HistoryConfig struct {
	// HistoryDir is the base directory for the index (contains index/).
	HistoryDir string `json:"history_dir" yaml:"history_dir"`

	// MaxResults is the default maximum number of lookup results
	// (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	OCR     OCRConfig     `json:"ocr" yaml:"ocr"`
	Output  OutputConfig  `json:"output" yaml:"output"`
	History HistoryConfig `json:"history" yaml:"history"`
}
