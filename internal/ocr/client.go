// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ocr wraps the remote Mistral OCR call: it uploads the PDF as
// a data URL, requests structured page-level output with embedded
// images, and maps transport, auth, quota, and payload failures into
// typed errors. Implements: prd002-recognition (R1-R5).
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/pdiddy/ocr-engine/internal/httputil"
	"github.com/pdiddy/ocr-engine/pkg/types"
)

// ocrAPIBase is the Mistral OCR endpoint. Declared as a var so tests
// can substitute an httptest server.
var ocrAPIBase = "https://api.mistral.ai/v1/ocr"

// DefaultModel is the OCR model requested when none is configured.
const DefaultModel = "mistral-ocr-latest"

// Client calls the remote OCR service. The credential is injected at
// construction time and read-only afterwards; it is never looked up
// from ambient process state at call time.
type Client struct {
	// HTTPClient performs the request. Its Timeout is the caller's
	// timeout knob; expiry surfaces as ErrTransport.
	HTTPClient *http.Client

	// APIKey authenticates the call. Empty means Recognize fails with
	// ErrAuth before any network traffic.
	APIKey string

	// Model is the OCR model identifier. Empty selects DefaultModel.
	Model string

	// BaseURL overrides the service endpoint. Empty selects the
	// production endpoint.
	BaseURL string

	// UserAgent is sent with each request.
	UserAgent string

	// MaxRetries enables retry-with-backoff on HTTP 429 when positive.
	// Zero means a single attempt; retry policy belongs to the caller.
	MaxRetries int
}

// NewClient builds a Client from an OCRConfig.
func NewClient(cfg types.OCRConfig) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.MaxRetries,
	}
}

// Mistral OCR API JSON structures.
type ocrRequest struct {
	Model              string      `json:"model"`
	Document           documentURL `json:"document"`
	IncludeImageBase64 bool        `json:"include_image_base64"`
}

type documentURL struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type ocrResponse struct {
	Pages []ocrPage `json:"pages"`
}

type ocrPage struct {
	Index    int        `json:"index"`
	Markdown string     `json:"markdown"`
	Images   []ocrImage `json:"images"`
}

type ocrImage struct {
	ID          string `json:"id"`
	ImageBase64 string `json:"image_base64"`
}

// Recognize sends the normalized PDF to the OCR service and returns the
// full structured result. On success the page count equals
// doc.PageCount; a truncated or malformed response is rejected as a
// whole (R4.1) — no partial result is ever returned.
func (c *Client) Recognize(ctx context.Context, doc types.NormalizedDocument) (*types.OCRResult, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("%w: no API key configured", ErrAuth)
	}
	if len(doc.PDF) == 0 {
		return nil, fmt.Errorf("%w: empty document payload", ErrService)
	}

	model := c.Model
	if model == "" {
		model = DefaultModel
	}

	body := ocrRequest{
		Model: model,
		Document: documentURL{
			Type:        "document_url",
			DocumentURL: "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(doc.PDF),
		},
		IncludeImageBase64: true,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding OCR request: %w", err)
	}

	endpoint := c.BaseURL
	if endpoint == "" {
		endpoint = ocrAPIBase
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var parsed ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: parsing OCR response: %v", ErrService, err)
	}

	return buildResult(parsed, doc.PageCount)
}

// do issues the request, with 429 backoff only when the caller opted in.
func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.MaxRetries > 0 {
		return httputil.DoWithRetry(ctx, c.HTTPClient, req, c.MaxRetries)
	}
	return c.HTTPClient.Do(req)
}

// statusError maps a non-200 response onto the failure taxonomy,
// preserving the raw status and body message (R3.3).
func statusError(resp *http.Response) error {
	msg := readBodyMessage(resp.Body)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d: %s", ErrAuth, resp.StatusCode, msg)
	case http.StatusTooManyRequests, http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: HTTP %d: %s", ErrLimitExceeded, resp.StatusCode, msg)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", ErrService, resp.StatusCode, msg)
	}
}

// readBodyMessage extracts the service error message, preferring the
// JSON "message" field over the raw body.
func readBodyMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return "no response body"
	}
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &e) == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(data))
}

// buildResult validates the parsed response shape and converts it into
// the pipeline's OCRResult. Pages come back sorted by index so the
// result order always equals source page order.
func buildResult(parsed ocrResponse, wantPages int) (*types.OCRResult, error) {
	if len(parsed.Pages) != wantPages {
		return nil, fmt.Errorf("%w: response has %d pages, document has %d", ErrService, len(parsed.Pages), wantPages)
	}

	sort.Slice(parsed.Pages, func(i, j int) bool {
		return parsed.Pages[i].Index < parsed.Pages[j].Index
	})

	result := &types.OCRResult{Pages: make([]types.OCRPage, 0, len(parsed.Pages))}
	for _, p := range parsed.Pages {
		page := types.OCRPage{Index: p.Index, Markdown: p.Markdown}
		for _, img := range p.Images {
			data, err := decodeImagePayload(img.ImageBase64)
			if err != nil {
				return nil, fmt.Errorf("%w: page %d image %q: %v", ErrService, p.Index, img.ID, err)
			}
			page.Images = append(page.Images, types.EmbeddedImage{ID: img.ID, Data: data})
		}
		result.Pages = append(result.Pages, page)
	}
	return result, nil
}

// decodeImagePayload decodes a base64 image payload, tolerating an
// optional data-URL prefix ("data:image/png;base64,…").
func decodeImagePayload(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("empty image payload")
	}
	if idx := strings.Index(s, ","); idx >= 0 && strings.HasPrefix(s, "data:") {
		s = s[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding base64 payload: %w", err)
	}
	return data, nil
}
