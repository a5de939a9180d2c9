// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import "errors"

// Failure taxonomy for the OCR call. Each sentinel wraps the raw
// status and service message so callers can surface them verbatim.
var (
	// ErrAuth reports a missing or rejected credential. With an empty
	// key no network call is attempted.
	ErrAuth = errors.New("authentication failed")

	// ErrTransport reports a network-level failure, including timeout
	// expiry on the configured HTTP client.
	ErrTransport = errors.New("transport failure")

	// ErrService reports a non-success status or a malformed/truncated
	// response payload.
	ErrService = errors.New("OCR service error")

	// ErrLimitExceeded reports a rate or document size limit.
	ErrLimitExceeded = errors.New("service limit exceeded")
)
