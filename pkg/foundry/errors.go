package foundry

import (
	"errors"
	"fmt"
)

// AuthError indicates that credential resolution or token acquisition failed.
type AuthError struct {
	// Message is the human-readable error description.
	Message string

	// Cause is the underlying error from the token provider, if any.
	Cause error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// TransportError indicates the HTTP request failed before a response was
// received (connection refused, timeout, DNS failure). Transport errors are
// not retried by the client; the underlying http.Transport may retry
// internally.
type TransportError struct {
	// Op describes the operation that failed (e.g., "POST /assistants").
	Op string

	// Cause is the underlying transport error.
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("request failed: %s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// HTTPError represents a non-2xx response whose body did not parse as a
// structured service error. Message is sanitized and length-capped before
// the error is constructed.
type HTTPError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the sanitized, truncated response body.
	Message string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// APIError represents a non-2xx response carrying a structured service error
// envelope of the form {"error":{"code":..., "message":...}}. It takes
// precedence over HTTPError when the body parses.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Code is the service-specific error code.
	Code string

	// Message is the sanitized, truncated service error message.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%s): %s", e.Code, e.Message)
}

// DecodeError indicates a single malformed item in a streaming response.
// It does not terminate the stream; subsequent events are still delivered.
type DecodeError struct {
	// Snippet is a sanitized, truncated excerpt of the malformed payload.
	Snippet string

	// Cause is the underlying parse error.
	Cause error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %v: %s", e.Cause, e.Snippet)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// ValidationError indicates invalid configuration or request construction.
// Validation errors are local and never reach the retry loop.
type ValidationError struct {
	// Field identifies which configuration field failed validation.
	Field string

	// Message is the human-readable error description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// EndpointError indicates a malformed base endpoint URL.
type EndpointError struct {
	// Endpoint is the offending endpoint value.
	Endpoint string

	// Cause is the underlying parse error.
	Cause error
}

// Error implements the error interface.
func (e *EndpointError) Error() string {
	return fmt.Sprintf("invalid endpoint URL %q: %v", e.Endpoint, e.Cause)
}

// Unwrap returns the underlying error.
func (e *EndpointError) Unwrap() error {
	return e.Cause
}

// IsRetryableStatus reports whether an HTTP status code is considered
// transient. The set is exhaustive and endpoint-agnostic.
func IsRetryableStatus(status int) bool {
	return classify(status) == classRetriable
}

// StatusCode extracts the HTTP status code from an HTTPError or APIError in
// err's chain. It returns 0 if err carries no status.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
