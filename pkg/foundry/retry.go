package foundry

import (
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

// Retry limits. MaxBackoff also caps server-provided Retry-After hints.
const (
	maxRetriesLimit    = 10
	maxInitialBackoff  = 60 * time.Second
	maxBackoff         = 60 * time.Second
	backoffExponentCap = 30
)

// Jitter bounds: the computed exponential delay is multiplied by a factor
// drawn uniformly from [jitterMin, jitterMax] to desynchronize concurrent
// retriers. Server-provided Retry-After values are not jittered.
const (
	jitterMin = 0.75
	jitterMax = 1.25
)

// RetryConfig configures the request retry loop. The zero value is invalid;
// use DefaultRetryConfig for sensible defaults.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts after the initial
	// try (0 = no retries). Must be between 0 and 10.
	MaxRetries int

	// InitialBackoff is the base delay before the first retry, doubled on
	// each subsequent attempt. Must be > 0 and at most 60s.
	InitialBackoff time.Duration
}

// DefaultRetryConfig returns the default retry settings: 3 retries with a
// 500ms initial backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
	}
}

// Validate checks that the retry configuration is within bounds.
func (c RetryConfig) Validate() error {
	if c.MaxRetries < 0 || c.MaxRetries > maxRetriesLimit {
		return &ValidationError{
			Field:   "retry.max_retries",
			Message: fmt.Sprintf("must be between 0 and %d, got %d", maxRetriesLimit, c.MaxRetries),
		}
	}
	if c.InitialBackoff <= 0 || c.InitialBackoff > maxInitialBackoff {
		return &ValidationError{
			Field:   "retry.initial_backoff",
			Message: fmt.Sprintf("must be > 0 and at most %v, got %v", maxInitialBackoff, c.InitialBackoff),
		}
	}
	return nil
}

// classification is the result of mapping a response status code.
type classification int

const (
	classSuccess classification = iota
	classRetriable
	classFatal
)

// classify maps an HTTP status code to success, retriable, or fatal.
// Success iff 2xx. Retriable iff 429, 500, 502, 503, or 504. Everything
// else is fatal. The table is exhaustive and never special-cases endpoints.
func classify(status int) classification {
	if status >= 200 && status < 300 {
		return classSuccess
	}
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return classRetriable
	}
	return classFatal
}

// computeBackoff returns the jittered exponential delay for the given
// attempt. The exponent is clamped at 30 and the pre-jitter value capped at
// maxBackoff, so the result never exceeds maxBackoff*1.25 for any attempt.
func computeBackoff(attempt int, initial time.Duration) time.Duration {
	exp := attempt
	if exp > backoffExponentCap {
		exp = backoffExponentCap
	}
	backoff := float64(initial) * math.Pow(2, float64(exp))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}
	jitter := jitterMin + rand.Float64()*(jitterMax-jitterMin)
	return time.Duration(backoff * jitter)
}

// parseRetryAfter extracts a Retry-After header carrying a non-negative
// integer number of seconds, capped at maxBackoff. It returns 0, false when
// the header is absent or not a parseable non-negative integer, in which
// case the caller falls back to computed backoff.
func parseRetryAfter(resp *http.Response) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0, false
	}
	delay := time.Duration(seconds) * time.Second
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return delay, true
}

// retryDelay computes how long to wait before the next attempt. A parseable
// Retry-After header always wins over computed backoff.
func retryDelay(resp *http.Response, attempt int, initial time.Duration) time.Duration {
	if delay, ok := parseRetryAfter(resp); ok {
		return delay
	}
	return computeBackoff(attempt, initial)
}
