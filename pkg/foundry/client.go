package foundry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/foundrylabs/foundry-go"

// requestIDHeader carries a per-call idempotency identifier. It is generated
// once per logical call and resent unchanged on every retry, so the service
// can deduplicate a retried create after a lost response.
const requestIDHeader = "x-ms-client-request-id"

// Client is the transport core for the service API. It resolves
// credentials, executes requests with retry and backoff, classifies
// responses, and hands streaming bodies to the event decoder.
//
// Client is safe for concurrent use.
type Client struct {
	endpoint   *url.URL
	apiVersion string
	creds      Credentials
	retry      RetryConfig
	http       *http.Client
	streamHTTP *http.Client
	userAgent  string
	limiter    rateLimiter
	metrics    *Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
}

// rateLimiter is the subset of *rate.Limiter the client uses.
type rateLimiter interface {
	Wait(ctx context.Context) error
}

// NewClient creates a Client from the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, &EndpointError{Endpoint: cfg.Endpoint, Cause: err}
	}
	if !endpoint.IsAbs() {
		return nil, &EndpointError{
			Endpoint: cfg.Endpoint,
			Cause:    fmt.Errorf("endpoint must be an absolute URL"),
		}
	}

	retry := cfg.Retry
	if retry == (RetryConfig{}) {
		retry = DefaultRetryConfig()
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	streamClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = defaultHTTPClient(defaultReadTimeout)
		// Streaming bodies outlive any whole-request deadline; reads are
		// bounded by the transport's idle timeouts instead.
		streamClient = defaultHTTPClient(0)
	}

	c := &Client{
		endpoint:   endpoint,
		apiVersion: apiVersion,
		creds:      cfg.Credentials,
		retry:      retry,
		http:       httpClient,
		streamHTTP: streamClient,
		userAgent:  cfg.UserAgent,
		metrics:    cfg.Metrics,
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
	}
	if cfg.Limiter != nil {
		c.limiter = cfg.Limiter
	}
	return c, nil
}

// NewClientFromEnv creates a Client configured from FOUNDRY_ENDPOINT and
// FOUNDRY_API_KEY.
func NewClientFromEnv() (*Client, error) {
	cfg, err := configFromEnv()
	if err != nil {
		return nil, err
	}
	return NewClient(cfg)
}

// Endpoint returns the configured base URL.
func (c *Client) Endpoint() *url.URL {
	return c.endpoint
}

// APIVersion returns the API version sent on every request.
func (c *Client) APIVersion() string {
	return c.apiVersion
}

// URL joins an API path to the base endpoint.
func (c *Client) URL(path string) (*url.URL, error) {
	u, err := c.endpoint.Parse(path)
	if err != nil {
		return nil, &EndpointError{Endpoint: path, Cause: err}
	}
	return u, nil
}

// Do executes a request with automatic retry. The body, when non-nil, is
// marshaled to JSON once and resent verbatim on every attempt.
//
// Per attempt: credentials are resolved fresh (the token cache makes this
// cheap while the token is valid), the request is sent, and the status
// classified. Success returns the response with its body unread. Retriable
// statuses wait the computed backoff (a parseable Retry-After header wins)
// and loop; fatal statuses and exhaustion build the final error from the
// sanitized body. Transport-level send failures are terminal.
//
// The caller owns the returned response body and must close it.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	return c.execute(ctx, method, path, body, c.http)
}

// DoStream executes a POST request whose response is a server-sent-event
// stream. The retry loop runs only until response headers succeed; the
// instant the body is flowing no further retries are possible. The returned
// EventStream is a lazy, forward-only, non-restartable sequence.
func (c *Client) DoStream(ctx context.Context, path string, body any) (*EventStream, error) {
	resp, err := c.execute(ctx, http.MethodPost, path, body, c.streamHTTP)
	if err != nil {
		return nil, err
	}
	return newEventStream(ctx, resp.Body), nil
}

// execute drives the attempt loop. The loop is total: every iteration
// returns on success, fatal classification, or exhaustion; the final
// iteration cannot fall through.
func (c *Client) execute(ctx context.Context, method, path string, body any, httpClient *http.Client) (*http.Response, error) {
	u, err := c.URL(path)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, &ValidationError{Field: "body", Message: fmt.Sprintf("cannot marshal request body: %v", err)}
		}
	}

	requestID := uuid.NewString()
	op := method + " " + path

	ctx, span := c.tracer.Start(ctx, "foundry.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		))
	defer span.End()

	var lastResp *http.Response

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelay(lastResp, attempt-1, c.retry.InitialBackoff)
			if c.metrics != nil {
				c.metrics.retries.Inc()
			}
			c.logger.Warn("retrying request",
				"method", method,
				"url", sanitizeURL(u),
				"attempt", attempt,
				"delay", delay,
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				span.SetStatus(codes.Error, "canceled")
				return nil, ctx.Err()
			}
		}

		resp, err := c.send(ctx, method, u, payload, requestID, httpClient)
		if err != nil {
			var authErr *AuthError
			if !errors.As(err, &authErr) {
				err = &TransportError{Op: op, Cause: err}
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "send failed")
			return nil, err
		}

		c.observe(ctx, method, u, resp.StatusCode)

		switch classify(resp.StatusCode) {
		case classSuccess:
			span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
			return resp, nil
		case classFatal:
			err := c.responseError(resp)
			span.RecordError(err)
			span.SetStatus(codes.Error, "fatal status")
			return nil, err
		case classRetriable:
			if attempt == c.retry.MaxRetries {
				err := c.responseError(resp)
				span.RecordError(err)
				span.SetStatus(codes.Error, "retries exhausted")
				return nil, err
			}
			// Keep headers for Retry-After; the body will not be returned.
			drainBody(resp)
			lastResp = resp
		}
	}

	// Unreachable: the final iteration always returns above.
	return nil, &TransportError{Op: op, Cause: fmt.Errorf("retry loop exited without result")}
}

// send performs one attempt: resolve credentials, apply the limiter, build
// and send the HTTP request.
func (c *Client) send(ctx context.Context, method string, u *url.URL, payload []byte, requestID string, httpClient *http.Client) (*http.Response, error) {
	auth, err := c.creds.Authorization(ctx)
	if err != nil {
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("api-version", c.apiVersion)
	req.Header.Set(requestIDHeader, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	return httpClient.Do(req)
}

// observe records one attempt's outcome in logs and metrics. Auth headers
// never reach the log line; query parameters are redacted.
func (c *Client) observe(ctx context.Context, method string, u *url.URL, status int) {
	if c.metrics != nil {
		c.metrics.requests.WithLabelValues(method, statusClass(status)).Inc()
	}
	level := slog.LevelDebug
	if status >= 400 {
		level = slog.LevelWarn
	}
	c.logger.Log(ctx, level, "request",
		"method", method,
		"url", sanitizeURL(u),
		"status", status,
	)
}

// serviceErrorEnvelope is the structured error body shape
// {"error":{"code":..., "message":...}}.
type serviceErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// responseError builds the final error for a failed response. A body that
// parses as a service error envelope produces an *APIError; anything else
// an *HTTPError with the sanitized, truncated body. The response body is
// consumed and closed.
func (c *Client) responseError(resp *http.Response) error {
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		raw = nil
	}
	body := string(raw)

	var envelope serviceErrorEnvelope
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Code != "" {
		message := envelope.Error.Message
		if message == "" {
			message = body
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       envelope.Error.Code,
			Message:    sanitizeAndTruncate(message),
		}
	}

	return &HTTPError{
		StatusCode: resp.StatusCode,
		Message:    sanitizeAndTruncate(body),
	}
}

// drainBody discards and closes a response body so the connection can be
// reused for the next attempt.
func drainBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
}

// DecodeResponse unmarshals a successful response body into v and closes
// the body. A body that fails to parse yields a *DecodeError.
func DecodeResponse(resp *http.Response, v any) error {
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: "read response", Cause: err}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &DecodeError{
			Snippet: sanitizeAndTruncate(string(raw)),
			Cause:   err,
		}
	}
	return nil
}
