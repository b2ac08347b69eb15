// Package foundry is the resilient transport core beneath the service's
// resource clients. It resolves and caches authentication tokens, executes
// HTTP calls with automatic retry and backoff, classifies success and
// failure, redacts secrets from error output, and decodes server-sent-event
// streaming responses into discrete events.
//
// # Usage
//
// Create a client with an API key:
//
//	client, err := foundry.NewClient(foundry.Config{
//	    Endpoint:    "https://my-resource.services.ai.example.com",
//	    Credentials: foundry.APIKeyCredentials{APIKey: key},
//	})
//	if err != nil {
//	    return err
//	}
//	resp, err := client.Do(ctx, http.MethodGet, "/assistants", nil)
//
// Or with token-backed credentials, which cache tokens and refresh them
// 60 seconds before expiry:
//
//	creds := foundry.NewTokenCredentials(
//	    foundry.TokenProviderFromOAuth2(tokenSource))
//	client, err := foundry.NewClient(foundry.Config{
//	    Endpoint:    endpoint,
//	    Credentials: creds,
//	})
//
// # Retry Behavior
//
// The client retries statuses 429, 500, 502, 503, and 504 with exponential
// backoff and jitter, honoring Retry-After headers (capped at 60s). All
// other non-2xx statuses fail immediately. Transport-level send failures
// (connection refused, timeout) are terminal: the http.Transport below may
// retry internally, but this layer does not resend after a partial send.
// Every logical call carries one x-ms-client-request-id across all of its
// attempts so the service can deduplicate retried creates.
//
// # Security
//
// Error bodies are sanitized before truncation: bearer tokens, sk- API
// keys, JWTs, and api-key style headers are replaced with [REDACTED].
// Authorization headers are never logged, and sensitive query parameters
// are redacted from logged URLs.
//
// # Streaming
//
// DoStream retries only until response headers succeed, then decodes the
// body incrementally. A malformed event is reported as a per-item error
// and the stream continues; losing the connection ends the stream with a
// terminal error. Decoding is insensitive to fragmentation: byte-at-a-time
// delivery produces the same events as a single read.
package foundry
