package foundry

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"
)

// DefaultAPIVersion is the service API version requested when none is
// configured.
const DefaultAPIVersion = "2025-01-01-preview"

// Default transport timeouts. Streaming requests run without a
// whole-request deadline; the transport's idle timeouts bound each read.
const (
	defaultConnectTimeout = 10 * time.Second
	defaultReadTimeout    = 60 * time.Second
)

// Environment variables honored by NewClientFromEnv.
const (
	envEndpoint = "FOUNDRY_ENDPOINT"
	envAPIKey   = "FOUNDRY_API_KEY"
)

// Config configures a Client.
type Config struct {
	// Endpoint is the service base URL, e.g.
	// "https://my-resource.services.ai.example.com". Required.
	Endpoint string

	// Credentials authenticates requests. Required.
	Credentials Credentials

	// APIVersion is sent on every request. Defaults to DefaultAPIVersion.
	APIVersion string

	// Retry configures the attempt loop. Defaults to DefaultRetryConfig().
	Retry RetryConfig

	// HTTPClient overrides the transport. When nil a client with the
	// default timeouts is built. Streaming requests always go through a
	// transport without a whole-request deadline.
	HTTPClient *http.Client

	// UserAgent is sent on every request when non-empty.
	UserAgent string

	// Limiter optionally throttles outgoing attempts client-side.
	Limiter *rate.Limiter

	// Metrics optionally records request and retry counters.
	Metrics *Metrics

	// Logger receives per-attempt structured logs. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Validate checks the configuration is complete and within bounds.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return &ValidationError{Field: "endpoint", Message: "endpoint is required"}
	}
	if c.Credentials == nil {
		return &ValidationError{Field: "credentials", Message: "credentials are required"}
	}
	retry := c.Retry
	if retry == (RetryConfig{}) {
		retry = DefaultRetryConfig()
	}
	if err := retry.Validate(); err != nil {
		return err
	}
	return nil
}

// configFromEnv builds a Config from FOUNDRY_ENDPOINT and FOUNDRY_API_KEY.
func configFromEnv() (Config, error) {
	endpoint := os.Getenv(envEndpoint)
	if endpoint == "" {
		return Config{}, &ValidationError{
			Field:   "endpoint",
			Message: fmt.Sprintf("%s is not set", envEndpoint),
		}
	}
	key := os.Getenv(envAPIKey)
	if key == "" {
		return Config{}, &ValidationError{
			Field:   "credentials",
			Message: fmt.Sprintf("%s is not set", envAPIKey),
		}
	}
	return Config{
		Endpoint:    endpoint,
		Credentials: APIKeyCredentials{APIKey: key},
	}, nil
}

// defaultHTTPClient builds the transport used when none is supplied.
// Pooling, TLS, and DNS stay with net/http; this layer only sets timeouts.
func defaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   defaultConnectTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: defaultConnectTimeout,
		},
	}
}
