package foundry

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// CognitiveServicesScope is the OAuth2 scope requested for token-based
// authentication against the service.
const CognitiveServicesScope = "https://cognitiveservices.azure.com/.default"

// expiryBuffer is subtracted from a token's real expiry so it is refreshed
// proactively, not reactively after a request fails with 401.
const expiryBuffer = 60 * time.Second

// Credentials is the interface all credential types implement. It provides
// a unified way to resolve an Authorization header value.
//
// Implementations must be safe for concurrent use: many in-flight requests
// may resolve the same credential at once.
type Credentials interface {
	// Authorization resolves the credential to an Authorization header
	// value (e.g., "Bearer <token>"). It fails with an *AuthError if token
	// acquisition fails.
	Authorization(ctx context.Context) (string, error)

	// Redacted returns a safe-to-log description of the credential with
	// any sensitive values masked.
	Redacted() string
}

// APIKeyCredentials authenticates with a static API key. Resolution is
// synchronous: no I/O and no locking.
type APIKeyCredentials struct {
	// APIKey is the service API key.
	APIKey string
}

// Authorization returns "Bearer <key>".
func (c APIKeyCredentials) Authorization(ctx context.Context) (string, error) {
	if c.APIKey == "" {
		return "", &AuthError{Message: "API key is empty"}
	}
	return "Bearer " + c.APIKey, nil
}

// Redacted returns a masked description of the API key.
func (c APIKeyCredentials) Redacted() string {
	return "APIKey: " + maskSecret(c.APIKey)
}

// AccessToken is a bearer token with its expiry time.
type AccessToken struct {
	// Value is the raw token.
	Value string

	// ExpiresAt is when the token stops being valid. A zero value means
	// the provider did not report an expiry; the token is then not cached
	// beyond the call that fetched it.
	ExpiresAt time.Time
}

// TokenProvider acquires access tokens for a set of scopes. Implementations
// typically wrap a platform identity library or an OAuth2 token endpoint.
type TokenProvider interface {
	Token(ctx context.Context, scopes []string) (AccessToken, error)
}

// TokenProviderFunc adapts a function to the TokenProvider interface.
type TokenProviderFunc func(ctx context.Context, scopes []string) (AccessToken, error)

// Token implements TokenProvider.
func (f TokenProviderFunc) Token(ctx context.Context, scopes []string) (AccessToken, error) {
	return f(ctx, scopes)
}

// tokenCache holds at most one cached token. It is exclusively owned by the
// TokenCredentials that created it and shared by every copy of that value.
type tokenCache struct {
	mu    sync.Mutex
	token AccessToken
	valid bool
}

// TokenCredentials authenticates by fetching tokens from a TokenProvider
// and caching them until shortly before expiry.
//
// The cache lock is held across the entire check-then-refresh sequence,
// including the provider call. When N concurrent callers race on an empty
// or expired cache, exactly one provider fetch occurs and the other N-1
// observe the freshly cached token. Copies of a TokenCredentials share the
// same cache instance.
type TokenCredentials struct {
	provider TokenProvider
	scopes   []string
	cache    *tokenCache
}

// NewTokenCredentials creates token-backed credentials using the default
// Cognitive Services scope.
func NewTokenCredentials(provider TokenProvider) *TokenCredentials {
	return NewTokenCredentialsWithScopes(provider, []string{CognitiveServicesScope})
}

// NewTokenCredentialsWithScopes creates token-backed credentials requesting
// the given scopes.
func NewTokenCredentialsWithScopes(provider TokenProvider, scopes []string) *TokenCredentials {
	return &TokenCredentials{
		provider: provider,
		scopes:   scopes,
		cache:    &tokenCache{},
	}
}

// Authorization returns "Bearer <token>", fetching a fresh token when the
// cache is empty or within the expiry buffer.
func (c *TokenCredentials) Authorization(ctx context.Context) (string, error) {
	c.cache.mu.Lock()
	defer c.cache.mu.Unlock()

	if c.cache.valid && !c.cache.token.ExpiresAt.IsZero() &&
		time.Now().Before(c.cache.token.ExpiresAt.Add(-expiryBuffer)) {
		return "Bearer " + c.cache.token.Value, nil
	}

	token, err := c.provider.Token(ctx, c.scopes)
	if err != nil {
		return "", &AuthError{Message: "token acquisition failed", Cause: err}
	}
	if token.ExpiresAt.IsZero() {
		// Providers that omit expiry often hand back JWTs; the exp claim
		// is authoritative enough for cache scheduling.
		token.ExpiresAt = jwtExpiry(token.Value)
	}

	c.cache.token = token
	c.cache.valid = true
	return "Bearer " + token.Value, nil
}

// Redacted returns a safe-to-log description of the credential.
func (c *TokenCredentials) Redacted() string {
	return "TokenCredentials: scopes=" + strings.Join(c.scopes, ",")
}

// jwtExpiry extracts the exp claim from a JWT without verifying its
// signature. Returns the zero time if the token is not a JWT or carries no
// expiry. Used only for cache scheduling, never for validation.
func jwtExpiry(raw string) time.Time {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// oauth2Provider adapts an oauth2.TokenSource to the TokenProvider
// interface. The source's own scope configuration applies; the requested
// scopes are ignored.
type oauth2Provider struct {
	source oauth2.TokenSource
}

// TokenProviderFromOAuth2 wraps an oauth2.TokenSource (client credentials,
// refresh token, or any other flow) as a TokenProvider.
func TokenProviderFromOAuth2(source oauth2.TokenSource) TokenProvider {
	return oauth2Provider{source: source}
}

// Token implements TokenProvider.
func (p oauth2Provider) Token(ctx context.Context, scopes []string) (AccessToken, error) {
	tok, err := p.source.Token()
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Value: tok.AccessToken, ExpiresAt: tok.Expiry}, nil
}

// maskSecret returns a masked version of a secret, showing the first and
// last 4 characters for values long enough to stay unguessable.
func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}

// Compile-time interface implementation checks.
var (
	_ Credentials = APIKeyCredentials{}
	_ Credentials = (*TokenCredentials)(nil)
)
