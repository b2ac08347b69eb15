package foundry

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// RedactionMarker replaces secret-shaped substrings in sanitized text.
const RedactionMarker = "[REDACTED]"

// maxErrorMessageLen caps error messages surfaced to callers or logs.
// Applied after sanitization so a secret can never straddle the cut.
const maxErrorMessageLen = 1000

const truncationSuffix = "... (truncated)"

// secretPatterns matches secret-shaped substrings in arbitrary text. Each
// pattern consumes up to its natural delimiter (whitespace, quote, comma)
// so the full secret is replaced, never a prefix of it.
var secretPatterns = []struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}{
	{
		name:        "bearer_token",
		regex:       regexp.MustCompile(`Bearer\s+[^\s"',]+`),
		replacement: "Bearer " + RedactionMarker,
	},
	{
		name:        "api_key_prefix",
		regex:       regexp.MustCompile(`\bsk-[A-Za-z0-9_-]+`),
		replacement: RedactionMarker,
	},
	{
		// JWT header prefix; case-sensitive on purpose.
		name:        "jwt",
		regex:       regexp.MustCompile(`\beyJ[A-Za-z0-9._-]*`),
		replacement: RedactionMarker,
	},
	{
		name:        "api_key_header",
		regex:       regexp.MustCompile(`(?i)(api-key\s*[:=]\s*)[^\s"',]+`),
		replacement: "${1}" + RedactionMarker,
	},
	{
		name:        "subscription_key_header",
		regex:       regexp.MustCompile(`(?i)(Ocp-Apim-Subscription-Key\s*[:=]\s*)[^\s"',]+`),
		replacement: "${1}" + RedactionMarker,
	},
}

// Sanitize removes secret-shaped substrings from text, replacing each with
// RedactionMarker. It is idempotent: sanitizing already-sanitized text
// returns it unchanged. Text containing no secret patterns passes through
// untouched.
func Sanitize(s string) string {
	result := s
	for _, p := range secretPatterns {
		result = p.regex.ReplaceAllString(result, p.replacement)
	}
	return result
}

// sanitizeAndTruncate applies Sanitize then caps the result at
// maxErrorMessageLen. Sanitization must run first: truncating before
// redaction can leave a secret partially exposed or push the pattern past
// the cut where it escapes detection.
func sanitizeAndTruncate(s string) string {
	clean := Sanitize(s)
	if len(clean) <= maxErrorMessageLen {
		return clean
	}
	cut := maxErrorMessageLen
	for cut > 0 && !utf8.RuneStart(clean[cut]) {
		cut--
	}
	return clean[:cut] + truncationSuffix
}

// sensitiveParams are query parameter names redacted from logged URLs.
// Matched case-insensitively as substrings.
var sensitiveParams = []string{
	"api_key",
	"api-key",
	"apikey",
	"token",
	"password",
	"auth",
	"secret",
	"key",
	"credential",
	"sig",
}

// sanitizeURL removes sensitive query parameter values from a URL before it
// is logged.
func sanitizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	for param := range q {
		if isSensitiveParam(param) {
			q.Set(param, RedactionMarker)
		}
	}
	safe := *u
	safe.RawQuery = q.Encode()
	return safe.String()
}

func isSensitiveParam(param string) bool {
	lower := strings.ToLower(param)
	for _, sensitive := range sensitiveParams {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}
