package integrations

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const httpTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when a package or resource doesn't exist upstream.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")

	// ErrUnauthorized is returned for 401 responses (missing or invalid token).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned for 403 responses that are not rate limits.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited is returned for 429 responses and exhausted GitHub quotas.
	ErrRateLimited = errors.New("rate limited")
)

// NewHTTPClient creates an HTTP client with a standard timeout for API requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// NormalizePkgName converts an npm package name to its canonical form:
// trimmed and lowercased. npm names are case-insensitive on lookup but
// registries store them lowercase.
func NormalizePkgName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// EscapePkgName encodes a package name for use as a registry path segment.
// Scoped names keep their leading "@" and encode the slash:
// "@types/node" becomes "@types%2fnode".
func EscapePkgName(name string) string {
	if strings.HasPrefix(name, "@") {
		if scope, pkg, ok := strings.Cut(name[1:], "/"); ok {
			return "@" + url.PathEscape(scope) + "%2f" + url.PathEscape(pkg)
		}
	}
	return url.PathEscape(name)
}
