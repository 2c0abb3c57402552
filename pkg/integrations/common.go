package integrations

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// httpTimeout bounds a single request end to end. Imposition submissions
// render files server-side before answering, so this is generous; callers
// tighten it per call through the request context.
const httpTimeout = 30 * time.Second

var (
	// ErrNotFound is returned when a run, order, or asset doesn't exist on the remote side.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")

	// ErrRejected is returned when the remote service refuses a request outright
	// (4xx other than 404 and 429). Rejected requests must not be retried as-is.
	ErrRejected = errors.New("request rejected")
)

// NewHTTPClient creates an HTTP client with a standard timeout for service requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// JoinURL appends path segments to a base URL, percent-encoding each segment.
// The base is used as-is; segments are separated by single slashes.
func JoinURL(base string, segments ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSuffix(base, "/"))
	for _, s := range segments {
		b.WriteString("/")
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// URLEncode percent-encodes a string for use in URL queries.
// This is a convenience wrapper around [url.QueryEscape].
func URLEncode(s string) string { return url.QueryEscape(s) }

// parseRetryAfter reads a Retry-After header value in seconds.
// Returns 0 for absent, malformed, or HTTP-date values.
func parseRetryAfter(header string) int {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || seconds < 0 {
		return 0
	}
	return seconds
}
