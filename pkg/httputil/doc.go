// Package httputil provides HTTP utilities for remote print service clients.
//
// # Overview
//
// This package provides infrastructure used by all remote service clients:
//
//   - [Retry]: Automatic retry with exponential backoff
//
// # Retry
//
// [Retry] wraps HTTP requests with automatic retry for transient failures:
//
//   - Network errors
//   - 5xx server errors
//   - 429 rate limit responses
//
// It uses exponential backoff to avoid hammering a recovering service:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    return client.fetch(url)
//	})
//
// Only errors wrapped in [RetryableError] are retried. Permanent failures
// such as 4xx rejections return immediately so the caller can surface them.
//
// # Configuration
//
// Default settings are suitable for most use cases:
//
//   - Max retries: 3
//   - Base backoff: 1 second
//
// Response caching lives in the cache package; clients compose the two.
package httputil
