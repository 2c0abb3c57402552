// Package integrations provides HTTP clients for the remote production
// services the planner and orchestrator talk to.
//
// # Overview
//
// Each remote service has its own subpackage:
//
//   - [imposer]: the remote imposition (file layout) service
//   - [optimizer]: the external layout suggestion service
//   - [assets]: signed download URL resolution for print assets
//
// # Client Pattern
//
// All service clients follow a consistent pattern:
//
//	client := imposer.NewClient(baseURL, cache, nil)
//	outcome, err := client.Submit(ctx, request)
//
// Clients handle:
//   - HTTP requests with retry for transient failures
//   - Response caching where responses are stable (byte-oriented, TTL-bounded)
//   - Service-specific payload shapes and status vocabularies
//
// # Shared Infrastructure
//
// The [Client] type provides shared HTTP functionality used by all service
// clients: default headers, JSON encoding and decoding, status mapping, and
// read-through caching via [cache.Cache].
//
// # Error Mapping
//
// Remote responses map onto a small error vocabulary:
//
//   - 404 returns [ErrNotFound]
//   - 429 returns a rate-limit error carrying the Retry-After value
//   - 5xx and transport failures return retryable wrappers of [ErrNetwork]
//   - other 4xx returns a rejection error; the request must not be retried
//
// [imposer]: github.com/rollfed/gangrun/pkg/integrations/imposer
// [optimizer]: github.com/rollfed/gangrun/pkg/integrations/optimizer
// [assets]: github.com/rollfed/gangrun/pkg/integrations/assets
// [cache.Cache]: github.com/rollfed/gangrun/pkg/cache.Cache
package integrations
