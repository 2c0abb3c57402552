// Package assets resolves print asset references to signed download URLs.
//
// # Overview
//
// Items carry storage references (relative object keys), but the imposition
// service needs time-limited signed URLs it can fetch directly. The file
// storage gateway signs URLs on demand; this package wraps that exchange.
//
// # Caching
//
// Signing is cheap but chatty: a batch of runs can reference the same asset
// dozens of times. Resolved URLs are cached in an explicit, TTL-bounded
// cache handed to the resolver, never in package-level state. Keep the TTL
// comfortably below the signing horizon so a cached URL never outlives its
// signature.
package assets

import (
	"context"
	"time"

	"github.com/rollfed/gangrun/pkg/cache"
	"github.com/rollfed/gangrun/pkg/errors"
	"github.com/rollfed/gangrun/pkg/httputil"
	"github.com/rollfed/gangrun/pkg/integrations"
)

// DefaultTTL keeps cached URLs well inside a one hour signing horizon.
const DefaultTTL = 45 * time.Minute

// Resolver exchanges asset references for signed download URLs.
//
// All methods are safe for concurrent use by multiple goroutines.
type Resolver struct {
	*integrations.Client
	baseURL string
	cache   cache.Cache
	keyer   cache.Keyer
	ttl     time.Duration
}

// NewResolver creates a resolver against the given storage gateway URL.
// A nil backend disables caching; a zero ttl falls back to [DefaultTTL].
func NewResolver(baseURL string, backend cache.Cache, ttl time.Duration) *Resolver {
	if backend == nil {
		backend = cache.NewNullCache()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Resolver{
		Client:  integrations.NewClient(backend, "assets", ttl, nil),
		baseURL: baseURL,
		cache:   backend,
		keyer:   cache.NewDefaultKeyer(),
		ttl:     ttl,
	}
}

type signResponse struct {
	URL string `json:"url"`
}

// SignedURL resolves one asset reference to a signed download URL.
//
// The reference is validated before any network call; the returned URL is
// validated before it is cached or handed to callers.
//
// Returns [integrations.ErrNotFound] when the asset does not exist.
func (r *Resolver) SignedURL(ctx context.Context, assetRef string) (string, error) {
	if err := errors.ValidateAssetRef(assetRef); err != nil {
		return "", err
	}

	key := r.keyer.SignedURLKey(assetRef)
	if data, ok, _ := r.cache.Get(ctx, key); ok {
		return string(data), nil
	}

	var resp signResponse
	url := integrations.JoinURL(r.baseURL, "sign") + "?ref=" + integrations.URLEncode(assetRef)
	err := httputil.RetryWithBackoff(ctx, func() error {
		return r.Get(ctx, url, &resp)
	})
	if err != nil {
		return "", err
	}
	if err := errors.ValidateURL(resp.URL); err != nil {
		return "", err
	}

	_ = r.cache.Set(ctx, key, []byte(resp.URL), r.ttl)
	return resp.URL, nil
}
