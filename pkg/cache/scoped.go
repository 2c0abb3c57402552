package cache

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation.
// This is useful when several shops or presses share one Redis instance
// and need separate cache namespaces.
//
// Example usage:
//
//	// Shop-specific keys
//	shopKeyer := NewScopedKeyer(NewDefaultKeyer(), "shop:acme:")
//
//	// Global keys
//	globalKeyer := NewDefaultKeyer()
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// HTTPKey generates a prefixed key for HTTP response caching.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// SuggestionKey generates a prefixed key for suggestion caching.
func (k *ScopedKeyer) SuggestionKey(orderID, payloadHash string) string {
	return k.prefix + k.inner.SuggestionKey(orderID, payloadHash)
}

// SignedURLKey generates a prefixed key for signed URL caching.
func (k *ScopedKeyer) SignedURLKey(assetRef string) string {
	return k.prefix + k.inner.SignedURLKey(assetRef)
}
