package cache

// Keyer generates cache keys for the cacheable remote calls.
// Centralizing key construction keeps formats consistent across the CLI
// and the server and prevents collisions between namespaces.
type Keyer interface {
	// HTTPKey generates a key for a raw HTTP response.
	HTTPKey(namespace, key string) string

	// SuggestionKey generates a key for a remote layout suggestion.
	// The payload hash covers items, geometry, and scoring weights so
	// that any input change produces a fresh key.
	SuggestionKey(orderID, payloadHash string) string

	// SignedURLKey generates a key for a signed artwork URL.
	SignedURLKey(assetRef string) string
}

// DefaultKeyer is the standard key generator.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard key generator.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// HTTPKey generates a key for HTTP response caching.
func (k *DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// SuggestionKey generates a key for suggestion caching.
func (k *DefaultKeyer) SuggestionKey(orderID, payloadHash string) string {
	return hashKey("suggest", orderID, payloadHash)
}

// SignedURLKey generates a key for signed URL caching.
func (k *DefaultKeyer) SignedURLKey(assetRef string) string {
	return hashKey("signedurl", assetRef)
}
