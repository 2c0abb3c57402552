package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateOrderID validates an order identifier for safety and correctness.
// Order IDs travel into remote service URLs and filenames, so the validation
// rules are intentionally conservative:
//   - No empty IDs
//   - No control characters
//   - No path traversal sequences (.., //, etc.)
//   - No null bytes
//   - Maximum length of 128 characters
func ValidateOrderID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "order id cannot be empty")
	}

	if len(id) > 128 {
		return New(ErrCodeInvalidInput, "order id too long (max 128 characters)")
	}

	// Check for control characters and null bytes
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "order id contains invalid control characters")
		}
	}

	// Check for path traversal patterns
	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidInput, "order id contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// layoutIDRegex matches valid layout identifiers: UUIDs plus the reserved
// suggestion id.
var layoutIDRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// ValidateLayoutID validates a layout identifier.
// Layout IDs are lowercase UUID strings or the reserved "ai-computed" id.
func ValidateLayoutID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidLayout, "layout id cannot be empty")
	}

	if len(id) > 64 {
		return New(ErrCodeInvalidLayout, "layout id too long (max 64 characters)")
	}

	if !layoutIDRegex.MatchString(id) {
		return New(ErrCodeInvalidLayout, "invalid layout id: %q", id)
	}

	return nil
}

// ValidateAssetRef validates an artwork asset reference for safety.
// Asset refs become object keys at the asset service, so path traversal
// and absolute paths are rejected.
//
// Validation rules:
//   - Ref cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidateAssetRef(ref string) error {
	if ref == "" {
		return New(ErrCodeInvalidInput, "asset ref cannot be empty")
	}

	const maxRefLength = 500
	if len(ref) > maxRefLength {
		return New(ErrCodeInvalidInput, "asset ref too long (max %d characters)", maxRefLength)
	}

	// Check for null bytes and control characters
	for _, r := range ref {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "asset ref contains invalid characters")
		}
	}

	// Must not be absolute path
	if strings.HasPrefix(ref, "/") {
		return New(ErrCodeInvalidInput, "asset ref must be relative (cannot start with /)")
	}

	// Check for path traversal
	if strings.Contains(ref, "..") {
		return New(ErrCodeInvalidInput, "asset ref cannot contain path traversal sequences (..)")
	}

	// No backslashes (potential Windows path injection)
	if strings.Contains(ref, "\\") {
		return New(ErrCodeInvalidInput, "asset ref cannot contain backslashes")
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

// dielineNameRegex matches valid dieline names.
var dielineNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._ -]*$`)

// ValidateDielineName validates a dieline name from a die library file.
func ValidateDielineName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidGeometry, "dieline name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidGeometry, "dieline name too long (max 128 characters)")
	}

	if !dielineNameRegex.MatchString(name) {
		return New(ErrCodeInvalidGeometry, "invalid dieline name: %q", name)
	}

	return nil
}
