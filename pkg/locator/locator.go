package locator

import (
	"fmt"
	"strings"
)

// Normalizer resolves image references returned by the backend into
// addresses a client can fetch.
type Normalizer struct {
	base string
}

// New returns a Normalizer that prefixes relative references with base.
// The base must itself be an absolute http(s) address. Backslashes in it are
// rewritten the same way Normalize rewrites references.
func New(base string) (Normalizer, error) {
	base = strings.ReplaceAll(strings.TrimSpace(base), `\`, "/")
	if !IsAbsolute(base) {
		return Normalizer{}, fmt.Errorf("backend base address must start with http:// or https://, got %q", base)
	}
	return Normalizer{base: strings.TrimRight(base, "/")}, nil
}

// Base returns the configured base address without a trailing slash.
func (n Normalizer) Base() string {
	return n.base
}

// Normalize turns raw into a fetchable address. An empty input stays empty
// and means "no image". Backslashes written by a Windows host become forward
// slashes, absolute URLs pass through, anything else is joined to the base.
func (n Normalizer) Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	normalized := strings.ReplaceAll(raw, `\`, "/")
	if IsAbsolute(normalized) {
		return normalized
	}

	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	return n.base + normalized
}

// IsAbsolute reports whether s already carries an http or https scheme.
func IsAbsolute(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
