// Package util provides URL helpers shared by the crawler and the extractor.
package util

import (
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// ResolveURL resolves a potentially relative URL against a base URL.
func ResolveURL(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)

	// Ignore empty, javascript, mailto, or anchor links
	lower := strings.ToLower(href)
	if href == "" || strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(href, "#") {
		return nil
	}

	rel, err := url.Parse(href)
	if err != nil {
		log.Debug().Str("href", href).Err(err).Msg("Failed to parse href")
		return nil
	}
	return base.ResolveReference(rel)
}

// SameHost reports whether target is on exactly the given host (including any port).
// Subdomains do not match.
func SameHost(domain string, target *url.URL) bool {
	if target == nil || domain == "" {
		return false
	}
	return strings.EqualFold(target.Host, domain)
}

// SanitizeURL removes the fragment from a copy of u.
func SanitizeURL(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	sanitized := *u
	sanitized.Fragment = ""
	sanitized.RawFragment = ""
	return &sanitized
}
