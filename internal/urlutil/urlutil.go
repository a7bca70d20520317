// Package urlutil normalizes URLs and hostnames for cache keys,
// blocklist entries, and candidate filtering.
package urlutil

import (
	"net/url"
	"strings"
)

// NormalizeHost lowercases a hostname and strips a leading "www.".
func NormalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	return strings.TrimPrefix(host, "www.")
}

// Domain extracts the normalized hostname from a URL. Malformed URLs
// normalize to "", which callers treat as not cacheable / ineligible.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return NormalizeHost(u.Hostname())
}
