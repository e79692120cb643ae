package queue

import (
	"net/url"
	"strings"
)

// ComputeKey derives the identity key for a request from its method and URL.
// The URL is normalized (lowercase scheme and host, fragment stripped) so
// that trivially different spellings of the same target collapse to one key.
// Non-GET methods are prefixed so a POST and a GET to the same URL remain
// distinct work items.
func ComputeKey(method, rawURL string) string {
	key := normalizeURL(rawURL)

	m := strings.ToUpper(strings.TrimSpace(method))
	if m != "" && m != "GET" {
		key = m + "|" + key
	}
	return key
}

// normalizeURL canonicalizes a URL for identity purposes. Unparseable
// input falls back to the trimmed raw string so callers can still surface
// a descriptive validation error per key.
func normalizeURL(rawURL string) string {
	raw := strings.TrimSpace(rawURL)

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	return u.String()
}
