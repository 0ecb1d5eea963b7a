// Package hash derives stable article identifiers and content fingerprints.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Scheme prefixes every derived id. Id derivation is append-only: a future
// change to URL normalization bumps the scheme so existing ids stay valid
// keys and never need migration.
const Scheme = "v1"

// Tracking query parameters stripped during normalization. Two feed entries
// that differ only in these point at the same article.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"fbclid":       true,
	"gclid":        true,
	"ref":          true,
}

// ArticleID derives the stable id for a raw article URL.
func ArticleID(rawURL string) string {
	sum := sha256.Sum256([]byte(NormalizeURL(rawURL)))
	return Scheme + ":" + hex.EncodeToString(sum[:])
}

// ContentHash fingerprints extracted content for sync idempotence checks.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// NormalizeURL canonicalizes a URL for identity purposes: lowercased
// scheme/host, no fragment, no tracking params, sorted query, no trailing
// slash. Unparseable input falls back to the trimmed raw string so the id
// is still deterministic.
func NormalizeURL(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for param := range q {
		if trackingParams[strings.ToLower(param)] {
			q.Del(param)
		}
	}
	u.RawQuery = encodeSorted(q)

	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// Domain extracts the lowercased host (minus a www prefix) from a URL.
func Domain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

func encodeSorted(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range q[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
