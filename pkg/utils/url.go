package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"unicode"
)

// HashURL creates a SHA256 hash of a URL or other identifier string,
// useful for consistent, safe cache keys.
func HashURL(raw string) string {
	h := sha256.New()
	h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}

// DomainFromURL returns the host of a URL with any leading "www." stripped.
// It returns "" for unparseable input.
func DomainFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}

// SanitizeQueryTerm reduces a query term to its lowercase alphanumeric
// characters, for use in file and blob paths.
func SanitizeQueryTerm(term string) string {
	var b strings.Builder
	for _, r := range term {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
