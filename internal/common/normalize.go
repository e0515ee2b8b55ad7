package common

import (
	"net/url"
	"strings"
	"unicode"
)

// NormalizeWebsite canonicalizes a website URL for identity comparison.
// Scheme and "www." prefix are stripped, the host is lowercased, and any
// trailing slash on the path is removed. Returns "" for unparsable input.
func NormalizeWebsite(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return ""
	}
	host := strings.ToLower(parsed.Host)
	host = strings.TrimPrefix(host, "www.")
	path := strings.TrimRight(parsed.Path, "/")
	return host + path
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone reduces a phone number to digits only, dropping a leading
// country code "1" from 11-digit North American numbers.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	result := digits.String()
	if len(result) == 11 && strings.HasPrefix(result, "1") {
		result = result[1:]
	}
	return result
}

// NormalizeName lowercases a name, collapses whitespace, and strips common
// corporate suffixes so "Acme Homes, LLC" and "acme homes" compare equal.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, punct := range []string{",", ".", "'", "\""} {
		name = strings.ReplaceAll(name, punct, "")
	}
	name = strings.Join(strings.Fields(name), " ")
	for _, suffix := range []string{" llc", " inc", " ltd", " lp", " corp", " corporation", " company", " co"} {
		name = strings.TrimSuffix(name, suffix)
	}
	return strings.TrimSpace(name)
}

// NormalizeLocation lowercases and trims a city or state token.
func NormalizeLocation(loc string) string {
	return strings.ToLower(strings.TrimSpace(loc))
}
