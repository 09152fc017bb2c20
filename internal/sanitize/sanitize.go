// Package sanitize normalizes and cleans user-supplied strings before they
// reach the credential store.
package sanitize

import (
	"strings"
	"unicode"
)

const (
	// DefaultMaxLength is the truncation limit used by SanitizeInput callers
	// that do not need a specific bound.
	DefaultMaxLength = 100

	nameMaxLength = 50
)

// NormalizeEmail lowercases and trims an email so it can be used as the
// canonical credential key.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// SanitizeName keeps only ASCII letters, whitespace, hyphens and apostrophes
// and truncates the result to 50 characters. The result never starts or
// ends with whitespace, which makes the function idempotent.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		if isNameRune(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(truncate(strings.TrimSpace(b.String()), nameMaxLength))
}

// SanitizeInput trims s, strips characters that are unsafe in markup
// (< > " ' &) and truncates the result to maxLength characters.
func SanitizeInput(s string, maxLength int) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '"', '\'', '&':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	return truncate(cleaned, maxLength)
}

func isNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r == '-', r == '\'':
		return true
	}
	return unicode.IsSpace(r)
}

func truncate(s string, n int) string {
	if n < 0 {
		n = 0
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
