// Package utils provides utility functions for the application.
package utils

import (
	"strings"
	"unicode"
)

// DefaultCountryCode is prepended to bare national numbers that arrive
// without a country prefix. Overridable at startup from config.
var DefaultCountryCode = "1"

// NormalizePhone canonicalizes a phone number to the wire format used
// everywhere in the system: a leading '+' followed by country code and
// national digits, no separators. Returns "" when the input has no usable
// digits.
//
// Accepted inputs include "+15551234567", "15551234567", "(555) 123-4567",
// "555.123.4567" and "whatsapp:+15551234567" style prefixes.
func NormalizePhone(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	// Gateways prefix the channel name, e.g. "whatsapp:+1555...".
	if idx := strings.LastIndex(s, ":"); idx >= 0 {
		s = s[idx+1:]
	}

	hadPlus := strings.HasPrefix(strings.TrimSpace(s), "+")

	var digits strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if d == "" {
		return ""
	}

	if hadPlus {
		return "+" + d
	}

	// Bare 10-digit national number: assume default country code.
	if len(d) == 10 {
		return "+" + DefaultCountryCode + d
	}
	// 11 digits starting with the default country code.
	if len(d) == len(DefaultCountryCode)+10 && strings.HasPrefix(d, DefaultCountryCode) {
		return "+" + d
	}

	return "+" + d
}

// SamePhone reports whether two raw phone strings canonicalize to the same
// wire number.
func SamePhone(a, b string) bool {
	na, nb := NormalizePhone(a), NormalizePhone(b)
	return na != "" && na == nb
}
