package utils

import (
	"strings"
	"unicode"
)

// SanitizeString removes control characters and surrounding whitespace.
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// NormalizeAddress turns a scanned or typed server address into host[:port],
// dropping any scheme and trailing slashes.
func NormalizeAddress(address string) string {
	address = SanitizeString(address)
	for _, scheme := range []string{"http://", "https://", "ws://", "wss://"} {
		if len(address) >= len(scheme) && strings.EqualFold(address[:len(scheme)], scheme) {
			address = address[len(scheme):]
			break
		}
	}
	return strings.TrimRight(address, "/")
}
