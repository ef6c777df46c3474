package utils

import "strings"

// MaskSecret shows only the first and last four characters of a long
// secret so it can be identified in output without being disclosed.
func MaskSecret(s string) string {
	if len(s) <= 12 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", 8) + s[len(s)-4:]
}
