package util

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns the NFKD form of s, so that visually identical input
// typed on different keyboards compares and hashes the same.
func Normalize(s string) string {
	return norm.NFKD.String(s)
}

// NormalizeIdentifier normalizes a login identifier (username or email):
// NFKD, surrounding space trimmed, case folded.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(Normalize(s)))
}
