// Package hashing produces the content fingerprints used to match captured
// AI lines against committed lines.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// Prefix is prepended to every hex digest.
const Prefix = "sha256:"

// Hash returns the SHA-256 fingerprint of content exactly as given.
func Hash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return Prefix + hex.EncodeToString(sum[:])
}

// NormalizedHash returns the fingerprint of content with every whitespace
// character removed, so reindented or reflowed lines still collide.
func NormalizedHash(content string) string {
	return Hash(Normalize(content))
}

// Normalize removes all whitespace from s.
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// IsBlank reports whether a line is empty after trimming. Blank lines are
// never hashed or counted.
func IsBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// Lines splits content on "\n", dropping the empty element produced by a
// trailing newline.
func Lines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
