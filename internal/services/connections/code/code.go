// Package code defines the shareable peer connection code format.
//
// Codes are 8 characters drawn from a 32-character alphabet that excludes
// the visually ambiguous symbols 0, 1, I, and O.
package code

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Alphabet is the set of legal code characters.
const Alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// Length is the fixed code length.
const Length = 8

// Normalize trims surrounding whitespace and upper-cases a candidate code.
// Normalize is idempotent and must be applied before Validate.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Validate reports whether candidate is exactly Length characters, all drawn
// from Alphabet. Validation is case-sensitive: lowercase input is invalid.
func Validate(candidate string) bool {
	if len(candidate) != Length {
		return false
	}
	for i := 0; i < len(candidate); i++ {
		if !strings.ContainsRune(Alphabet, rune(candidate[i])) {
			return false
		}
	}
	return true
}

// Generate draws Length independent uniformly-random characters from
// Alphabet. The alphabet size divides 256, so masking a random byte selects
// each character with equal probability.
func Generate() (string, error) {
	var raw [Length]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	var b strings.Builder
	b.Grow(Length)
	for _, value := range raw {
		b.WriteByte(Alphabet[value&0x1F])
	}
	return b.String(), nil
}
