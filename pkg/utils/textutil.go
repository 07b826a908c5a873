// Package utils holds small text helpers shared across packages.
package utils

import (
	"strings"
	"unicode"
)

// NormalizeTitle lowercases a headline and strips punctuation so two
// outlets' versions of the same story tokenize alike.
func NormalizeTitle(title string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			sb.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// Tokens splits a normalized title into its unique words.
func Tokens(title string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(NormalizeTitle(title)) {
		set[w] = true
	}
	return set
}

// JaccardSimilarity measures word-set overlap between two titles in
// [0, 1]. Two empty titles count as identical.
func JaccardSimilarity(a, b string) float64 {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for w := range ta {
		if tb[w] {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

// Truncate cuts s to at most n runes, appending an ellipsis when it
// had to cut.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
