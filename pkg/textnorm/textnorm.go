// Package textnorm normalizes extracted article text for content-level
// dedup. Two articles with the same normalized-text hash are duplicates
// regardless of their URLs.
package textnorm

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var paragraphBreak = regexp.MustCompile(`\n[ \t\r]*\n`)

// Normalize applies NFC unicode normalization and collapses runs of
// whitespace to single spaces, keeping blank-line paragraph breaks
// (the chunking fallback splits on them). Case is preserved; hashing
// lowercases separately so display text stays readable.
func Normalize(s string) string {
	s = norm.NFC.String(s)

	paragraphs := paragraphBreak.Split(s, -1)
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if p = collapse(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}

func collapse(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeTitle normalizes a title the same way body text is
// normalized, additionally lowercasing it for stable comparison.
func NormalizeTitle(s string) string {
	return strings.ToLower(Normalize(s))
}

// Hash returns the hex SHA-256 of the lowercased normalized text,
// used as text_hash for content dedup.
func Hash(normalized string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(normalized)))
	return hex.EncodeToString(sum[:])
}

// WordCount counts whitespace-separated tokens in normalized text.
func WordCount(normalized string) int {
	return len(strings.Fields(normalized))
}

// EstimateTokens approximates LLM token usage for a text. Four
// characters per token is a workable average for news prose.
func EstimateTokens(s string) int {
	n := len(s) / 4
	if n == 0 && len(s) > 0 {
		n = 1
	}
	return n
}
