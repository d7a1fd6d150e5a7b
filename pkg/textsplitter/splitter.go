// Package textsplitter cuts article text at approximate sentence
// boundaries. The chunker uses it to keep LLM-produced chunks under
// the storage size budget.
package textsplitter

import "strings"

// SplitAtSentences cuts text into pieces of at most maxChars,
// preferring sentence boundaries and falling back to a hard cut when a
// single sentence exceeds the budget. Text already within the budget
// is returned as a single piece.
func SplitAtSentences(text string, maxChars int) []string {
	if len(text) <= maxChars {
		return []string{text}
	}

	var (
		parts   []string
		current strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			parts = append(parts, s)
		}
		current.Reset()
	}

	for _, sentence := range Sentences(text) {
		for len(sentence) > maxChars {
			flush()
			parts = append(parts, strings.TrimSpace(sentence[:maxChars]))
			sentence = strings.TrimSpace(sentence[maxChars:])
		}
		if current.Len() > 0 && current.Len()+len(sentence)+1 > maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	flush()
	return parts
}

// Sentences is a cheap splitter on terminal punctuation followed by
// whitespace. It does not try to understand abbreviations; consumers
// only need approximate boundaries.
func Sentences(text string) []string {
	var (
		sentences []string
		start     int
	)
	for i := 0; i < len(text)-1; i++ {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] == ' ' || text[i+1] == '\n' {
				if s := strings.TrimSpace(text[start : i+1]); s != "" {
					sentences = append(sentences, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
