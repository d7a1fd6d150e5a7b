package chunking

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrUnparsable is returned when a response matches none of the
// accepted shapes; callers fall back to paragraph chunking.
var ErrUnparsable = errors.New("response matches no accepted chunk shape")

// ParsedChunk is the canonical in-memory chunk representation shared
// by all response shapes.
type ParsedChunk struct {
	Text  string  `json:"text"`
	Topic *string `json:"topic"`
	Type  string  `json:"type"`
}

type chunkEnvelope struct {
	Chunks []ParsedChunk `json:"chunks"`
}

// ParseResponse decodes an LLM chunking response. Four shapes are
// accepted, tried in order:
//
//  1. {"chunks": [{text, topic, type}, ...]}
//  2. [{text, topic, type}, ...]
//  3. {text, topic, type} as a one-element list
//  4. prose with a JSON fragment embedded, largest balanced {} or []
//
// Anything else returns ErrUnparsable.
func ParseResponse(response string) ([]ParsedChunk, error) {
	s := strings.TrimSpace(response)
	if s == "" {
		return nil, ErrUnparsable
	}

	if chunks, ok := parseDirect(s); ok {
		return chunks, nil
	}

	if fragment := extractBalanced(s); fragment != "" && fragment != s {
		if chunks, ok := parseDirect(fragment); ok {
			return chunks, nil
		}
	}

	return nil, ErrUnparsable
}

// parseDirect tries shapes 1-3 on an exact JSON document.
func parseDirect(s string) ([]ParsedChunk, bool) {
	switch s[0] {
	case '{':
		var env chunkEnvelope
		if err := json.Unmarshal([]byte(s), &env); err == nil && env.Chunks != nil {
			return env.Chunks, true
		}

		var single ParsedChunk
		if err := json.Unmarshal([]byte(s), &single); err == nil && strings.TrimSpace(single.Text) != "" {
			return []ParsedChunk{single}, true
		}
	case '[':
		var list []ParsedChunk
		if err := json.Unmarshal([]byte(s), &list); err == nil {
			return list, true
		}
	}
	return nil, false
}

// extractBalanced returns the largest balanced {...} or [...] substring,
// or "" when none exists. String literals are skipped so braces inside
// JSON strings do not break the depth count.
func extractBalanced(s string) string {
	best := ""
	for start := 0; start < len(s); start++ {
		open := s[start]
		if open != '{' && open != '[' {
			continue
		}
		if end := matchBalanced(s, start); end > 0 {
			if candidate := s[start : end+1]; len(candidate) > len(best) {
				best = candidate
			}
			// Nested fragments are always shorter; skip past this one.
			start = end
		}
	}
	return best
}

// matchBalanced scans from an opening bracket at start and returns the
// index of its matching close, or -1.
func matchBalanced(s string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
			if depth < 0 {
				return -1
			}
		}
	}
	return -1
}

// CanonicalJSON serializes chunks to the canonical shape (1). Parsing
// the output yields the same chunks back.
func CanonicalJSON(chunks []ParsedChunk) ([]byte, error) {
	if chunks == nil {
		chunks = []ParsedChunk{}
	}
	return json.Marshal(chunkEnvelope{Chunks: chunks})
}

// ParagraphFallback splits clean text on blank lines into body chunks
// with no topic. It is deterministic and always yields at least one
// chunk for non-empty input.
func ParagraphFallback(cleanText string) []ParsedChunk {
	var chunks []ParsedChunk
	for _, para := range strings.Split(cleanText, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		chunks = append(chunks, ParsedChunk{Text: para, Type: TypeBody})
	}
	return chunks
}
