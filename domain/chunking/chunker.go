package chunking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/newsloom/newsloom/pkg/logger"
	"github.com/newsloom/newsloom/pkg/ollama"
	"github.com/newsloom/newsloom/pkg/textsplitter"
)

const promptTemplate = `Segment the following news article into semantically coherent chunks.

Respond with JSON only, in this exact schema:
{"chunks": [{"text": "...", "topic": "...", "type": "intro|body|conclusion"}]}

Rules:
- Each chunk is a contiguous span of the article text.
- "topic" is a short phrase naming what the chunk is about.
- "type" is "intro" for the opening, "conclusion" for the closing, "body" otherwise.
- Do not add commentary outside the JSON.

Title: %s

Article:
%s`

// Chunker turns an article body into normalized chunks using a single
// LLM call, falling back to paragraph splitting when the response is
// unusable.
type Chunker struct {
	llm      *ollama.Client
	model    string
	maxChars int
	log      *slog.Logger
}

// NewChunker creates a Chunker.
func NewChunker(llm *ollama.Client, model string, maxChars int, log *slog.Logger) *Chunker {
	if maxChars <= 0 {
		maxChars = 4000
	}
	return &Chunker{
		llm:      llm,
		model:    model,
		maxChars: maxChars,
		log:      log.With(logger.Scope("chunker")),
	}
}

// Chunk segments an article body. usedFallback reports that the LLM
// response failed to parse and paragraph chunking was used instead; a
// returned error means the LLM call itself failed.
func (c *Chunker) Chunk(ctx context.Context, title, cleanText string) (chunks []ParsedChunk, usedFallback bool, err error) {
	prompt := fmt.Sprintf(promptTemplate, title, cleanText)

	response, err := c.llm.Generate(ctx, c.model, prompt)
	if err != nil {
		return nil, false, fmt.Errorf("chunk: %w", err)
	}

	parsed, parseErr := ParseResponse(response)
	if parseErr != nil {
		c.log.Warn("chunk response unparsable, using paragraph fallback",
			slog.Int("response_len", len(response)))
		return c.Normalize(ParagraphFallback(cleanText)), true, nil
	}

	normalized := c.Normalize(parsed)
	if len(normalized) == 0 {
		// Parsed fine but everything was empty; same treatment as a
		// parse failure.
		return c.Normalize(ParagraphFallback(cleanText)), true, nil
	}
	return normalized, false, nil
}

// Normalize trims chunk text, drops empties, splits oversized chunks
// at sentence boundaries, clamps types to the enum and leaves indices
// dense by construction.
func (c *Chunker) Normalize(chunks []ParsedChunk) []ParsedChunk {
	out := make([]ParsedChunk, 0, len(chunks))
	for _, ch := range chunks {
		text := strings.TrimSpace(ch.Text)
		if text == "" {
			continue
		}

		topic := ch.Topic
		if topic != nil && strings.TrimSpace(*topic) == "" {
			topic = nil
		}

		for _, part := range textsplitter.SplitAtSentences(text, c.maxChars) {
			out = append(out, ParsedChunk{
				Text:  part,
				Topic: topic,
				Type:  clampType(ch.Type),
			})
		}
	}
	return out
}

func clampType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case TypeIntro:
		return TypeIntro
	case TypeBody:
		return TypeBody
	case TypeConclusion:
		return TypeConclusion
	case "":
		return TypeBody
	default:
		return TypeOther
	}
}
