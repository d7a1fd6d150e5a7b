package chunking

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsloom/newsloom/pkg/ollama"
)

func TestNormalizeTrimsAndDrops(t *testing.T) {
	c := NewChunker(nil, "m", 4000, slog.Default())

	out := c.Normalize([]ParsedChunk{
		{Text: "  kept  ", Topic: strp("T"), Type: "intro"},
		{Text: "   ", Type: "body"},
		{Text: "", Type: "body"},
		{Text: "also kept", Topic: strp("  "), Type: "body"},
	})

	require.Len(t, out, 2)
	assert.Equal(t, "kept", out[0].Text)
	assert.Equal(t, "T", *out[0].Topic)
	assert.Nil(t, out[1].Topic)
}

func TestNormalizeClampsType(t *testing.T) {
	c := NewChunker(nil, "m", 4000, slog.Default())

	out := c.Normalize([]ParsedChunk{
		{Text: "a", Type: "INTRO"},
		{Text: "b", Type: "summary"},
		{Text: "c", Type: ""},
		{Text: "d", Type: "conclusion"},
	})

	require.Len(t, out, 4)
	assert.Equal(t, TypeIntro, out[0].Type)
	assert.Equal(t, TypeOther, out[1].Type)
	assert.Equal(t, TypeBody, out[2].Type)
	assert.Equal(t, TypeConclusion, out[3].Type)
}

func TestNormalizeSplitsOversized(t *testing.T) {
	sentence := strings.Repeat("word ", 19) + "end. "
	long := strings.TrimSpace(strings.Repeat(sentence, 12)) // ~1200 chars

	c := NewChunker(nil, "m", 300, slog.Default())
	out := c.Normalize([]ParsedChunk{{Text: long, Topic: strp("T"), Type: "body"}})

	require.Greater(t, len(out), 1)
	for i, ch := range out {
		assert.LessOrEqual(t, len(ch.Text), 300, "chunk %d", i)
		assert.Equal(t, "T", *ch.Topic, "split parts keep the source topic")
		// Splits land on sentence boundaries.
		assert.True(t, strings.HasSuffix(ch.Text, "end."), "chunk %d: %q", i, ch.Text[len(ch.Text)-10:])
	}
}

func TestChunkUsesFallbackOnProse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"response": "sorry, I cannot"})
	}))
	t.Cleanup(srv.Close)

	llm := ollama.NewClient(ollama.Config{BaseURL: srv.URL, MaxRetries: 1}, slog.Default())
	c := NewChunker(llm, "m", 4000, slog.Default())

	chunks, usedFallback, err := c.Chunk(context.Background(), "title", "first para\n\nsecond para")
	require.NoError(t, err)
	assert.True(t, usedFallback)
	require.Len(t, chunks, 2)
	assert.Equal(t, "first para", chunks[0].Text)
	assert.Equal(t, TypeBody, chunks[0].Type)
}

func TestChunkParsesLLMResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"response": `{"chunks":[{"text":"A","topic":"T","type":"intro"}]}`,
		})
	}))
	t.Cleanup(srv.Close)

	llm := ollama.NewClient(ollama.Config{BaseURL: srv.URL, MaxRetries: 1}, slog.Default())
	c := NewChunker(llm, "m", 4000, slog.Default())

	chunks, usedFallback, err := c.Chunk(context.Background(), "title", "body text")
	require.NoError(t, err)
	assert.False(t, usedFallback)
	require.Len(t, chunks, 1)
	assert.Equal(t, "intro", chunks[0].Type)
}
