package chunking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestParseEnvelopeShape(t *testing.T) {
	chunks, err := ParseResponse(`{"chunks": [{"text": "A", "topic": "T1", "type": "intro"}, {"text": "B", "topic": "T2", "type": "body"}]}`)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "A", chunks[0].Text)
	assert.Equal(t, "T1", *chunks[0].Topic)
	assert.Equal(t, "intro", chunks[0].Type)
	assert.Equal(t, "B", chunks[1].Text)
}

func TestParseBareArrayShape(t *testing.T) {
	chunks, err := ParseResponse(`[{"text":"A","topic":"T1","type":"intro"},{"text":"B","topic":"T2","type":"body"}]`)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "T2", *chunks[1].Topic)
}

func TestParseSingleObjectShape(t *testing.T) {
	// Short articles come back as one bare object; the metadata must
	// survive instead of being lost to the fallback.
	chunks, err := ParseResponse(`{"text":"FICO to include buy now, pay later data in new credit score models","topic":"Article Title","type":"intro"}`)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Article Title", *chunks[0].Topic)
	assert.Equal(t, "intro", chunks[0].Type)
}

func TestParseEmbeddedFragment(t *testing.T) {
	response := "Sure! Here is the segmentation you asked for:\n```json\n" +
		`{"chunks":[{"text":"A","topic":"T","type":"body"}]}` +
		"\n```\nLet me know if you need anything else."

	chunks, err := ParseResponse(response)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "A", chunks[0].Text)
}

func TestParseEmbeddedFragmentWithBracesInStrings(t *testing.T) {
	response := `The result: [{"text":"uses { braces } and \"quotes\"","topic":null,"type":"body"}] as requested.`

	chunks, err := ParseResponse(response)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, `uses { braces } and "quotes"`, chunks[0].Text)
	assert.Nil(t, chunks[0].Topic)
}

func TestParseRejectsProse(t *testing.T) {
	for _, response := range []string{
		"sorry, I cannot",
		"",
		"   ",
		`{"summary": "not chunks"}`,
	} {
		_, err := ParseResponse(response)
		assert.ErrorIs(t, err, ErrUnparsable, "response %q", response)
	}
}

func TestParseRoundTrip(t *testing.T) {
	// Parsing any accepted shape then serializing to the canonical
	// envelope must be stable under re-parse.
	shapes := []string{
		`{"chunks":[{"text":"A","topic":"T","type":"intro"}]}`,
		`[{"text":"A","topic":"T","type":"intro"},{"text":"B","topic":null,"type":"body"}]`,
		`{"text":"A","topic":"T","type":"intro"}`,
		"noise before {\"chunks\":[{\"text\":\"A\",\"topic\":\"T\",\"type\":\"body\"}]} noise after",
	}

	for _, shape := range shapes {
		first, err := ParseResponse(shape)
		require.NoError(t, err, "shape %q", shape)

		canonical, err := CanonicalJSON(first)
		require.NoError(t, err)

		second, err := ParseResponse(string(canonical))
		require.NoError(t, err)
		assert.Equal(t, first, second, "shape %q", shape)
	}
}

func TestCanonicalJSONEmpty(t *testing.T) {
	out, err := CanonicalJSON(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"chunks":[]}`, string(out))
}

func TestParagraphFallback(t *testing.T) {
	chunks := ParagraphFallback("first paragraph\n\nsecond paragraph\n\n\n\nthird")
	require.Len(t, chunks, 3)
	for i, ch := range chunks {
		assert.Equal(t, TypeBody, ch.Type, "chunk %d", i)
		assert.Nil(t, ch.Topic, "chunk %d", i)
	}
	assert.Equal(t, "second paragraph", chunks[1].Text)
}

func TestParagraphFallbackEmpty(t *testing.T) {
	assert.Empty(t, ParagraphFallback("   \n\n  "))
}

func TestExtractBalanced(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractBalanced(`x {"a":1} y`))
	assert.Equal(t, `[1,2,[3]]`, extractBalanced(`pre [1,2,[3]] post`))
	assert.Equal(t, "", extractBalanced("no json here"))
	assert.Equal(t, "", extractBalanced("{unclosed"))
}
