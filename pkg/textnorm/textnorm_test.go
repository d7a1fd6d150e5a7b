package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "one two three", Normalize("  one\t\ttwo \n three  "))
}

func TestNormalizeKeepsParagraphBreaks(t *testing.T) {
	in := "first  para\nsame para\n\nsecond   para\n\n\n\nthird"
	assert.Equal(t, "first para same para\n\nsecond para\n\nthird", Normalize(in))
}

func TestNormalizeNFC(t *testing.T) {
	// "é" as e + combining acute vs precomposed.
	decomposed := "café"
	precomposed := "café"
	assert.Equal(t, Normalize(precomposed), Normalize(decomposed))
}

func TestNormalizePreservesCase(t *testing.T) {
	assert.Equal(t, "Hello World", Normalize("Hello   World"))
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "breaking news", NormalizeTitle("  Breaking\nNEWS "))
}

func TestHashCaseInsensitive(t *testing.T) {
	a := Hash("Same Story Text")
	b := Hash("same story text")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, Hash("different text"))
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount(""))
	assert.Equal(t, 3, WordCount("one two three"))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("ab"))
	assert.Equal(t, 25, EstimateTokens(string(make([]byte, 100))))
}
