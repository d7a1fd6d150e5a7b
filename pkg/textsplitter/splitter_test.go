package textsplitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitAtSentencesWithinBudget(t *testing.T) {
	parts := SplitAtSentences("short text. two sentences.", 100)
	require.Len(t, parts, 1)
	assert.Equal(t, "short text. two sentences.", parts[0])
}

func TestSplitAtSentencesPrefersBoundaries(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("This sentence has a clean end. ", 30))
	parts := SplitAtSentences(long, 120)

	require.Greater(t, len(parts), 1)
	for i, p := range parts {
		assert.LessOrEqual(t, len(p), 120, "part %d", i)
		assert.True(t, strings.HasSuffix(p, "end."), "part %d: %q", i, p)
	}
}

func TestSplitAtSentencesHardCut(t *testing.T) {
	// One sentence longer than the budget still gets cut.
	long := strings.Repeat("x", 700)
	parts := SplitAtSentences(long, 300)
	require.Len(t, parts, 3)
	assert.Len(t, parts[0], 300)
}

func TestSentences(t *testing.T) {
	got := Sentences("One. Two! Three? Four")
	assert.Equal(t, []string{"One.", "Two!", "Three?", "Four"}, got)
}

func TestSentencesIgnoresMidTokenDots(t *testing.T) {
	got := Sentences("Versions 1.2 and 1.3 shipped. Done.")
	assert.Equal(t, []string{"Versions 1.2 and 1.3 shipped.", "Done."}, got)
}
