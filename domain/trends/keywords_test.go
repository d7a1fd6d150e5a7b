package trends

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	terms := tokenize("The central bank raised rates")
	assert.Contains(t, terms, "central")
	assert.Contains(t, terms, "central bank")
	assert.Contains(t, terms, "raised rates")
	assert.NotContains(t, terms, "the")
}

func TestClassKeywordsSeparatesClusters(t *testing.T) {
	clusters := map[int][]string{
		0: {
			"central bank raises interest rates again",
			"interest rates climb as central bank tightens policy",
			"markets react to interest rates decision",
		},
		1: {
			"championship final goes to extra time",
			"striker scores twice in championship final",
			"fans celebrate championship victory downtown",
		},
	}

	kw := classKeywords(clusters, 6)
	require.Len(t, kw, 2)
	assert.LessOrEqual(t, len(kw[0]), 6)

	joined0 := ""
	for _, k := range kw[0] {
		joined0 += k + " "
	}
	assert.Contains(t, joined0, "rates")

	joined1 := ""
	for _, k := range kw[1] {
		joined1 += k + " "
	}
	assert.Contains(t, joined1, "championship")
}

func TestClassKeywordsEmpty(t *testing.T) {
	assert.Empty(t, classKeywords(map[int][]string{}, 6))
}

func TestClusterLabel(t *testing.T) {
	assert.Equal(t, "untitled", clusterLabel(nil))
	assert.Equal(t, "rates", clusterLabel([]string{"rates"}))
	assert.Equal(t, "rates / bank", clusterLabel([]string{"rates", "bank", "policy"}))
}
