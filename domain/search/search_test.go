package search

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hit(id uuid.UUID, text string) Hit {
	return Hit{ChunkID: id, Text: text}
}

func TestFuseBothLegsOutranksSingle(t *testing.T) {
	shared := uuid.New()
	lexOnly := uuid.New()
	semOnly := uuid.New()

	lexical := []Hit{hit(lexOnly, "lexical top"), hit(shared, "in both")}
	semantic := []Hit{hit(semOnly, "semantic top"), hit(shared, "in both")}

	merged := fuse(lexical, semantic)
	require.Len(t, merged, 3)
	assert.Equal(t, shared, merged[0].ChunkID, "hit in both legs ranks first")
	assert.Positive(t, merged[0].Score)
}

func TestFuseSingleList(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	merged := fuse([]Hit{hit(a, "first"), hit(b, "second")})

	require.Len(t, merged, 2)
	assert.Equal(t, a, merged[0].ChunkID)
	assert.Greater(t, merged[0].Score, merged[1].Score)
}

func TestFuseEmpty(t *testing.T) {
	assert.Empty(t, fuse(nil, nil))
}
