// Package chunking segments article bodies into semantically coherent
// chunks via an LLM, with a deterministic paragraph fallback, and runs
// the continuous chunking service.
package chunking

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Chunk types. Unknown values from the LLM are clamped to TypeOther.
const (
	TypeIntro      = "intro"
	TypeBody       = "body"
	TypeConclusion = "conclusion"
	TypeOther      = "other"
)

// Embedding statuses on a chunk.
const (
	EmbeddingPending = "pending"
	EmbeddingDone    = "done"
	EmbeddingError   = "error"
)

// ArticleChunk is one persisted segment of an article. For an article
// the chunk indices are dense 0..K-1; chunks are only ever replaced
// wholesale, never rewritten in place.
type ArticleChunk struct {
	bun.BaseModel `bun:"table:news.article_chunks"`

	ID                uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	ArticleID         uuid.UUID  `bun:"article_id,notnull,type:uuid"`
	ChunkIndex        int        `bun:"chunk_index,notnull"`
	Text              string     `bun:"text,notnull"`
	Topic             *string    `bun:"topic"`
	ChunkType         string     `bun:"chunk_type,notnull,default:'body'"`
	TokenEstimate     int        `bun:"token_estimate,notnull,default:0"`
	Embedding         []float32  `bun:"embedding,scanonly"`
	EmbeddingAttempts int        `bun:"embedding_attempts,notnull,default:0"`
	EmbeddingStatus   string     `bun:"embedding_status,notnull,default:'pending'"`
	ClaimedAt         *time.Time `bun:"claimed_at"`
	ClaimedBy         *string    `bun:"claimed_by"`
	CreatedAt         time.Time  `bun:"created_at,notnull,default:now()"`
}
