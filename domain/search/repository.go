// Package search provides hybrid lexical + semantic retrieval over
// article chunks for the rag command.
package search

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
)

// Hit is one retrieved chunk with its article context.
type Hit struct {
	ChunkID    uuid.UUID `bun:"chunk_id" json:"chunk_id"`
	ArticleID  uuid.UUID `bun:"article_id" json:"article_id"`
	Title      string    `bun:"title_norm" json:"title"`
	URL        string    `bun:"url" json:"url"`
	ChunkIndex int       `bun:"chunk_index" json:"chunk_index"`
	Text       string    `bun:"text" json:"text"`
	Rank       float64   `bun:"rank" json:"rank"`
	Score      float64   `bun:"-" json:"score"`
}

// Repository runs the two retrieval legs against Postgres.
type Repository struct {
	db bun.IDB
}

// NewRepository creates a search Repository.
func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// Lexical ranks chunks by ts_rank against a websearch-style query.
func (r *Repository) Lexical(ctx context.Context, query string, limit int) ([]Hit, error) {
	var hits []Hit
	err := r.db.NewRaw(`
		SELECT c.id AS chunk_id,
		       c.article_id,
		       a.title_norm,
		       a.url,
		       c.chunk_index,
		       c.text,
		       ts_rank(c.fts_vector, websearch_to_tsquery('simple', ?)) AS rank
		FROM news.article_chunks AS c
		JOIN news.articles_index AS a ON a.id = c.article_id
		WHERE c.fts_vector @@ websearch_to_tsquery('simple', ?)
		ORDER BY rank DESC
		LIMIT ?`,
		query, query, limit,
	).Scan(ctx, &hits)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	return hits, nil
}

// Semantic ranks chunks by cosine distance to the query embedding.
func (r *Repository) Semantic(ctx context.Context, queryVector []float32, limit int) ([]Hit, error) {
	var hits []Hit
	err := r.db.NewRaw(`
		SELECT c.id AS chunk_id,
		       c.article_id,
		       a.title_norm,
		       a.url,
		       c.chunk_index,
		       c.text,
		       1 - (c.embedding <=> ?) AS rank
		FROM news.article_chunks AS c
		JOIN news.articles_index AS a ON a.id = c.article_id
		WHERE c.embedding IS NOT NULL
		ORDER BY c.embedding <=> ?
		LIMIT ?`,
		pgvector.NewVector(queryVector), pgvector.NewVector(queryVector), limit,
	).Scan(ctx, &hits)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	return hits, nil
}
