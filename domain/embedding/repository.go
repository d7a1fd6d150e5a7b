// Package embedding fills the embedding column on article chunks by
// batching texts through the embedding model.
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"

	"github.com/newsloom/newsloom/domain/chunking"
)

// Repository drives the chunk claim protocol and vector writes.
type Repository struct {
	db bun.IDB
}

// NewRepository creates an embedding Repository.
func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// ClaimChunks leases up to limit chunks that still need a vector.
// Expired leases are reclaimable.
func (r *Repository) ClaimChunks(ctx context.Context, workerID string, limit, maxAttempts int, lease time.Duration) ([]chunking.ArticleChunk, error) {
	var claimed []chunking.ArticleChunk
	err := r.db.NewRaw(`
		UPDATE news.article_chunks AS c
		SET claimed_at = now(),
		    claimed_by = ?
		FROM (
			SELECT id FROM news.article_chunks
			WHERE embedding IS NULL
			  AND embedding_status = 'pending'
			  AND embedding_attempts < ?
			  AND (claimed_at IS NULL OR claimed_at < now() - ?::interval)
			ORDER BY created_at ASC
			LIMIT ?
			FOR UPDATE SKIP LOCKED
		) AS due
		WHERE c.id = due.id
		RETURNING c.*`,
		workerID, maxAttempts, lease.String(), limit,
	).Scan(ctx, &claimed)
	if err != nil {
		return nil, fmt.Errorf("claim chunks for embedding: %w", err)
	}
	return claimed, nil
}

// WriteVector stores a chunk's embedding and marks it done.
func (r *Repository) WriteVector(ctx context.Context, chunkID uuid.UUID, vector []float32) error {
	_, err := r.db.NewUpdate().
		Model((*chunking.ArticleChunk)(nil)).
		Set("embedding = ?", pgvector.NewVector(vector)).
		Set("embedding_status = ?", chunking.EmbeddingDone).
		Set("claimed_at = NULL").
		Set("claimed_by = NULL").
		Where("id = ?", chunkID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("write embedding: %w", err)
	}
	return nil
}

// MarkFailed bumps the attempt counter and either re-enqueues the
// chunk or, once the budget is spent, parks it in terminal error.
func (r *Repository) MarkFailed(ctx context.Context, chunk *chunking.ArticleChunk, maxAttempts int) error {
	attempts := chunk.EmbeddingAttempts + 1

	status := chunking.EmbeddingPending
	if attempts >= maxAttempts {
		status = chunking.EmbeddingError
	}

	_, err := r.db.NewUpdate().
		Model((*chunking.ArticleChunk)(nil)).
		Set("embedding_attempts = ?", attempts).
		Set("embedding_status = ?", status).
		Set("claimed_at = NULL").
		Set("claimed_by = NULL").
		Where("id = ?", chunk.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark embedding failed: %w", err)
	}
	return nil
}
