package chunking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/newsloom/newsloom/domain/articles"
	"github.com/newsloom/newsloom/internal/database"
)

// Repository persists chunks and drives the chunking claim protocol on
// articles_index.
type Repository struct {
	db *bun.DB
}

// NewRepository creates a chunking Repository.
func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// ClaimArticles leases up to limit canonical articles that still have
// no chunks and whose language is supported. Articles whose lease
// expired are reclaimable; SKIP LOCKED keeps concurrent services off
// each other's rows.
func (r *Repository) ClaimArticles(ctx context.Context, workerID string, limit int, languages []string, lease time.Duration) ([]articles.ArticleIndex, error) {
	var claimed []articles.ArticleIndex
	err := r.db.NewRaw(`
		UPDATE news.articles_index AS a
		SET claimed_at = now(),
		    claimed_by = ?
		FROM (
			SELECT id FROM news.articles_index
			WHERE chunking_status = 'pending'
			  AND is_canonical
			  AND language = ANY(?)
			  AND (claimed_at IS NULL OR claimed_at < now() - ?::interval)
			  AND NOT EXISTS (
				SELECT 1 FROM news.article_chunks c
				WHERE c.article_id = news.articles_index.id
			  )
			ORDER BY created_at ASC
			LIMIT ?
			FOR UPDATE SKIP LOCKED
		) AS due
		WHERE a.id = due.id
		RETURNING a.*`,
		workerID, pgdialect.Array(languages), lease.String(), limit,
	).Scan(ctx, &claimed)
	if err != nil {
		return nil, fmt.Errorf("claim articles for chunking: %w", err)
	}
	return claimed, nil
}

// ReplaceChunks atomically swaps an article's chunks and marks the
// article chunked. Readers inside a transaction never observe the
// article with zero chunks.
func (r *Repository) ReplaceChunks(ctx context.Context, articleID uuid.UUID, chunks []ArticleChunk) error {
	tx, err := database.BeginSafeTx(ctx, r.db)
	if err != nil {
		return fmt.Errorf("replace chunks: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.NewDelete().
		Model((*ArticleChunk)(nil)).
		Where("article_id = ?", articleID).
		Exec(ctx); err != nil {
		return fmt.Errorf("delete old chunks: %w", err)
	}

	if len(chunks) > 0 {
		if _, err := tx.NewInsert().Model(&chunks).Exec(ctx); err != nil {
			return fmt.Errorf("insert chunks: %w", err)
		}
	}

	if _, err := tx.NewUpdate().
		Model((*articles.ArticleIndex)(nil)).
		Set("chunking_status = ?", articles.ChunkingDone).
		Set("claimed_at = NULL").
		Set("claimed_by = NULL").
		Where("id = ?", articleID).
		Exec(ctx); err != nil {
		return fmt.Errorf("mark article chunked: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace chunks: %w", err)
	}
	return nil
}

// MarkError advances an article to chunking error, excluding it from
// future claims.
func (r *Repository) MarkError(ctx context.Context, articleID uuid.UUID) error {
	_, err := r.db.NewUpdate().
		Model((*articles.ArticleIndex)(nil)).
		Set("chunking_status = ?", articles.ChunkingError).
		Set("claimed_at = NULL").
		Set("claimed_by = NULL").
		Where("id = ?", articleID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark chunking error: %w", err)
	}
	return nil
}

// ChunkCounts reports chunk totals by embedding status, for the report
// command.
func (r *Repository) ChunkCounts(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Status string `bun:"embedding_status"`
		Count  int    `bun:"count"`
	}
	err := r.db.NewSelect().
		Model((*ArticleChunk)(nil)).
		ColumnExpr("embedding_status, count(*) AS count").
		Group("embedding_status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("chunk counts: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
