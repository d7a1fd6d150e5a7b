package articles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository persists raw articles and the canonical index.
type Repository struct {
	db bun.IDB
}

// NewRepository creates an articles Repository.
func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// Claim atomically moves up to limit due pending raw articles to
// fetching and assigns them to workerID. SKIP LOCKED keeps concurrent
// workers from claiming the same rows; a crashed worker's rows come
// back via RecoverStale once the lease expires.
func (r *Repository) Claim(ctx context.Context, workerID string, limit, maxAttempts int) ([]RawArticle, error) {
	var claimed []RawArticle
	err := r.db.NewRaw(`
		UPDATE news.raw_articles AS r
		SET status = ?,
		    attempt_count = r.attempt_count + 1,
		    claimed_at = now(),
		    claimed_by = ?,
		    updated_at = now()
		FROM (
			SELECT id FROM news.raw_articles
			WHERE status = ?
			  AND next_attempt_at <= now()
			  AND attempt_count < ?
			ORDER BY next_attempt_at ASC
			LIMIT ?
			FOR UPDATE SKIP LOCKED
		) AS due
		WHERE r.id = due.id
		RETURNING r.*`,
		RawStatusFetching, workerID, RawStatusPending, maxAttempts, limit,
	).Scan(ctx, &claimed)
	if err != nil {
		return nil, fmt.Errorf("claim raw articles: %w", err)
	}
	return claimed, nil
}

// RecoverStale re-enqueues fetching rows whose lease expired, so work
// lost to a crashed worker is retried. Returns the recovered ids.
func (r *Repository) RecoverStale(ctx context.Context, lease time.Duration) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.NewRaw(`
		UPDATE news.raw_articles
		SET status = ?,
		    claimed_at = NULL,
		    claimed_by = NULL,
		    updated_at = now()
		WHERE status = ?
		  AND claimed_at < now() - ?::interval
		RETURNING id`,
		RawStatusPending, RawStatusFetching, lease.String(),
	).Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("recover stale claims: %w", err)
	}
	return ids, nil
}

// Retry returns a claimed article to pending with a delay. The
// attempt_count bump happened at claim time; callers decide between
// Retry and MarkError based on it.
func (r *Repository) Retry(ctx context.Context, raw *RawArticle, reason string, delay time.Duration) error {
	_, err := r.db.NewUpdate().
		Model((*RawArticle)(nil)).
		Set("status = ?", RawStatusPending).
		Set("next_attempt_at = ?", time.Now().Add(delay)).
		Set("last_error = ?", reason).
		Set("claimed_at = NULL").
		Set("claimed_by = NULL").
		Set("updated_at = now()").
		Where("id = ?", raw.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("retry raw article: %w", err)
	}
	return nil
}

// MarkError moves a claimed article to its terminal error state.
func (r *Repository) MarkError(ctx context.Context, raw *RawArticle, reason string) error {
	_, err := r.db.NewUpdate().
		Model((*RawArticle)(nil)).
		Set("status = ?", RawStatusError).
		Set("last_error = ?", reason).
		Set("claimed_at = NULL").
		Set("claimed_by = NULL").
		Set("updated_at = now()").
		Where("id = ?", raw.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark raw article error: %w", err)
	}
	return nil
}

// MarkStored finalizes a successfully extracted article and links it
// to its canonical index row.
func (r *Repository) MarkStored(ctx context.Context, raw *RawArticle, canonicalID uuid.UUID) error {
	return r.finalize(ctx, raw, RawStatusStored, canonicalID)
}

// MarkDuplicate finalizes a content-duplicate article, pointing it at
// the existing canonical row.
func (r *Repository) MarkDuplicate(ctx context.Context, raw *RawArticle, canonicalID uuid.UUID) error {
	return r.finalize(ctx, raw, RawStatusDuplicate, canonicalID)
}

func (r *Repository) finalize(ctx context.Context, raw *RawArticle, status string, canonicalID uuid.UUID) error {
	_, err := r.db.NewUpdate().
		Model((*RawArticle)(nil)).
		Set("status = ?", status).
		Set("fetched_at = now()").
		Set("canonical_article_id = ?", canonicalID).
		Set("last_error = NULL").
		Set("claimed_at = NULL").
		Set("claimed_by = NULL").
		Set("updated_at = now()").
		Where("id = ?", raw.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("finalize raw article as %s: %w", status, err)
	}
	return nil
}

// FindCanonicalByTextHash returns the canonical article with the given
// text hash, or nil when none exists.
func (r *Repository) FindCanonicalByTextHash(ctx context.Context, textHash string) (*ArticleIndex, error) {
	article := new(ArticleIndex)
	err := r.db.NewSelect().
		Model(article).
		Where("text_hash = ?", textHash).
		Where("is_canonical").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find canonical by text hash: %w", err)
	}
	return article, nil
}

// InsertCanonical inserts a new canonical article. The partial unique
// index on text_hash makes concurrent inserts of the same content
// race-safe; callers treat a unique violation as "already canonical".
func (r *Repository) InsertCanonical(ctx context.Context, article *ArticleIndex) error {
	if _, err := r.db.NewInsert().Model(article).Exec(ctx); err != nil {
		return fmt.Errorf("insert canonical article: %w", err)
	}
	return nil
}

// StatusCounts reports raw article counts grouped by status.
func (r *Repository) StatusCounts(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Status string `bun:"status"`
		Count  int    `bun:"count"`
	}
	err := r.db.NewSelect().
		Model((*RawArticle)(nil)).
		ColumnExpr("status, count(*) AS count").
		Group("status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("raw article status counts: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
