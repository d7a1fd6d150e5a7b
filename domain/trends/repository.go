package trends

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/newsloom/newsloom/pkg/pgutils"
)

// Repository fetches the article window for trend building.
type Repository struct {
	db bun.IDB
}

// NewRepository creates a trends Repository.
func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

type windowRow struct {
	ArticleID   uuid.UUID `bun:"article_id"`
	Title       string    `bun:"title_norm"`
	ChunkText   string    `bun:"chunk_text"`
	PublishedAt string    `bun:"published_at"`
	Embedding   string    `bun:"embedding"`
}

// FetchWindow returns canonical articles published within the window,
// joined with their first chunk's embedding, most recent first.
// Timestamps and vectors cross the wire as text and are parsed here,
// once; callers never see strings.
func (r *Repository) FetchWindow(ctx context.Context, windowHours, limit int) ([]ArticleVector, error) {
	var rows []windowRow
	err := r.db.NewRaw(`
		SELECT a.id AS article_id,
		       a.title_norm,
		       c.text AS chunk_text,
		       a.published_at::text AS published_at,
		       c.embedding::text AS embedding
		FROM news.articles_index AS a
		JOIN news.article_chunks AS c
		  ON c.article_id = a.id AND c.chunk_index = 0
		WHERE a.is_canonical
		  AND c.embedding IS NOT NULL
		  AND a.published_at IS NOT NULL
		  AND a.published_at >= now() - make_interval(hours => ?)
		ORDER BY a.published_at DESC
		LIMIT ?`,
		windowHours, limit,
	).Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("fetch trends window: %w", err)
	}

	out := make([]ArticleVector, 0, len(rows))
	for _, row := range rows {
		publishedAt, err := ParseTimestamp(row.PublishedAt)
		if err != nil {
			return nil, fmt.Errorf("parse published_at %q: %w", row.PublishedAt, err)
		}

		embedding, err := pgutils.ParseVector(row.Embedding)
		if err != nil {
			return nil, fmt.Errorf("parse embedding for article %s: %w", row.ArticleID, err)
		}

		out = append(out, ArticleVector{
			ArticleID:   row.ArticleID,
			Title:       row.Title,
			ChunkText:   row.ChunkText,
			PublishedAt: publishedAt,
			Embedding:   embedding,
		})
	}
	return out, nil
}

// timestampLayouts covers ISO 8601 with and without a T separator and
// with Z or numeric offsets, which is everything Postgres and upstream
// feeds emit.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp string (trailing Z
// permitted) into a UTC instant.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
