package feeds

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/newsloom/newsloom/domain/articles"
)

// Repository persists feeds and enqueues discovered entries.
type Repository struct {
	db bun.IDB
}

// NewRepository creates a feeds Repository.
func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// Ensure registers a feed by canonical URL. Re-registering an existing
// URL is a no-op that returns the existing row.
func (r *Repository) Ensure(ctx context.Context, url string) (*Feed, bool, error) {
	feed := &Feed{URL: url, Status: StatusActive}

	res, err := r.db.NewInsert().
		Model(feed).
		On("CONFLICT (url) DO NOTHING").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("insert feed: %w", err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		return feed, true, nil
	}

	existing := new(Feed)
	err = r.db.NewSelect().Model(existing).Where("url = ?", url).Scan(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("load existing feed: %w", err)
	}
	return existing, false, nil
}

// Due returns active feeds whose next_poll_at has passed.
func (r *Repository) Due(ctx context.Context, now time.Time, limit int) ([]Feed, error) {
	var feeds []Feed
	err := r.db.NewSelect().
		Model(&feeds).
		Where("status = ?", StatusActive).
		Where("next_poll_at <= ?", now).
		Order("next_poll_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select due feeds: %w", err)
	}
	return feeds, nil
}

// List returns all feeds ordered by URL.
func (r *Repository) List(ctx context.Context) ([]Feed, error) {
	var feeds []Feed
	err := r.db.NewSelect().Model(&feeds).Order("url ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}
	return feeds, nil
}

// MarkPolled records a successful poll, stores conditional-GET
// validators and schedules the next poll.
func (r *Repository) MarkPolled(ctx context.Context, feed *Feed, etag, lastModified *string, next time.Time) error {
	_, err := r.db.NewUpdate().
		Model((*Feed)(nil)).
		Set("last_fetched_at = now()").
		Set("last_etag = ?", etag).
		Set("last_modified = ?", lastModified).
		Set("consecutive_failures = 0").
		Set("status = ?", StatusActive).
		Set("next_poll_at = ?", next).
		Set("updated_at = now()").
		Where("id = ?", feed.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark feed polled: %w", err)
	}
	return nil
}

// MarkNotModified records a 304 response: validators stay, failure
// counter resets, next poll is scheduled.
func (r *Repository) MarkNotModified(ctx context.Context, feed *Feed, next time.Time) error {
	_, err := r.db.NewUpdate().
		Model((*Feed)(nil)).
		Set("last_fetched_at = now()").
		Set("consecutive_failures = 0").
		Set("status = ?", StatusActive).
		Set("next_poll_at = ?", next).
		Set("updated_at = now()").
		Where("id = ?", feed.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark feed not modified: %w", err)
	}
	return nil
}

// MarkFailed bumps the failure counter with exponential backoff and
// flips the feed to error status once failures reach maxFailures.
func (r *Repository) MarkFailed(ctx context.Context, feed *Feed, reason string, backoffBase, backoffCap time.Duration, maxFailures int) error {
	failures := feed.ConsecutiveFailures + 1
	backoff := backoffAfter(failures, backoffBase, backoffCap)

	status := StatusActive
	if failures >= maxFailures {
		status = StatusError
	}

	_, err := r.db.NewUpdate().
		Model((*Feed)(nil)).
		Set("consecutive_failures = ?", failures).
		Set("status = ?", status).
		Set("next_poll_at = ?", time.Now().Add(backoff)).
		Set("updated_at = now()").
		Where("id = ?", feed.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark feed failed (%s): %w", reason, err)
	}
	return nil
}

// backoffAfter doubles the delay per consecutive failure, capped.
// The shift can overflow for large failure counts, hence the <= 0 guard.
func backoffAfter(failures int, base, ceil time.Duration) time.Duration {
	if failures < 1 {
		failures = 1
	}
	if failures > 30 {
		return ceil
	}
	backoff := base << (failures - 1)
	if backoff > ceil || backoff <= 0 {
		backoff = ceil
	}
	return backoff
}

// EnqueueRaw inserts a discovered entry into the raw queue. A url_hash
// collision means the entry was seen before and is skipped; the
// returned bool reports whether a new row was created.
func (r *Repository) EnqueueRaw(ctx context.Context, raw *articles.RawArticle) (bool, error) {
	res, err := r.db.NewInsert().
		Model(raw).
		On("CONFLICT (url_hash) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("enqueue raw article: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
