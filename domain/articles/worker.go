package articles

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/newsloom/newsloom/domain/diagnostics"
	"github.com/newsloom/newsloom/internal/config"
	"github.com/newsloom/newsloom/pkg/logger"
	"github.com/newsloom/newsloom/pkg/pgutils"
	"github.com/newsloom/newsloom/pkg/textnorm"
)

// Store is the persistence surface the worker drives. *Repository is
// the production implementation.
type Store interface {
	Claim(ctx context.Context, workerID string, limit, maxAttempts int) ([]RawArticle, error)
	Retry(ctx context.Context, raw *RawArticle, reason string, delay time.Duration) error
	MarkError(ctx context.Context, raw *RawArticle, reason string) error
	MarkStored(ctx context.Context, raw *RawArticle, canonicalID uuid.UUID) error
	MarkDuplicate(ctx context.Context, raw *RawArticle, canonicalID uuid.UUID) error
	FindCanonicalByTextHash(ctx context.Context, textHash string) (*ArticleIndex, error)
	InsertCanonical(ctx context.Context, article *ArticleIndex) error
}

// WorkStats summarizes one worker pass by terminal status.
type WorkStats struct {
	Claimed   int
	Stored    int
	Duplicate int
	Retried   int
	Errored   int
}

// Worker drains the raw article queue: fetch, extract, normalize,
// dedup. Raw rows only ever move forward through the status DAG.
type Worker struct {
	repo     Store
	fetcher  *Fetcher
	diag     *diagnostics.Recorder
	cfg      config.WorkerConfig
	workerID string
	log      *slog.Logger
}

// NewWorker creates a Worker.
func NewWorker(repo Store, diag *diagnostics.Recorder, cfg config.WorkerConfig, log *slog.Logger) *Worker {
	host, _ := os.Hostname()
	return &Worker{
		repo:     repo,
		fetcher:  NewFetcher(cfg.FetchTimeout, cfg.MaxBodyBytes),
		diag:     diag,
		cfg:      cfg,
		workerID: fmt.Sprintf("%s-%s", host, uuid.NewString()[:8]),
		log:      log.With(logger.Scope("worker")),
	}
}

// Work claims one batch and processes it with cfg.Workers parallelism.
// Per-article failures never abort the pass.
func (w *Worker) Work(ctx context.Context) (WorkStats, error) {
	claimed, err := w.repo.Claim(ctx, w.workerID, w.cfg.BatchSize, w.cfg.MaxAttempts)
	if err != nil {
		return WorkStats{}, fmt.Errorf("work: %w", err)
	}

	var (
		mu    sync.Mutex
		stats WorkStats
	)
	stats.Claimed = len(claimed)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Workers)

	for i := range claimed {
		raw := claimed[i]
		g.Go(func() error {
			outcome := w.processOne(gctx, &raw)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case RawStatusStored:
				stats.Stored++
			case RawStatusDuplicate:
				stats.Duplicate++
			case RawStatusPending:
				stats.Retried++
			default:
				stats.Errored++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, fmt.Errorf("work: %w", err)
	}

	if stats.Claimed > 0 {
		w.log.Info("work pass complete",
			slog.Int("claimed", stats.Claimed),
			slog.Int("stored", stats.Stored),
			slog.Int("duplicate", stats.Duplicate),
			slog.Int("retried", stats.Retried),
			slog.Int("errored", stats.Errored))
	}
	return stats, nil
}

// processOne runs one raw article to a terminal or retry state and
// returns the resulting status.
func (w *Worker) processOne(ctx context.Context, raw *RawArticle) string {
	body, err := w.fetcher.Fetch(ctx, raw.URL)
	if err != nil {
		return w.failed(ctx, raw, "fetch", err)
	}

	title, text, err := Extract(body, raw.URL)
	if err != nil {
		return w.failed(ctx, raw, "extract", err)
	}

	cleanText := textnorm.Normalize(text)
	if len(cleanText) < w.cfg.MinTextChars {
		w.diag.Warn(ctx, "worker", diagnostics.KindParseError,
			fmt.Sprintf("too_short: %d chars", len(cleanText)), nil,
			map[string]any{"url": raw.URL, "raw_article_id": raw.ID.String()})
		if err := w.repo.MarkError(ctx, raw, "too_short"); err != nil {
			w.log.Error("failed to mark too_short", logger.Error(err))
		}
		return RawStatusError
	}

	if title == "" && raw.Title != nil {
		title = *raw.Title
	}

	language := "en"
	if raw.Language != nil && *raw.Language != "" {
		language = *raw.Language
	}

	article := &ArticleIndex{
		URL:            raw.URL,
		CanonicalURL:   raw.URL,
		Source:         raw.SourceDomain,
		Domain:         raw.SourceDomain,
		TitleNorm:      textnorm.NormalizeTitle(title),
		CleanText:      cleanText,
		TextHash:       textnorm.Hash(cleanText),
		PublishedAt:    raw.PublishedAt,
		Language:       language,
		IsCanonical:    true,
		ChunkingStatus: ChunkingPending,
	}

	canonicalID, isDuplicate, err := w.dedupInsert(ctx, article)
	if err != nil {
		return w.failed(ctx, raw, "store", err)
	}

	if isDuplicate {
		if err := w.repo.MarkDuplicate(ctx, raw, canonicalID); err != nil {
			w.log.Error("failed to mark duplicate", logger.Error(err))
			return RawStatusError
		}
		return RawStatusDuplicate
	}

	if err := w.repo.MarkStored(ctx, raw, canonicalID); err != nil {
		w.log.Error("failed to mark stored", logger.Error(err))
		return RawStatusError
	}
	return RawStatusStored
}

// dedupInsert resolves content identity by text_hash. The lookup and
// insert race under concurrency; the partial unique index breaks the
// tie and the loser re-reads the winner's row.
func (w *Worker) dedupInsert(ctx context.Context, article *ArticleIndex) (uuid.UUID, bool, error) {
	existing, err := w.repo.FindCanonicalByTextHash(ctx, article.TextHash)
	if err != nil {
		return uuid.Nil, false, err
	}
	if existing != nil {
		return existing.ID, true, nil
	}

	if err := w.repo.InsertCanonical(ctx, article); err != nil {
		if pgutils.IsUniqueViolation(err) {
			if existing, lookupErr := w.repo.FindCanonicalByTextHash(ctx, article.TextHash); lookupErr == nil && existing != nil {
				return existing.ID, true, nil
			}
		}
		return uuid.Nil, false, err
	}
	return article.ID, false, nil
}

// failed routes an error to retry or terminal error based on its
// class and the attempt budget.
func (w *Worker) failed(ctx context.Context, raw *RawArticle, stage string, err error) string {
	permanent := IsPermanent(err)
	exhausted := raw.AttemptCount >= w.cfg.MaxAttempts

	kind := diagnostics.KindTransientIO
	if permanent {
		kind = diagnostics.KindPermanentIO
	}
	w.diag.Error(ctx, "worker", kind,
		fmt.Sprintf("%s: %v", stage, err), nil,
		map[string]any{"url": raw.URL, "raw_article_id": raw.ID.String(), "attempt": raw.AttemptCount})

	if permanent || exhausted {
		if markErr := w.repo.MarkError(ctx, raw, err.Error()); markErr != nil {
			w.log.Error("failed to mark error", logger.Error(markErr))
		}
		return RawStatusError
	}

	delay := time.Duration(raw.AttemptCount) * time.Minute
	if retryErr := w.repo.Retry(ctx, raw, err.Error(), delay); retryErr != nil {
		w.log.Error("failed to schedule retry", logger.Error(retryErr))
		return RawStatusError
	}
	return RawStatusPending
}
