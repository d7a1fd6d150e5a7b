// Package report produces pipeline state summaries and optionally
// delivers them to a Telegram chat.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/newsloom/newsloom/domain/articles"
	"github.com/newsloom/newsloom/domain/chunking"
	"github.com/newsloom/newsloom/pkg/logger"
)

// Summary is a point-in-time snapshot of the pipeline.
type Summary struct {
	GeneratedAt    time.Time      `json:"generated_at"`
	Feeds          map[string]int `json:"feeds"`
	RawArticles    map[string]int `json:"raw_articles"`
	Articles       int            `json:"articles"`
	Chunks         map[string]int `json:"chunks"`
	FTSPending     int            `json:"fts_pending"`
	RecentProblems int            `json:"recent_problems"`
}

// Service assembles summaries from the owning repositories.
type Service struct {
	db        *bun.DB
	rawRepo   *articles.Repository
	chunkRepo *chunking.Repository
	log       *slog.Logger
}

// NewService creates the report Service.
func NewService(db *bun.DB, rawRepo *articles.Repository, chunkRepo *chunking.Repository, log *slog.Logger) *Service {
	return &Service{
		db:        db,
		rawRepo:   rawRepo,
		chunkRepo: chunkRepo,
		log:       log.With(logger.Scope("report")),
	}
}

// Summarize collects current counts across the pipeline tables.
func (s *Service) Summarize(ctx context.Context) (*Summary, error) {
	summary := &Summary{GeneratedAt: time.Now().UTC()}

	var err error
	if summary.RawArticles, err = s.rawRepo.StatusCounts(ctx); err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	if summary.Chunks, err = s.chunkRepo.ChunkCounts(ctx); err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	summary.Feeds = make(map[string]int)
	var feedRows []struct {
		Status string `bun:"status"`
		Count  int    `bun:"count"`
	}
	if err := s.db.NewRaw(`SELECT status, count(*) AS count FROM news.feeds GROUP BY status`).
		Scan(ctx, &feedRows); err != nil {
		return nil, fmt.Errorf("summarize feeds: %w", err)
	}
	for _, row := range feedRows {
		summary.Feeds[row.Status] = row.Count
	}

	if err := s.db.NewRaw(`SELECT count(*) FROM news.articles_index WHERE is_canonical`).
		Scan(ctx, &summary.Articles); err != nil {
		return nil, fmt.Errorf("summarize articles: %w", err)
	}

	if err := s.db.NewRaw(`SELECT count(*) FROM news.article_chunks WHERE fts_vector IS NULL`).
		Scan(ctx, &summary.FTSPending); err != nil {
		return nil, fmt.Errorf("summarize fts backlog: %w", err)
	}

	if err := s.db.NewRaw(`SELECT count(*) FROM news.diagnostics WHERE occurred_at > now() - interval '24 hours'`).
		Scan(ctx, &summary.RecentProblems); err != nil {
		return nil, fmt.Errorf("summarize diagnostics: %w", err)
	}

	return summary, nil
}

// Format renders a summary as a readable plain-text block, used for
// stdout and Telegram alike.
func Format(s *Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "newsloom report - %s\n\n", s.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "feeds:        %s\n", formatCounts(s.Feeds))
	fmt.Fprintf(&b, "raw articles: %s\n", formatCounts(s.RawArticles))
	fmt.Fprintf(&b, "articles:     %d canonical\n", s.Articles)
	fmt.Fprintf(&b, "chunks:       %s\n", formatCounts(s.Chunks))
	fmt.Fprintf(&b, "fts backlog:  %d\n", s.FTSPending)
	fmt.Fprintf(&b, "diagnostics:  %d in last 24h\n", s.RecentProblems)

	return b.String()
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%d %s", counts[k], k))
	}
	return strings.Join(parts, ", ")
}
