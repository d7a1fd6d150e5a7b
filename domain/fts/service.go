// Package fts maintains the tsvector column on article chunks for
// keyword search. It has no external dependencies beyond Postgres.
package fts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/newsloom/newsloom/internal/config"
	"github.com/newsloom/newsloom/pkg/logger"
)

// regconfigs maps an article language code to a Postgres text-search
// configuration. Unmapped languages use the configured default; no
// language detection happens here.
var regconfigs = map[string]string{
	"en": "english",
	"ru": "russian",
	"de": "german",
	"fr": "french",
	"es": "spanish",
	"it": "italian",
	"pt": "portuguese",
	"nl": "dutch",
	"sv": "swedish",
	"no": "norwegian",
	"da": "danish",
	"fi": "finnish",
}

// Regconfig resolves a language code to a text-search configuration.
func Regconfig(language, fallback string) string {
	if cfg, ok := regconfigs[language]; ok {
		return cfg
	}
	return fallback
}

// Service is the continuous FTS indexing loop. Each tick fills
// fts_vector for one batch of chunks in a single statement per
// language group.
type Service struct {
	db        *bun.DB
	cfg       config.FTSConfig
	log       *slog.Logger
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// NewService creates the FTS Service.
func NewService(db *bun.DB, cfg config.FTSConfig, log *slog.Logger) *Service {
	return &Service{
		db:        db,
		cfg:       cfg,
		log:       log.With(logger.Scope("fts")),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start runs the loop until Stop is called.
func (s *Service) Start(ctx context.Context) {
	s.log.Info("fts service started",
		slog.Duration("interval", s.cfg.Interval),
		slog.Int("batch", s.cfg.Batch))

	go func() {
		defer close(s.stoppedCh)

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.RunOnce(ctx); err != nil {
					s.log.Error("fts tick failed", logger.Error(err))
				}
			}
		}
	}()
}

// Stop signals the loop and waits for the in-flight tick to drain.
func (s *Service) Stop() {
	close(s.stopCh)
	<-s.stoppedCh
	s.log.Info("fts service stopped")
}

// RunOnce indexes one batch of chunks with a NULL fts_vector, picking
// the text-search configuration from the owning article's language.
// Returns the number of chunks indexed.
func (s *Service) RunOnce(ctx context.Context) (int, error) {
	// The CASE mirrors the Go-side language map so one UPDATE covers
	// every language in the batch.
	res, err := s.db.NewRaw(`
		UPDATE news.article_chunks AS c
		SET fts_vector = to_tsvector(
			COALESCE(
				(SELECT v.regconfig FROM (VALUES
					('en', 'english'), ('ru', 'russian'), ('de', 'german'),
					('fr', 'french'), ('es', 'spanish'), ('it', 'italian'),
					('pt', 'portuguese'), ('nl', 'dutch'), ('sv', 'swedish'),
					('no', 'norwegian'), ('da', 'danish'), ('fi', 'finnish')
				) AS v(lang, regconfig)
				WHERE v.lang = a.language),
				?
			)::regconfig,
			c.text
		)
		FROM news.articles_index AS a
		WHERE a.id = c.article_id
		  AND c.id IN (
			SELECT id FROM news.article_chunks
			WHERE fts_vector IS NULL
			ORDER BY created_at ASC
			LIMIT ?
		  )`,
		s.cfg.DefaultRegconfig, s.cfg.Batch,
	).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("fts update: %w", err)
	}

	n64, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("fts rows affected: %w", err)
	}
	n := int(n64)

	if n > 0 {
		s.log.Debug("fts pass complete", slog.Int("indexed", n))
	}
	return n, nil
}
