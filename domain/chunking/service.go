package chunking

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/newsloom/newsloom/domain/articles"
	"github.com/newsloom/newsloom/domain/diagnostics"
	"github.com/newsloom/newsloom/internal/config"
	"github.com/newsloom/newsloom/pkg/logger"
	"github.com/newsloom/newsloom/pkg/textnorm"
)

// Service is the continuous chunking loop: claim unchunked articles,
// chunk them, persist. Per-article failures advance the article to
// chunking error and never stop the loop.
type Service struct {
	repo      *Repository
	chunker   *Chunker
	diag      *diagnostics.Recorder
	cfg       config.ChunkingConfig
	workerID  string
	log       *slog.Logger
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// NewService creates the chunking Service.
func NewService(repo *Repository, chunker *Chunker, diag *diagnostics.Recorder, cfg config.ChunkingConfig, log *slog.Logger) *Service {
	host, _ := os.Hostname()
	return &Service{
		repo:      repo,
		chunker:   chunker,
		diag:      diag,
		cfg:       cfg,
		workerID:  fmt.Sprintf("chunk-%s-%s", host, uuid.NewString()[:8]),
		log:       log.With(logger.Scope("chunking")),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start runs the loop until Stop is called.
func (s *Service) Start(ctx context.Context) {
	s.log.Info("chunking service started",
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
					s.log.Error("chunking tick failed", logger.Error(err))
				}
			}
		}
	}()
}

// Stop signals the loop and waits for the in-flight tick to drain.
func (s *Service) Stop() {
	close(s.stopCh)
	<-s.stoppedCh
	s.log.Info("chunking service stopped")
}

// RunOnce claims and processes one batch, returning how many articles
// were handled. A claim failure aborts the tick; per-article failures
// do not.
func (s *Service) RunOnce(ctx context.Context) (int, error) {
	claimed, err := s.repo.ClaimArticles(ctx, s.workerID, s.cfg.Batch, s.cfg.Languages, s.cfg.Lease)
	if err != nil {
		return 0, err
	}

	for i := range claimed {
		article := &claimed[i]
		if err := s.processArticle(ctx, article); err != nil {
			s.log.Warn("article chunking failed",
				slog.String("article_id", article.ID.String()),
				logger.Error(err))

			s.diag.Error(ctx, "chunking", diagnostics.KindTransientIO,
				err.Error(), &article.ID, map[string]any{"url": article.URL})

			if markErr := s.repo.MarkError(ctx, article.ID); markErr != nil {
				s.log.Error("failed to mark chunking error", logger.Error(markErr))
			}
		}
	}
	return len(claimed), nil
}

func (s *Service) processArticle(ctx context.Context, article *articles.ArticleIndex) error {
	parsed, usedFallback, err := s.chunker.Chunk(ctx, article.TitleNorm, article.CleanText)
	if err != nil {
		return err
	}

	if usedFallback {
		s.diag.Warn(ctx, "chunking", diagnostics.KindParseError,
			"llm response unparsable, paragraph fallback used",
			&article.ID, map[string]any{"url": article.URL})
	}

	rows := make([]ArticleChunk, 0, len(parsed))
	for i, ch := range parsed {
		rows = append(rows, ArticleChunk{
			ArticleID:       article.ID,
			ChunkIndex:      i,
			Text:            ch.Text,
			Topic:           ch.Topic,
			ChunkType:       ch.Type,
			TokenEstimate:   textnorm.EstimateTokens(ch.Text),
			EmbeddingStatus: EmbeddingPending,
		})
	}

	if err := s.repo.ReplaceChunks(ctx, article.ID, rows); err != nil {
		return err
	}

	s.log.Debug("article chunked",
		slog.String("article_id", article.ID.String()),
		slog.Int("chunks", len(rows)),
		slog.Bool("fallback", usedFallback))
	return nil
}
