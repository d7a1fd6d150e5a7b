package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/newsloom/newsloom/domain/chunking"
	"github.com/newsloom/newsloom/domain/diagnostics"
	"github.com/newsloom/newsloom/internal/config"
	"github.com/newsloom/newsloom/pkg/logger"
	"github.com/newsloom/newsloom/pkg/ollama"
)

// maxAttempts is the per-chunk embedding retry budget.
const maxAttempts = 3

// Stats summarizes one embedding pass.
type Stats struct {
	Claimed  int
	Embedded int
	Failed   int
}

// Store is the persistence surface the service needs; Repository is
// the production implementation.
type Store interface {
	ClaimChunks(ctx context.Context, workerID string, limit, maxAttempts int, lease time.Duration) ([]chunking.ArticleChunk, error)
	WriteVector(ctx context.Context, chunkID uuid.UUID, vector []float32) error
	MarkFailed(ctx context.Context, chunk *chunking.ArticleChunk, maxAttempts int) error
}

// Service is the continuous embedding loop. The configured dimension
// is an invariant: a vector of any other length is never written.
type Service struct {
	repo      Store
	llm       *ollama.Client
	diag      *diagnostics.Recorder
	cfg       config.EmbeddingConfig
	lease     time.Duration
	workerID  string
	log       *slog.Logger
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// NewService creates the embedding Service.
func NewService(repo Store, llm *ollama.Client, diag *diagnostics.Recorder, cfg config.EmbeddingConfig, lease time.Duration, log *slog.Logger) *Service {
	host, _ := os.Hostname()
	return &Service{
		repo:      repo,
		llm:       llm,
		diag:      diag,
		cfg:       cfg,
		lease:     lease,
		workerID:  fmt.Sprintf("embed-%s-%s", host, uuid.NewString()[:8]),
		log:       log.With(logger.Scope("embedding")),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start runs the loop until Stop is called.
func (s *Service) Start(ctx context.Context) {
	s.log.Info("embedding service started",
		slog.String("model", s.cfg.Model),
		slog.Int("dimension", s.cfg.Dimension),
		slog.Duration("interval", s.cfg.Interval))

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
					s.log.Error("embedding tick failed", logger.Error(err))
				}
			}
		}
	}()
}

// Stop signals the loop and waits for the in-flight tick to drain.
func (s *Service) Stop() {
	close(s.stopCh)
	<-s.stoppedCh
	s.log.Info("embedding service stopped")
}

// RunOnce claims one batch of unembedded chunks and embeds them in
// sub-batches of the model's batch limit. Partial failures write the
// good vectors and re-enqueue the bad chunks.
func (s *Service) RunOnce(ctx context.Context) (Stats, error) {
	claimed, err := s.repo.ClaimChunks(ctx, s.workerID, s.cfg.Batch, maxAttempts, s.lease)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Claimed: len(claimed)}

	for start := 0; start < len(claimed); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(claimed))
		batch := claimed[start:end]

		embedded, failed := s.embedBatch(ctx, batch)
		stats.Embedded += embedded
		stats.Failed += failed
	}

	if stats.Claimed > 0 {
		s.log.Info("embedding pass complete",
			slog.Int("claimed", stats.Claimed),
			slog.Int("embedded", stats.Embedded),
			slog.Int("failed", stats.Failed))
	}
	return stats, nil
}

func (s *Service) embedBatch(ctx context.Context, batch []chunking.ArticleChunk) (embedded, failed int) {
	texts := make([]string, len(batch))
	for i, chunk := range batch {
		texts[i] = chunk.Text
	}

	vectors, err := s.llm.Embed(ctx, s.cfg.Model, texts)
	if err != nil {
		s.log.Warn("embed call failed, re-enqueueing batch", logger.Error(err))
		s.diag.Error(ctx, "embedding", diagnostics.KindTransientIO, err.Error(), nil,
			map[string]any{"batch_size": len(batch)})

		for i := range batch {
			if markErr := s.repo.MarkFailed(ctx, &batch[i], maxAttempts); markErr != nil {
				s.log.Error("failed to mark chunk failed", logger.Error(markErr))
			}
		}
		return 0, len(batch)
	}

	for i := range batch {
		chunk := &batch[i]
		vector := vectors[i]

		if len(vector) != s.cfg.Dimension {
			s.diag.Error(ctx, "embedding", diagnostics.KindDimensionMismatch,
				fmt.Sprintf("got dimension %d, want %d", len(vector), s.cfg.Dimension),
				&chunk.ArticleID,
				map[string]any{"chunk_id": chunk.ID.String(), "attempt": chunk.EmbeddingAttempts + 1})

			if err := s.repo.MarkFailed(ctx, chunk, maxAttempts); err != nil {
				s.log.Error("failed to mark chunk failed", logger.Error(err))
			}
			failed++
			continue
		}

		if err := s.repo.WriteVector(ctx, chunk.ID, vector); err != nil {
			s.log.Error("failed to write vector", logger.Error(err))
			s.diag.Error(ctx, "embedding", diagnostics.KindTransientIO, err.Error(),
				&chunk.ArticleID,
				map[string]any{"chunk_id": chunk.ID.String(), "attempt": chunk.EmbeddingAttempts + 1})

			// The attempt counter must advance or a persistent write
			// error would recycle the chunk forever via lease expiry.
			if markErr := s.repo.MarkFailed(ctx, chunk, maxAttempts); markErr != nil {
				s.log.Error("failed to mark chunk failed", logger.Error(markErr))
			}
			failed++
			continue
		}
		embedded++
	}
	return embedded, failed
}
