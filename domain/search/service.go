package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/newsloom/newsloom/internal/config"
	"github.com/newsloom/newsloom/pkg/logger"
	"github.com/newsloom/newsloom/pkg/ollama"
)

// rrfK dampens the rank contribution in reciprocal rank fusion.
const rrfK = 60

// Service fuses the lexical and semantic legs into one ranked list.
type Service struct {
	repo *Repository
	llm  *ollama.Client
	cfg  config.EmbeddingConfig
	log  *slog.Logger
}

// NewService creates the search Service.
func NewService(repo *Repository, llm *ollama.Client, cfg config.EmbeddingConfig, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		llm:  llm,
		cfg:  cfg,
		log:  log.With(logger.Scope("search")),
	}
}

// Search embeds the query, runs both legs and merges them with
// reciprocal rank fusion. A failed embedding degrades to lexical-only
// rather than failing the query.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	fetchLimit := limit * 2

	lexical, err := s.repo.Lexical(ctx, query, fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var semantic []Hit
	vectors, err := s.llm.Embed(ctx, s.cfg.Model, []string{query})
	if err != nil || len(vectors) != 1 || len(vectors[0]) != s.cfg.Dimension {
		s.log.Warn("query embedding unavailable, lexical only", logger.Error(err))
	} else {
		semantic, err = s.repo.Semantic(ctx, vectors[0], fetchLimit)
		if err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
	}

	merged := fuse(lexical, semantic)
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// fuse merges the two result lists by reciprocal rank fusion: each hit
// scores 1/(k + rank) per list it appears in.
func fuse(lists ...[]Hit) []Hit {
	type entry struct {
		hit   Hit
		score float64
	}
	byChunk := make(map[uuid.UUID]*entry)

	for _, list := range lists {
		for rank, hit := range list {
			contribution := 1.0 / float64(rrfK+rank+1)
			if e, ok := byChunk[hit.ChunkID]; ok {
				e.score += contribution
			} else {
				byChunk[hit.ChunkID] = &entry{hit: hit, score: contribution}
			}
		}
	}

	merged := make([]Hit, 0, len(byChunk))
	for _, e := range byChunk {
		e.hit.Score = e.score
		merged = append(merged, e.hit)
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ChunkID.String() < merged[j].ChunkID.String()
	})
	return merged
}
