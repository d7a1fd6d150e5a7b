package search

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/newsloom/newsloom/internal/config"
	"github.com/newsloom/newsloom/pkg/ollama"
)

// Module provides search dependencies.
var Module = fx.Module("search",
	fx.Provide(NewRepository),
	fx.Provide(func(repo *Repository, llm *ollama.Client, cfg *config.Config, log *slog.Logger) *Service {
		return NewService(repo, llm, cfg.Embedding, log)
	}),
)
