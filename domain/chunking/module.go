package chunking

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/newsloom/newsloom/domain/diagnostics"
	"github.com/newsloom/newsloom/internal/config"
	"github.com/newsloom/newsloom/pkg/ollama"
)

// Module provides chunking dependencies.
var Module = fx.Module("chunking",
	fx.Provide(NewRepository),
	fx.Provide(func(llm *ollama.Client, cfg *config.Config, log *slog.Logger) *Chunker {
		return NewChunker(llm, cfg.Ollama.Model, cfg.Chunking.MaxChars, log)
	}),
	fx.Provide(func(repo *Repository, chunker *Chunker, diag *diagnostics.Recorder, cfg *config.Config, log *slog.Logger) *Service {
		return NewService(repo, chunker, diag, cfg.Chunking, log)
	}),
)
