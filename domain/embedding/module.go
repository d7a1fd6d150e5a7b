package embedding

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/newsloom/newsloom/domain/diagnostics"
	"github.com/newsloom/newsloom/internal/config"
	"github.com/newsloom/newsloom/pkg/ollama"
)

// Module provides embedding dependencies.
var Module = fx.Module("embedding",
	fx.Provide(NewRepository),
	fx.Provide(func(repo *Repository, llm *ollama.Client, diag *diagnostics.Recorder, cfg *config.Config, log *slog.Logger) *Service {
		return NewService(repo, llm, diag, cfg.Embedding, cfg.Worker.Lease, log)
	}),
)
