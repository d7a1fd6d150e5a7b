package articles

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/newsloom/newsloom/domain/diagnostics"
	"github.com/newsloom/newsloom/internal/config"
)

// Module provides article dependencies.
var Module = fx.Module("articles",
	fx.Provide(NewRepository),
	fx.Provide(func(repo *Repository, diag *diagnostics.Recorder, cfg *config.Config, log *slog.Logger) *Worker {
		return NewWorker(repo, diag, cfg.Worker, log)
	}),
)
