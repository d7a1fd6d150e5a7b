package feeds

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/newsloom/newsloom/domain/diagnostics"
	"github.com/newsloom/newsloom/internal/config"
)

// Module provides feed dependencies.
var Module = fx.Module("feeds",
	fx.Provide(NewRepository),
	fx.Provide(func(repo *Repository, diag *diagnostics.Recorder, cfg *config.Config, log *slog.Logger) *Poller {
		return NewPoller(repo, diag, cfg.Poller, log)
	}),
)
