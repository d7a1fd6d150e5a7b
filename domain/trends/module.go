package trends

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/newsloom/newsloom/internal/config"
)

// Module provides trends dependencies.
var Module = fx.Module("trends",
	fx.Provide(NewRepository),
	fx.Provide(func(cfg *config.Config, log *slog.Logger) Cache {
		return NewCache(cfg.Redis, log)
	}),
	fx.Provide(func(repo *Repository, cache Cache, cfg *config.Config, log *slog.Logger) *Service {
		return NewService(repo, cache, cfg.Trends, log)
	}),
)
