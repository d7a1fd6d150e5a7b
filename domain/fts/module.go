package fts

import (
	"log/slog"

	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/newsloom/newsloom/internal/config"
)

// Module provides FTS dependencies.
var Module = fx.Module("fts",
	fx.Provide(func(db *bun.DB, cfg *config.Config, log *slog.Logger) *Service {
		return NewService(db, cfg.FTS, log)
	}),
)
