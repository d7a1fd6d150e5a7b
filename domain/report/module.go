package report

import (
	"go.uber.org/fx"

	"github.com/newsloom/newsloom/internal/config"
)

// Module provides report dependencies.
var Module = fx.Module("report",
	fx.Provide(NewService),
	fx.Provide(func(cfg *config.Config) *Telegram {
		return NewTelegram(cfg.Telegram)
	}),
)
