package cli

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"

	"github.com/newsloom/newsloom/domain/diagnostics"
	"github.com/newsloom/newsloom/internal/config"
	"github.com/newsloom/newsloom/internal/database"
	"github.com/newsloom/newsloom/pkg/logger"
	"github.com/newsloom/newsloom/pkg/ollama"
)

// app is the hand-wired bootstrap for one-shot commands. Long-running
// commands go through fx instead (see services.go).
type app struct {
	cfg  *config.Config
	log  *slog.Logger
	pool *pgxpool.Pool
	db   *bun.DB
	diag *diagnostics.Recorder
}

func openApp(ctx context.Context) (*app, error) {
	log := logger.NewLogger()

	cfg, err := config.NewConfig(log)
	if err != nil {
		return nil, err
	}

	pool, err := database.OpenPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	db := database.OpenBun(pool, cfg, log)

	return &app{
		cfg:  cfg,
		log:  log,
		pool: pool,
		db:   db,
		diag: diagnostics.NewRecorder(db, log),
	}, nil
}

func (a *app) close() {
	_ = a.db.Close()
	a.pool.Close()
}

func (a *app) llm() *ollama.Client {
	return ollama.NewClient(ollama.FromConfig(a.cfg), a.log)
}
