// Package migrate provides database migration functionality using Goose.
package migrate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/newsloom/newsloom/migrations"
	"github.com/newsloom/newsloom/pkg/logger"
)

// Module provides migration dependencies.
var Module = fx.Options(
	fx.Provide(NewMigrator),
)

// Migrator handles schema migrations.
type Migrator struct {
	db  *bun.DB
	log *slog.Logger
}

// NewMigrator creates a new Migrator instance.
func NewMigrator(db *bun.DB, log *slog.Logger) *Migrator {
	return &Migrator{
		db:  db,
		log: log.With(logger.Scope("migrator")),
	}
}

// Up runs all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	m.log.Info("running database migrations")

	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, m.db.DB, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	m.log.Info("migrations completed")
	return nil
}

// Down rolls back the last migration.
func (m *Migrator) Down(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.DownContext(ctx, m.db.DB, "."); err != nil {
		return fmt.Errorf("rollback migration: %w", err)
	}

	return nil
}

// Status prints the current migration status.
func (m *Migrator) Status(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.StatusContext(ctx, m.db.DB, "."); err != nil {
		return fmt.Errorf("migration status: %w", err)
	}

	return nil
}

// Verify checks that the pgvector extension is installed and the news
// schema is present. Run after Up by the ensure command.
func (m *Migrator) Verify(ctx context.Context) error {
	var hasVector bool
	err := m.db.NewRaw(`SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'vector')`).
		Scan(ctx, &hasVector)
	if err != nil {
		return fmt.Errorf("check pgvector: %w", err)
	}
	if !hasVector {
		return fmt.Errorf("pgvector extension is not installed")
	}

	var hasSchema bool
	err = m.db.NewRaw(`SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = 'news')`).
		Scan(ctx, &hasSchema)
	if err != nil {
		return fmt.Errorf("check schema: %w", err)
	}
	if !hasSchema {
		return fmt.Errorf("schema 'news' is missing")
	}

	return nil
}
