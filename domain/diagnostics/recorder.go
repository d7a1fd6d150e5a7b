package diagnostics

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/newsloom/newsloom/pkg/logger"
)

// Module provides the diagnostics recorder.
var Module = fx.Module("diagnostics",
	fx.Provide(NewRecorder),
)

// Recorder appends diagnostics. Recording never fails the caller: a
// write error is logged and swallowed so a broken diagnostics table
// cannot take the pipeline down with it.
type Recorder struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRecorder creates a Recorder.
func NewRecorder(db bun.IDB, log *slog.Logger) *Recorder {
	return &Recorder{
		db:  db,
		log: log.With(logger.Scope("diagnostics")),
	}
}

// Record appends one diagnostic entry.
func (r *Recorder) Record(ctx context.Context, d Diagnostic) {
	if d.Level == "" {
		d.Level = LevelError
	}

	if r.db == nil {
		r.log.Warn("diagnostic dropped, no database",
			slog.String("component", d.Component),
			slog.String("kind", d.Kind),
			slog.String("message", d.Message))
		return
	}

	if _, err := r.db.NewInsert().Model(&d).Exec(ctx); err != nil {
		r.log.Error("failed to record diagnostic",
			logger.Error(err),
			slog.String("component", d.Component),
			slog.String("kind", d.Kind),
			slog.String("message", d.Message))
		return
	}

	r.log.Debug("diagnostic recorded",
		slog.String("component", d.Component),
		slog.String("kind", d.Kind))
}

// Error records an error-level diagnostic for an article.
func (r *Recorder) Error(ctx context.Context, component, kind, message string, articleID *uuid.UUID, details map[string]any) {
	r.Record(ctx, Diagnostic{
		Level:     LevelError,
		Component: component,
		Kind:      kind,
		Message:   message,
		ArticleID: articleID,
		Details:   details,
	})
}

// Warn records a warn-level diagnostic.
func (r *Recorder) Warn(ctx context.Context, component, kind, message string, articleID *uuid.UUID, details map[string]any) {
	r.Record(ctx, Diagnostic{
		Level:     LevelWarn,
		Component: component,
		Kind:      kind,
		Message:   message,
		ArticleID: articleID,
		Details:   details,
	})
}
