// Package diagnostics records pipeline failures into an append-only
// table so operators can inspect why an article stalled without
// grepping service logs.
package diagnostics

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Kind classifies a diagnostic event. unique_violation is deliberately
// absent: a duplicate insert is the normal dedup path, not a failure.
const (
	KindConfigError       = "config_error"
	KindTransientIO       = "transient_io"
	KindPermanentIO       = "permanent_io"
	KindParseError        = "parse_error"
	KindDimensionMismatch = "dimension_mismatch"
	KindLeaseExpired      = "lease_expired"
)

// Levels for diagnostic entries.
const (
	LevelWarn  = "warn"
	LevelError = "error"
)

// Diagnostic is one append-only failure record.
type Diagnostic struct {
	bun.BaseModel `bun:"table:news.diagnostics"`

	ID         uuid.UUID      `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Level      string         `bun:"level,notnull"`
	Component  string         `bun:"component,notnull"`
	Kind       string         `bun:"kind,notnull"`
	Message    string         `bun:"message,notnull"`
	ArticleID  *uuid.UUID     `bun:"article_id,type:uuid"`
	Details    map[string]any `bun:"details,type:jsonb"`
	OccurredAt time.Time      `bun:"occurred_at,notnull,default:now()"`
}
