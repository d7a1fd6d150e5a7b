// Package feeds owns feed registration and the RSS polling pass.
package feeds

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Feed statuses.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
	StatusError    = "error"
)

// Feed is one registered RSS/Atom source.
type Feed struct {
	bun.BaseModel `bun:"table:news.feeds"`

	ID                  uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	URL                 string     `bun:"url,notnull"`
	Status              string     `bun:"status,notnull,default:'active'"`
	LastFetchedAt       *time.Time `bun:"last_fetched_at"`
	LastETag            *string    `bun:"last_etag"`
	LastModified        *string    `bun:"last_modified"`
	ConsecutiveFailures int        `bun:"consecutive_failures,notnull,default:0"`
	NextPollAt          time.Time  `bun:"next_poll_at,notnull,default:now()"`
	CreatedAt           time.Time  `bun:"created_at,notnull,default:now()"`
	UpdatedAt           time.Time  `bun:"updated_at,notnull,default:now()"`
}

// PollStats summarizes one polling pass.
type PollStats struct {
	FeedsPolled      int
	FeedsNotModified int
	FeedsFailed      int
	EntriesSeen      int
	EntriesEnqueued  int
}
