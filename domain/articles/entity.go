// Package articles owns the raw article queue and the canonical
// article index, including the claim-fetch-extract-dedup worker.
package articles

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Raw article statuses. Transitions are monotonic:
// pending -> fetching -> {stored, duplicate, error}, with
// fetching -> pending allowed only for retry re-enqueue.
const (
	RawStatusPending   = "pending"
	RawStatusFetching  = "fetching"
	RawStatusStored    = "stored"
	RawStatusDuplicate = "duplicate"
	RawStatusError     = "error"
)

// Chunking statuses on the canonical index.
const (
	ChunkingPending = "pending"
	ChunkingDone    = "done"
	ChunkingError   = "error"
)

// RawArticle is one discovered feed entry awaiting fetch and
// normalization.
type RawArticle struct {
	bun.BaseModel `bun:"table:news.raw_articles"`

	ID                 uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	FeedID             *uuid.UUID `bun:"feed_id,type:uuid"`
	URL                string     `bun:"url,notnull"`
	URLHash            string     `bun:"url_hash,notnull"`
	GUID               *string    `bun:"guid"`
	SourceDomain       *string    `bun:"source_domain"`
	Title              *string    `bun:"title"`
	Summary            *string    `bun:"summary"`
	Language           *string    `bun:"language"`
	PublishedAt        *time.Time `bun:"published_at"`
	FetchedAt          *time.Time `bun:"fetched_at"`
	Status             string     `bun:"status,notnull,default:'pending'"`
	AttemptCount       int        `bun:"attempt_count,notnull,default:0"`
	NextAttemptAt      time.Time  `bun:"next_attempt_at,notnull,default:now()"`
	LastError          *string    `bun:"last_error"`
	CanonicalArticleID *uuid.UUID `bun:"canonical_article_id,type:uuid"`
	ClaimedAt          *time.Time `bun:"claimed_at"`
	ClaimedBy          *string    `bun:"claimed_by"`
	CreatedAt          time.Time  `bun:"created_at,notnull,default:now()"`
	UpdatedAt          time.Time  `bun:"updated_at,notnull,default:now()"`
}

// ArticleIndex is a normalized, deduplicated article. clean_text and
// title_norm are immutable after insert.
type ArticleIndex struct {
	bun.BaseModel `bun:"table:news.articles_index"`

	ID                 uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	URL                string     `bun:"url,notnull"`
	CanonicalURL       string     `bun:"canonical_url,notnull"`
	Source             *string    `bun:"source"`
	Domain             *string    `bun:"domain"`
	TitleNorm          string     `bun:"title_norm,notnull"`
	CleanText          string     `bun:"clean_text,notnull"`
	TextHash           string     `bun:"text_hash,notnull"`
	PublishedAt        *time.Time `bun:"published_at"`
	Language           string     `bun:"language,notnull,default:'en'"`
	IsCanonical        bool       `bun:"is_canonical,notnull,default:true"`
	CanonicalArticleID *uuid.UUID `bun:"canonical_article_id,type:uuid"`
	ChunkingStatus     string     `bun:"chunking_status,notnull,default:'pending'"`
	ClaimedAt          *time.Time `bun:"claimed_at"`
	ClaimedBy          *string    `bun:"claimed_by"`
	CreatedAt          time.Time  `bun:"created_at,notnull,default:now()"`
}
