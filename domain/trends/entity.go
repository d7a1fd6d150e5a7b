// Package trends surfaces trending topics by clustering recent article
// embeddings and scoring cluster dynamics over time.
package trends

import (
	"time"

	"github.com/google/uuid"
)

// ArticleVector is one canonical article with its first-chunk
// embedding, as fetched for a trends window. PublishedAt is parsed at
// the storage boundary; nothing downstream handles string dates.
type ArticleVector struct {
	ArticleID   uuid.UUID
	Title       string
	ChunkText   string
	PublishedAt time.Time
	Embedding   []float32
}

// Trend is one ranked cluster.
type Trend struct {
	Label          string    `json:"label"`
	Keywords       []string  `json:"keywords"`
	Volume         int       `json:"volume"`
	Momentum       float64   `json:"momentum"`
	BurstIntensity float64   `json:"burst_intensity"`
	Score          float64   `json:"score"`
	SampleTitles   []string  `json:"sample_titles"`
	FirstSeen      time.Time `json:"first_seen"`
	LastSeen       time.Time `json:"last_seen"`
}
