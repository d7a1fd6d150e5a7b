package feeds

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsloom/newsloom/domain/articles"
	"github.com/newsloom/newsloom/domain/diagnostics"
	"github.com/newsloom/newsloom/internal/config"
	"github.com/newsloom/newsloom/pkg/logger"
)

// fakeFeedStore serves a fixed due list and records state transitions.
type fakeFeedStore struct {
	due      []Feed
	enqueued []*articles.RawArticle
	polled   []uuid.UUID
	failed   map[uuid.UUID]string
}

func newFakeFeedStore(due ...Feed) *fakeFeedStore {
	return &fakeFeedStore{due: due, failed: make(map[uuid.UUID]string)}
}

func (f *fakeFeedStore) Due(context.Context, time.Time, int) ([]Feed, error) {
	return f.due, nil
}

func (f *fakeFeedStore) MarkPolled(_ context.Context, feed *Feed, _, _ *string, _ time.Time) error {
	f.polled = append(f.polled, feed.ID)
	return nil
}

func (f *fakeFeedStore) MarkNotModified(context.Context, *Feed, time.Time) error {
	return nil
}

func (f *fakeFeedStore) MarkFailed(_ context.Context, feed *Feed, reason string, _, _ time.Duration, _ int) error {
	f.failed[feed.ID] = reason
	return nil
}

func (f *fakeFeedStore) EnqueueRaw(_ context.Context, raw *articles.RawArticle) (bool, error) {
	f.enqueued = append(f.enqueued, raw)
	return true, nil
}

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example</title>
    <link>https://example.com</link>
    <language>en-US</language>
    <item>
      <title>First story</title>
      <link>https://example.com/a?utm_source=rss</link>
      <guid>a-1</guid>
    </item>
  </channel>
</rss>`

func newTestPoller(store Store) *Poller {
	cfg := config.PollerConfig{
		BatchSize:    10,
		Workers:      2,
		Interval:     30 * time.Minute,
		FetchTimeout: 5 * time.Second,
		BackoffBase:  5 * time.Minute,
		BackoffCap:   6 * time.Hour,
		MaxFailures:  10,
		DeniedParams: []string{"utm_source"},
	}
	log := logger.NewLogger()
	return NewPoller(store, diagnostics.NewRecorder(nil, log), cfg, log)
}

func TestPollAcceptsAny2xxStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(testRSS))
	}))
	t.Cleanup(srv.Close)

	store := newFakeFeedStore(Feed{ID: uuid.New(), URL: srv.URL})
	p := newTestPoller(store)

	stats, err := p.Poll(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FeedsPolled)
	assert.Equal(t, 0, stats.FeedsFailed, "a 202 response is a successful fetch")
	assert.Equal(t, 1, stats.EntriesEnqueued)
	assert.Len(t, store.polled, 1)
	assert.Empty(t, store.failed)

	require.Len(t, store.enqueued, 1)
	raw := store.enqueued[0]
	assert.Equal(t, "https://example.com/a", raw.URL)
	require.NotNil(t, raw.Language)
	assert.Equal(t, "en", *raw.Language, "channel language reduced to its primary subtag")
}

func TestPollServerErrorBacksOff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	feed := Feed{ID: uuid.New(), URL: srv.URL}
	store := newFakeFeedStore(feed)
	p := newTestPoller(store)

	stats, err := p.Poll(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FeedsFailed)
	assert.Empty(t, store.enqueued)
	assert.Equal(t, "fetch: status 500", store.failed[feed.ID])
}

func TestFeedLanguage(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"en-US", "en"},
		{"pt_BR", "pt"},
		{"DE", "de"},
		{"fil", "fil"},
		{"", ""},
		{"x", ""},
		{"english", ""},
		{"e1", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, feedLanguage(tt.tag), "tag=%q", tt.tag)
	}
}

func TestBackoffAfter(t *testing.T) {
	base := 5 * time.Minute
	ceil := 6 * time.Hour

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, 5 * time.Minute},
		{1, 5 * time.Minute},
		{2, 10 * time.Minute},
		{3, 20 * time.Minute},
		{4, 40 * time.Minute},
		{5, 80 * time.Minute},
		{6, 160 * time.Minute},
		{7, 320 * time.Minute},
		{8, 6 * time.Hour},
		{20, 6 * time.Hour},
		{100, 6 * time.Hour},
	}

	for _, tt := range tests {
		got := backoffAfter(tt.failures, base, ceil)
		assert.Equal(t, tt.want, got, "failures=%d", tt.failures)
	}
}

func TestWriteStateIdempotent(t *testing.T) {
	dir := t.TempDir()
	p := NewPoller(nil, nil, config.PollerConfig{StateDir: dir}, logger.NewLogger())

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stats := PollStats{FeedsPolled: 3, EntriesEnqueued: 7}

	require.NoError(t, p.writeState(now, stats))
	require.NoError(t, p.writeState(now, stats))

	data, err := os.ReadFile(filepath.Join(dir, "poll_state.json"))
	require.NoError(t, err)

	var st pollState
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, now, st.LastRunAt)
	assert.Equal(t, 3, st.Stats.FeedsPolled)
	assert.Equal(t, 7, st.Stats.EntriesEnqueued)
}

func TestWriteStateDisabled(t *testing.T) {
	p := NewPoller(nil, nil, config.PollerConfig{}, logger.NewLogger())
	assert.NoError(t, p.writeState(time.Now(), PollStats{}))
}
