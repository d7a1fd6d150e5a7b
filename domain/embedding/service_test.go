package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsloom/newsloom/domain/chunking"
	"github.com/newsloom/newsloom/domain/diagnostics"
	"github.com/newsloom/newsloom/internal/config"
	"github.com/newsloom/newsloom/pkg/logger"
	"github.com/newsloom/newsloom/pkg/ollama"
)

// fakeStore records writes instead of touching Postgres.
type fakeStore struct {
	pending  []chunking.ArticleChunk
	written  map[uuid.UUID][]float32
	failed   map[uuid.UUID]int
	writeErr error
}

func newFakeStore(chunks ...chunking.ArticleChunk) *fakeStore {
	return &fakeStore{
		pending: chunks,
		written: make(map[uuid.UUID][]float32),
		failed:  make(map[uuid.UUID]int),
	}
}

func (f *fakeStore) ClaimChunks(ctx context.Context, workerID string, limit, maxAttempts int, lease time.Duration) ([]chunking.ArticleChunk, error) {
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeStore) WriteVector(ctx context.Context, chunkID uuid.UUID, vector []float32) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written[chunkID] = vector
	return nil
}

func (f *fakeStore) MarkFailed(ctx context.Context, chunk *chunking.ArticleChunk, maxAttempts int) error {
	f.failed[chunk.ID]++
	return nil
}

func newTestService(t *testing.T, store Store, embeddings [][]float32) *Service {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embeddings": embeddings})
	}))
	t.Cleanup(srv.Close)

	log := logger.NewLogger()
	llm := ollama.NewClient(ollama.Config{BaseURL: srv.URL, MaxRetries: 1}, log)
	diag := diagnostics.NewRecorder(nil, log)

	cfg := config.EmbeddingConfig{
		Model:     "nomic-embed-text",
		Dimension: 3,
		BatchSize: 64,
		Batch:     200,
		Interval:  time.Second,
	}
	return NewService(store, llm, diag, cfg, 5*time.Minute, log)
}

func chunk(text string) chunking.ArticleChunk {
	return chunking.ArticleChunk{
		ID:        uuid.New(),
		ArticleID: uuid.New(),
		Text:      text,
	}
}

func TestRunOnceEmbedsBatch(t *testing.T) {
	a, b := chunk("first"), chunk("second")
	store := newFakeStore(a, b)
	svc := newTestService(t, store, [][]float32{{1, 0, 0}, {0, 1, 0}})

	stats, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Claimed: 2, Embedded: 2, Failed: 0}, stats)
	assert.Equal(t, []float32{1, 0, 0}, store.written[a.ID])
	assert.Equal(t, []float32{0, 1, 0}, store.written[b.ID])
}

func TestRunOncePartialBatchOneBadVector(t *testing.T) {
	// One vector of the right dimension, one short. The good one is
	// written; the bad one gets an attempt bump, not a write.
	good, bad := chunk("good"), chunk("bad")
	store := newFakeStore(good, bad)
	svc := newTestService(t, store, [][]float32{{1, 0, 0}, {1, 0}})

	stats, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Claimed: 2, Embedded: 1, Failed: 1}, stats)
	assert.Contains(t, store.written, good.ID)
	assert.NotContains(t, store.written, bad.ID)
	assert.Equal(t, 1, store.failed[bad.ID])
}

func TestRunOnceWriteFailureBumpsAttempts(t *testing.T) {
	// A failed vector write must advance the attempt counter or the
	// chunk would be reclaimed forever after each lease expiry.
	a := chunk("a")
	store := newFakeStore(a)
	store.writeErr = errStr("ERROR: expected 768 dimensions, not 3 (SQLSTATE 22000)")
	svc := newTestService(t, store, [][]float32{{1, 0, 0}})

	stats, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Claimed: 1, Embedded: 0, Failed: 1}, stats)
	assert.Equal(t, 1, store.failed[a.ID])
	assert.Empty(t, store.written)
}

type errStr string

func (e errStr) Error() string { return string(e) }

func TestRunOnceEmptyQueue(t *testing.T) {
	svc := newTestService(t, newFakeStore(), nil)

	stats, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestRunOnceTransportFailureReenqueues(t *testing.T) {
	a := chunk("a")
	store := newFakeStore(a)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	log := logger.NewLogger()
	llm := ollama.NewClient(ollama.Config{BaseURL: srv.URL, MaxRetries: 1}, log)
	svc := NewService(store, llm, diagnostics.NewRecorder(nil, log), config.EmbeddingConfig{
		Model: "m", Dimension: 3, BatchSize: 64, Batch: 200, Interval: time.Second,
	}, 5*time.Minute, log)

	stats, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Claimed: 1, Embedded: 0, Failed: 1}, stats)
	assert.Equal(t, 1, store.failed[a.ID])
	assert.Empty(t, store.written)
}
