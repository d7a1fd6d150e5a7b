package articles

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsloom/newsloom/domain/diagnostics"
	"github.com/newsloom/newsloom/internal/config"
)

// fakeWorkerStore keeps canonical articles in a map keyed by text_hash
// and records raw status transitions.
type fakeWorkerStore struct {
	byHash     map[string]*ArticleIndex
	insertErr  error
	raceWinner *ArticleIndex

	stored     []uuid.UUID
	duplicates []uuid.UUID
	errored    map[uuid.UUID]string
	retried    map[uuid.UUID]string
}

func newFakeWorkerStore() *fakeWorkerStore {
	return &fakeWorkerStore{
		byHash:  make(map[string]*ArticleIndex),
		errored: make(map[uuid.UUID]string),
		retried: make(map[uuid.UUID]string),
	}
}

func (f *fakeWorkerStore) Claim(context.Context, string, int, int) ([]RawArticle, error) {
	return nil, nil
}

func (f *fakeWorkerStore) Retry(_ context.Context, raw *RawArticle, reason string, _ time.Duration) error {
	f.retried[raw.ID] = reason
	return nil
}

func (f *fakeWorkerStore) MarkError(_ context.Context, raw *RawArticle, reason string) error {
	f.errored[raw.ID] = reason
	return nil
}

func (f *fakeWorkerStore) MarkStored(_ context.Context, raw *RawArticle, _ uuid.UUID) error {
	f.stored = append(f.stored, raw.ID)
	return nil
}

func (f *fakeWorkerStore) MarkDuplicate(_ context.Context, raw *RawArticle, _ uuid.UUID) error {
	f.duplicates = append(f.duplicates, raw.ID)
	return nil
}

func (f *fakeWorkerStore) FindCanonicalByTextHash(_ context.Context, textHash string) (*ArticleIndex, error) {
	return f.byHash[textHash], nil
}

func (f *fakeWorkerStore) InsertCanonical(_ context.Context, article *ArticleIndex) error {
	if f.insertErr != nil {
		err := f.insertErr
		f.insertErr = nil
		if f.raceWinner != nil {
			f.byHash[article.TextHash] = f.raceWinner
		}
		return err
	}
	article.ID = uuid.New()
	f.byHash[article.TextHash] = article
	return nil
}

func newTestWorker(store Store) *Worker {
	cfg := config.WorkerConfig{
		BatchSize:    10,
		Workers:      2,
		FetchTimeout: 5 * time.Second,
		MaxBodyBytes: 1 << 20,
		MaxAttempts:  3,
		MinTextChars: 200,
		Lease:        time.Minute,
	}
	diag := diagnostics.NewRecorder(nil, slog.Default())
	return NewWorker(store, diag, cfg, slog.Default())
}

func serveHTML(t *testing.T, html string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestWorkerSameTextHashIsDeduplicated(t *testing.T) {
	store := newFakeWorkerStore()
	w := newTestWorker(store)
	url := serveHTML(t, articleHTML)

	lang := "de"
	first := &RawArticle{ID: uuid.New(), URL: url, Language: &lang}
	second := &RawArticle{ID: uuid.New(), URL: url, Language: &lang}

	assert.Equal(t, RawStatusStored, w.processOne(context.Background(), first))
	assert.Equal(t, RawStatusDuplicate, w.processOne(context.Background(), second))

	require.Len(t, store.byHash, 1, "one canonical article for one text_hash")
	assert.Equal(t, []uuid.UUID{first.ID}, store.stored)
	assert.Equal(t, []uuid.UUID{second.ID}, store.duplicates)

	for _, article := range store.byHash {
		assert.Equal(t, "de", article.Language, "language carried from the raw entry")
	}
}

func TestWorkerDefaultsLanguage(t *testing.T) {
	store := newFakeWorkerStore()
	w := newTestWorker(store)
	url := serveHTML(t, articleHTML)

	raw := &RawArticle{ID: uuid.New(), URL: url}
	assert.Equal(t, RawStatusStored, w.processOne(context.Background(), raw))

	for _, article := range store.byHash {
		assert.Equal(t, "en", article.Language)
	}
}

func TestWorkerRejectsTooShort(t *testing.T) {
	store := newFakeWorkerStore()
	w := newTestWorker(store)
	url := serveHTML(t, `<html><head><title>t</title></head><body><p>tiny</p></body></html>`)

	raw := &RawArticle{ID: uuid.New(), URL: url}
	assert.Equal(t, RawStatusError, w.processOne(context.Background(), raw))
	assert.Equal(t, "too_short", store.errored[raw.ID])
	assert.Empty(t, store.byHash, "nothing inserted below the minimum length")
}

func TestDedupInsertRaceReLookup(t *testing.T) {
	store := newFakeWorkerStore()
	w := newTestWorker(store)

	winner := &ArticleIndex{ID: uuid.New(), TextHash: "h1"}
	store.insertErr = errors.New("duplicate key value violates unique constraint (SQLSTATE 23505)")
	store.raceWinner = winner

	id, isDuplicate, err := w.dedupInsert(context.Background(), &ArticleIndex{TextHash: "h1"})
	require.NoError(t, err)
	assert.True(t, isDuplicate)
	assert.Equal(t, winner.ID, id)
}

func TestDedupInsertOtherErrorPropagates(t *testing.T) {
	store := newFakeWorkerStore()
	w := newTestWorker(store)

	store.insertErr = errors.New("connection refused")
	store.raceWinner = &ArticleIndex{ID: uuid.New(), TextHash: "h1"}

	_, _, err := w.dedupInsert(context.Background(), &ArticleIndex{TextHash: "h1"})
	assert.ErrorContains(t, err, "connection refused")
}
