package trends

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsloom/newsloom/internal/config"
	"github.com/newsloom/newsloom/pkg/logger"
)

type fakeStore struct {
	articles []ArticleVector
	calls    int
}

func (f *fakeStore) FetchWindow(ctx context.Context, windowHours, limit int) ([]ArticleVector, error) {
	f.calls++
	if len(f.articles) > limit {
		return f.articles[:limit], nil
	}
	return f.articles, nil
}

func testConfig() config.TrendsConfig {
	return config.TrendsConfig{
		WindowHours: 24,
		Limit:       600,
		TopN:        10,
		Eps:         0.30,
		MinSamples:  5,
		Keywords:    6,
		CacheTTL:    10 * time.Minute,
	}
}

func newTrendsService(store Store) *Service {
	return NewService(store, newMemoryCache(), testConfig(), logger.NewLogger())
}

// clusterArticles makes n near-identical articles around an angle,
// published at the given hours-ago offsets.
func clusterArticles(now time.Time, angle float64, text string, hoursAgo []float64) []ArticleVector {
	out := make([]ArticleVector, len(hoursAgo))
	for i, h := range hoursAgo {
		jitter := float64(i) * 0.01
		out[i] = ArticleVector{
			ArticleID:   uuid.New(),
			Title:       text,
			ChunkText:   text,
			PublishedAt: now.Add(-time.Duration(h * float64(time.Hour))),
			Embedding:   []float32{float32(math.Cos(angle + jitter)), float32(math.Sin(angle + jitter))},
		}
	}
	return out
}

func TestBuildTrendsEmptyWindow(t *testing.T) {
	svc := newTrendsService(&fakeStore{})

	trends, err := svc.BuildTrends(context.Background(), 24, 600, 10)
	require.NoError(t, err)
	assert.Empty(t, trends)
}

func TestBuildTrendsBelowMinSamples(t *testing.T) {
	now := time.Now().UTC()
	svc := newTrendsService(&fakeStore{
		articles: clusterArticles(now, 0, "too few articles here", []float64{1, 2, 3, 4}),
	})

	trends, err := svc.BuildTrends(context.Background(), 24, 600, 10)
	require.NoError(t, err)
	assert.Empty(t, trends)
}

func TestBuildTrendsMomentumRanking(t *testing.T) {
	now := time.Now().UTC()

	// Cluster A: all mass in the last hours of the window (bursting).
	bursting := clusterArticles(now, 0, "breaking merger negotiations accelerate",
		[]float64{0.5, 0.5, 1.0, 1.5, 1.5, 2.0, 2.5})
	// Cluster B: spread evenly across the window (steady).
	steady := clusterArticles(now, math.Pi/2, "weather forecast remains stable",
		[]float64{2, 6, 10, 14, 18, 22})

	svc := newTrendsService(&fakeStore{articles: append(bursting, steady...)})

	trends, err := svc.BuildTrends(context.Background(), 24, 600, 10)
	require.NoError(t, err)
	require.Len(t, trends, 2)

	top := trends[0]
	assert.Contains(t, top.Keywords, "merger")
	assert.Positive(t, top.Score)
	assert.Greater(t, top.Momentum, trends[1].Momentum)
	assert.Equal(t, 7, top.Volume)
}

func TestBuildTrendsNoiseDiscarded(t *testing.T) {
	now := time.Now().UTC()
	articles := clusterArticles(now, 0, "one dense cluster of related stories",
		[]float64{1, 2, 3, 4, 5, 6})
	// A lone orthogonal article is noise, not a cluster.
	articles = append(articles, clusterArticles(now, math.Pi/2, "unrelated outlier", []float64{3})...)

	svc := newTrendsService(&fakeStore{articles: articles})

	trends, err := svc.BuildTrends(context.Background(), 24, 600, 10)
	require.NoError(t, err)
	require.Len(t, trends, 1)
	assert.Equal(t, 6, trends[0].Volume)
}

func TestBuildTrendsCacheByteStable(t *testing.T) {
	now := time.Now().UTC()
	store := &fakeStore{articles: clusterArticles(now, 0, "cached cluster of stories",
		[]float64{1, 2, 3, 4, 5})}
	svc := newTrendsService(store)

	first, cached, err := svc.BuildTrendsJSON(context.Background(), 24, 600, 10)
	require.NoError(t, err)
	assert.False(t, cached)

	second, cached, err := svc.BuildTrendsJSON(context.Background(), 24, 600, 10)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first, second, "cached payload is byte-identical")
	assert.Equal(t, 1, store.calls, "second call never hits the store")
}

func TestBuildTrendsCacheKeyIncludesParams(t *testing.T) {
	now := time.Now().UTC()
	store := &fakeStore{articles: clusterArticles(now, 0, "parameterized cluster stories",
		[]float64{1, 2, 3, 4, 5})}
	svc := newTrendsService(store)

	_, _, err := svc.BuildTrendsJSON(context.Background(), 24, 600, 10)
	require.NoError(t, err)

	_, cached, err := svc.BuildTrendsJSON(context.Background(), 12, 600, 10)
	require.NoError(t, err)
	assert.False(t, cached, "different window is a different cache entry")
	assert.Equal(t, 2, store.calls)
}

func TestDynamicsLateBurst(t *testing.T) {
	// 24 hourly bins with all activity at the end: counts 5,10,15 in
	// the last three bins.
	bins := make([]int, 24)
	bins[21], bins[22], bins[23] = 5, 10, 15

	momentum, burst := dynamics(bins, 30)
	assert.InDelta(t, 30.0, momentum, 1e-9, "(30-0)/max(0,1)")
	assert.InDelta(t, 15.0/(30.0/24.0), burst, 1e-9, "peak over mean")
}

func TestDynamicsEmpty(t *testing.T) {
	momentum, burst := dynamics(nil, 0)
	assert.Zero(t, momentum)
	assert.Zero(t, burst)
}
