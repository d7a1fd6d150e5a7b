package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/newsloom/newsloom/internal/config"
	"github.com/newsloom/newsloom/pkg/logger"
	"github.com/newsloom/newsloom/pkg/mathutil"
)

// Store is the persistence surface the service needs; Repository is
// the production implementation.
type Store interface {
	FetchWindow(ctx context.Context, windowHours, limit int) ([]ArticleVector, error)
}

// Service builds ranked trend lists with a short-lived cache in front.
type Service struct {
	store Store
	cache Cache
	cfg   config.TrendsConfig
	log   *slog.Logger
}

// NewService creates the trends Service.
func NewService(store Store, cache Cache, cfg config.TrendsConfig, log *slog.Logger) *Service {
	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
		log:   log.With(logger.Scope("trends")),
	}
}

// BuildTrendsJSON returns the serialized trend list for the given
// parameters. Within the cache TTL the same byte payload is returned
// for identical parameters.
func (s *Service) BuildTrendsJSON(ctx context.Context, windowHours, limit, topN int) ([]byte, bool, error) {
	key := fmt.Sprintf("trends:%d:%d:%d", windowHours, limit, topN)

	if data, ok := s.cache.Get(ctx, key); ok {
		return data, true, nil
	}

	trends, err := s.build(ctx, time.Now().UTC(), windowHours, limit, topN)
	if err != nil {
		return nil, false, err
	}

	data, err := json.Marshal(trends)
	if err != nil {
		return nil, false, fmt.Errorf("marshal trends: %w", err)
	}

	s.cache.Set(ctx, key, data, s.cfg.CacheTTL)
	return data, false, nil
}

// BuildTrends is BuildTrendsJSON with the payload decoded.
func (s *Service) BuildTrends(ctx context.Context, windowHours, limit, topN int) ([]Trend, error) {
	data, _, err := s.BuildTrendsJSON(ctx, windowHours, limit, topN)
	if err != nil {
		return nil, err
	}

	var trends []Trend
	if err := json.Unmarshal(data, &trends); err != nil {
		return nil, fmt.Errorf("unmarshal trends: %w", err)
	}
	return trends, nil
}

// build runs the full pipeline: fetch, cluster, label, score, rank.
func (s *Service) build(ctx context.Context, now time.Time, windowHours, limit, topN int) ([]Trend, error) {
	articles, err := s.store.FetchWindow(ctx, windowHours, limit)
	if err != nil {
		return nil, err
	}

	if len(articles) < s.cfg.MinSamples {
		return []Trend{}, nil
	}

	vectors := make([][]float32, len(articles))
	for i, a := range articles {
		vectors[i] = mathutil.UnitNormalize(a.Embedding)
	}

	labels := dbscan(vectors, s.cfg.Eps, s.cfg.MinSamples)

	clusters := make(map[int][]int)
	clusterTexts := make(map[int][]string)
	for i, label := range labels {
		if label < 0 {
			continue
		}
		clusters[label] = append(clusters[label], i)
		clusterTexts[label] = append(clusterTexts[label], articles[i].ChunkText)
	}

	if len(clusters) == 0 {
		return []Trend{}, nil
	}

	keywords := classKeywords(clusterTexts, s.cfg.Keywords)

	windowStart := now.Add(-time.Duration(windowHours) * time.Hour)

	// Dynamics per cluster, then min-max normalization across the
	// clusters of this call.
	type measured struct {
		trend    Trend
		volume   float64
		momentum float64
		burst    float64
	}

	ordered := make([]int, 0, len(clusters))
	for label := range clusters {
		ordered = append(ordered, label)
	}
	sort.Ints(ordered)

	results := make([]measured, 0, len(ordered))
	for _, label := range ordered {
		members := clusters[label]

		bins := make([]int, windowHours)
		first, last := articles[members[0]].PublishedAt, articles[members[0]].PublishedAt
		var titles []string
		for _, idx := range members {
			a := articles[idx]
			bin := int(a.PublishedAt.Sub(windowStart).Hours())
			if bin < 0 {
				bin = 0
			}
			if bin >= windowHours {
				bin = windowHours - 1
			}
			bins[bin]++

			if a.PublishedAt.Before(first) {
				first = a.PublishedAt
			}
			if a.PublishedAt.After(last) {
				last = a.PublishedAt
			}
			if len(titles) < 3 {
				titles = append(titles, a.Title)
			}
		}

		volume := len(members)
		momentum, burst := dynamics(bins, volume)

		kw := keywords[label]
		results = append(results, measured{
			trend: Trend{
				Label:          clusterLabel(kw),
				Keywords:       kw,
				Volume:         volume,
				Momentum:       momentum,
				BurstIntensity: burst,
				SampleTitles:   titles,
				FirstSeen:      first,
				LastSeen:       last,
			},
			volume:   float64(volume),
			momentum: momentum,
			burst:    burst,
		})
	}

	burstN := make([]float64, len(results))
	momentumN := make([]float64, len(results))
	volumeN := make([]float64, len(results))
	for i, r := range results {
		burstN[i] = r.burst
		momentumN[i] = r.momentum
		volumeN[i] = r.volume
	}
	burstN = mathutil.MinMaxNormalize(burstN)
	momentumN = mathutil.MinMaxNormalize(momentumN)
	volumeN = mathutil.MinMaxNormalize(volumeN)

	trends := make([]Trend, len(results))
	for i, r := range results {
		r.trend.Score = 0.5*burstN[i] + 0.3*momentumN[i] + 0.2*volumeN[i]
		trends[i] = r.trend
	}

	sort.SliceStable(trends, func(i, j int) bool {
		return trends[i].Score > trends[j].Score
	})

	if topN > 0 && len(trends) > topN {
		trends = trends[:topN]
	}

	s.log.Info("trends built",
		slog.Int("articles", len(articles)),
		slog.Int("clusters", len(clusters)),
		slog.Int("returned", len(trends)))
	return trends, nil
}

// dynamics computes momentum over the first and last quarter of the
// window, and burst intensity as peak over mean.
func dynamics(bins []int, volume int) (momentum, burst float64) {
	n := len(bins)
	if n == 0 || volume == 0 {
		return 0, 0
	}

	quarter := n / 4
	if quarter == 0 {
		quarter = 1
	}

	var firstQ, lastQ, maxBin int
	for i, count := range bins {
		if i < quarter {
			firstQ += count
		}
		if i >= n-quarter {
			lastQ += count
		}
		if count > maxBin {
			maxBin = count
		}
	}

	momentum = float64(lastQ-firstQ) / math.Max(float64(firstQ), 1)
	mean := float64(volume) / float64(n)
	burst = float64(maxBin) / mean
	return momentum, burst
}
