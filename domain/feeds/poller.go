package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/newsloom/newsloom/domain/articles"
	"github.com/newsloom/newsloom/domain/diagnostics"
	"github.com/newsloom/newsloom/internal/config"
	"github.com/newsloom/newsloom/pkg/logger"
	"github.com/newsloom/newsloom/pkg/urlnorm"
)

// Store is the persistence surface the poller drives. *Repository is
// the production implementation.
type Store interface {
	Due(ctx context.Context, now time.Time, limit int) ([]Feed, error)
	MarkPolled(ctx context.Context, feed *Feed, etag, lastModified *string, next time.Time) error
	MarkNotModified(ctx context.Context, feed *Feed, next time.Time) error
	MarkFailed(ctx context.Context, feed *Feed, reason string, backoffBase, backoffCap time.Duration, maxFailures int) error
	EnqueueRaw(ctx context.Context, raw *articles.RawArticle) (bool, error)
}

// Poller runs one polling pass over due feeds. A pass is idempotent:
// replaying it enqueues no duplicate entries because url_hash inserts
// collide and are skipped.
type Poller struct {
	repo   Store
	diag   *diagnostics.Recorder
	cfg    config.PollerConfig
	http   *http.Client
	parser *gofeed.Parser
	log    *slog.Logger
}

// NewPoller creates a Poller.
func NewPoller(repo Store, diag *diagnostics.Recorder, cfg config.PollerConfig, log *slog.Logger) *Poller {
	return &Poller{
		repo: repo,
		diag: diag,
		cfg:  cfg,
		http: &http.Client{
			Timeout: cfg.FetchTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			},
		},
		parser: gofeed.NewParser(),
		log:    log.With(logger.Scope("poller")),
	}
}

// Poll fetches every due feed in parallel and enqueues new entries.
// Per-feed failures are recorded and backed off; they never abort the
// pass.
func (p *Poller) Poll(ctx context.Context, now time.Time) (PollStats, error) {
	due, err := p.repo.Due(ctx, now, p.cfg.BatchSize)
	if err != nil {
		return PollStats{}, fmt.Errorf("poll: %w", err)
	}

	var (
		mu    sync.Mutex
		stats PollStats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for i := range due {
		feed := due[i]
		g.Go(func() error {
			enq, seen, notModified, err := p.pollOne(gctx, &feed, now)

			mu.Lock()
			defer mu.Unlock()
			stats.FeedsPolled++
			stats.EntriesSeen += seen
			stats.EntriesEnqueued += enq
			if notModified {
				stats.FeedsNotModified++
			}
			if err != nil {
				stats.FeedsFailed++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, fmt.Errorf("poll: %w", err)
	}

	if err := p.writeState(now, stats); err != nil {
		p.log.Warn("failed to write poll state", logger.Error(err))
	}

	p.log.Info("poll pass complete",
		slog.Int("feeds", stats.FeedsPolled),
		slog.Int("not_modified", stats.FeedsNotModified),
		slog.Int("failed", stats.FeedsFailed),
		slog.Int("enqueued", stats.EntriesEnqueued))

	return stats, nil
}

func (p *Poller) pollOne(ctx context.Context, feed *Feed, now time.Time) (enqueued, seen int, notModified bool, err error) {
	next := now.Add(p.cfg.Interval)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		p.fail(ctx, feed, fmt.Sprintf("build request: %v", err))
		return 0, 0, false, err
	}
	req.Header.Set("User-Agent", "newsloom/1.0 (+https://github.com/newsloom/newsloom)")
	if feed.LastETag != nil {
		req.Header.Set("If-None-Match", *feed.LastETag)
	}
	if feed.LastModified != nil {
		req.Header.Set("If-Modified-Since", *feed.LastModified)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		p.fail(ctx, feed, fmt.Sprintf("fetch: %v", err))
		return 0, 0, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		if err := p.repo.MarkNotModified(ctx, feed, next); err != nil {
			return 0, 0, true, err
		}
		return 0, 0, true, nil
	}
	if resp.StatusCode/100 != 2 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		msg := fmt.Sprintf("fetch: status %d", resp.StatusCode)
		p.fail(ctx, feed, msg)
		return 0, 0, false, fmt.Errorf("%s", msg)
	}

	parsed, err := p.parser.Parse(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		p.fail(ctx, feed, fmt.Sprintf("parse feed: %v", err))
		return 0, 0, false, err
	}

	language := feedLanguage(parsed.Language)

	for _, item := range parsed.Items {
		if item == nil || item.Link == "" {
			continue
		}
		seen++

		canonical, err := urlnorm.Canonicalize(item.Link, p.cfg.DeniedParams)
		if err != nil {
			p.log.Debug("skipping entry with bad link",
				slog.String("feed", feed.URL),
				slog.String("link", item.Link),
				logger.Error(err))
			continue
		}

		raw := &articles.RawArticle{
			FeedID:       &feed.ID,
			URL:          canonical,
			URLHash:      urlnorm.Hash(canonical),
			SourceDomain: strPtr(urlnorm.Domain(canonical)),
			Status:       articles.RawStatusPending,
		}
		if item.GUID != "" {
			raw.GUID = &item.GUID
		}
		if item.Title != "" {
			raw.Title = &item.Title
		}
		if item.Description != "" {
			raw.Summary = &item.Description
		}
		if language != "" {
			raw.Language = strPtr(language)
		}
		if item.PublishedParsed != nil {
			raw.PublishedAt = item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			raw.PublishedAt = item.UpdatedParsed
		}

		inserted, err := p.repo.EnqueueRaw(ctx, raw)
		if err != nil {
			p.log.Warn("failed to enqueue entry",
				slog.String("url", canonical),
				logger.Error(err))
			continue
		}
		if inserted {
			enqueued++
		}
	}

	var etag, lastMod *string
	if v := resp.Header.Get("ETag"); v != "" {
		etag = &v
	}
	if v := resp.Header.Get("Last-Modified"); v != "" {
		lastMod = &v
	}

	if err := p.repo.MarkPolled(ctx, feed, etag, lastMod, next); err != nil {
		return enqueued, seen, false, err
	}
	return enqueued, seen, false, nil
}

func (p *Poller) fail(ctx context.Context, feed *Feed, reason string) {
	p.log.Warn("feed poll failed",
		slog.String("feed", feed.URL),
		slog.Int("consecutive_failures", feed.ConsecutiveFailures+1),
		slog.String("reason", reason))

	p.diag.Warn(ctx, "poller", diagnostics.KindTransientIO, reason, nil,
		map[string]any{"feed_url": feed.URL})

	if err := p.repo.MarkFailed(ctx, feed, reason,
		p.cfg.BackoffBase, p.cfg.BackoffCap, p.cfg.MaxFailures); err != nil {
		p.log.Error("failed to record feed failure", logger.Error(err))
	}
}

type pollState struct {
	LastRunAt time.Time `json:"last_run_at"`
	Stats     PollStats `json:"stats"`
}

// writeState persists last-run bookkeeping under the state dir.
func (p *Poller) writeState(now time.Time, stats PollStats) error {
	if p.cfg.StateDir == "" {
		return nil
	}
	if err := os.MkdirAll(p.cfg.StateDir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(pollState{LastRunAt: now.UTC(), Stats: stats}, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(p.cfg.StateDir, "poll_state.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// feedLanguage reduces a feed's language tag (e.g. "en-US", "pt_BR")
// to its lowercase primary subtag. Unusable tags map to "".
func feedLanguage(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	if len(tag) < 2 || len(tag) > 3 {
		return ""
	}
	for _, r := range tag {
		if r < 'a' || r > 'z' {
			return ""
		}
	}
	return tag
}
