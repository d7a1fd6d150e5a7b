// Package services assembles the continuous loops behind `services
// start`: selection, lifecycle, housekeeping, health and metrics.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.uber.org/fx"

	"github.com/newsloom/newsloom/domain/articles"
	"github.com/newsloom/newsloom/domain/chunking"
	"github.com/newsloom/newsloom/domain/diagnostics"
	"github.com/newsloom/newsloom/domain/embedding"
	"github.com/newsloom/newsloom/domain/feeds"
	"github.com/newsloom/newsloom/domain/fts"
	"github.com/newsloom/newsloom/domain/trends"
	"github.com/newsloom/newsloom/internal/config"
	"github.com/newsloom/newsloom/internal/scheduler"
	"github.com/newsloom/newsloom/pkg/logger"
)

// Known service names for the --services flag.
const (
	ServicePoll   = "poll"
	ServiceWork   = "work"
	ServiceChunk  = "chunk"
	ServiceEmbed  = "embed"
	ServiceFTS    = "fts"
	ServiceTrends = "trends"
)

// serviceModes maps SERVICE_MODE values to a single service. Each
// continuous service starts in isolation; nothing here needs another
// service's credentials.
var serviceModes = map[string]string{
	"chunk-continuous": ServiceChunk,
	"embed-continuous": ServiceEmbed,
	"fts-continuous":   ServiceFTS,
}

// Selection is the set of services the runner should start.
type Selection struct {
	Names []string
}

// ResolveSelection validates explicit names, or falls back to
// SERVICE_MODE when none were given.
func ResolveSelection(names []string, serviceMode string) (Selection, error) {
	if len(names) == 0 && serviceMode != "" {
		svc, ok := serviceModes[serviceMode]
		if !ok {
			return Selection{}, fmt.Errorf("unknown SERVICE_MODE %q", serviceMode)
		}
		names = []string{svc}
	}
	if len(names) == 0 {
		return Selection{}, fmt.Errorf("no services selected")
	}

	seen := make(map[string]struct{}, len(names))
	var out []string
	for _, name := range names {
		name = strings.TrimSpace(strings.ToLower(name))
		switch name {
		case ServicePoll, ServiceWork, ServiceChunk, ServiceEmbed, ServiceFTS, ServiceTrends:
		default:
			return Selection{}, fmt.Errorf("unknown service %q", name)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return Selection{Names: out}, nil
}

// Runner owns the lifecycle of the selected services plus shared
// housekeeping (stale-claim recovery) and the health listener.
type Runner struct {
	selection Selection
	cfg       *config.Config
	log       *slog.Logger

	poller    *feeds.Poller
	worker    *articles.Worker
	rawRepo   *articles.Repository
	chunkSvc  *chunking.Service
	embedSvc  *embedding.Service
	ftsSvc    *fts.Service
	trendsSvc *trends.Service
	diag      *diagnostics.Recorder

	sched   *scheduler.Scheduler
	health  *HealthServer
	metrics *Metrics

	started []string
}

// RunnerParams bundles the runner dependencies for fx.
type RunnerParams struct {
	fx.In

	Selection Selection
	Config    *config.Config
	Log       *slog.Logger

	Poller    *feeds.Poller
	Worker    *articles.Worker
	RawRepo   *articles.Repository
	ChunkSvc  *chunking.Service
	EmbedSvc  *embedding.Service
	FTSSvc    *fts.Service
	TrendsSvc *trends.Service
	Diag      *diagnostics.Recorder

	Scheduler *scheduler.Scheduler
	Health    *HealthServer
	Metrics   *Metrics
}

// NewRunner creates the Runner.
func NewRunner(p RunnerParams) *Runner {
	return &Runner{
		selection: p.Selection,
		cfg:       p.Config,
		log:       p.Log.With(logger.Scope("runner")),
		poller:    p.Poller,
		worker:    p.Worker,
		rawRepo:   p.RawRepo,
		chunkSvc:  p.ChunkSvc,
		embedSvc:  p.EmbedSvc,
		ftsSvc:    p.FTSSvc,
		trendsSvc: p.TrendsSvc,
		diag:      p.Diag,
		sched:     p.Scheduler,
		health:    p.Health,
		metrics:   p.Metrics,
	}
}

// Start launches the selected services and the shared plumbing.
func (r *Runner) Start(ctx context.Context) error {
	r.log.Info("starting services", slog.Any("selection", r.selection.Names))

	for _, name := range r.selection.Names {
		if err := r.startOne(ctx, name); err != nil {
			return fmt.Errorf("start %s: %w", name, err)
		}
		r.metrics.ServicesUp.WithLabelValues(name).Set(1)
		r.started = append(r.started, name)
	}

	// Stale leases come back regardless of which services run here;
	// another instance may hold the claims.
	if err := r.sched.AddIntervalTask("recover-stale-claims", time.Minute, r.recoverStaleClaims); err != nil {
		return err
	}

	r.sched.Start()
	r.health.Start()
	return nil
}

func (r *Runner) startOne(ctx context.Context, name string) error {
	switch name {
	case ServicePoll:
		return r.sched.AddIntervalTask(ServicePoll, r.cfg.Poller.Interval, func(ctx context.Context) error {
			stats, err := r.poller.Poll(ctx, time.Now())
			r.observe(ServicePoll, stats.EntriesEnqueued, err)
			return err
		})
	case ServiceWork:
		return r.sched.AddIntervalTask(ServiceWork, r.cfg.Worker.Interval, func(ctx context.Context) error {
			stats, err := r.worker.Work(ctx)
			r.observe(ServiceWork, stats.Claimed, err)
			return err
		})
	case ServiceTrends:
		return r.sched.AddIntervalTask(ServiceTrends, r.cfg.Trends.Interval, func(ctx context.Context) error {
			_, cached, err := r.trendsSvc.BuildTrendsJSON(ctx,
				r.cfg.Trends.WindowHours, r.cfg.Trends.Limit, r.cfg.Trends.TopN)
			if !cached {
				r.observe(ServiceTrends, 1, err)
			}
			return err
		})
	case ServiceChunk:
		r.chunkSvc.Start(ctx)
	case ServiceEmbed:
		r.embedSvc.Start(ctx)
	case ServiceFTS:
		r.ftsSvc.Start(ctx)
	}
	return nil
}

// Stop drains everything within the shutdown grace window. Services
// refuse new claims once stopped; anything mid-flight is recovered by
// lease expiry.
func (r *Runner) Stop(ctx context.Context) error {
	r.log.Info("stopping services")

	r.sched.Stop(ctx)

	for _, name := range r.started {
		switch name {
		case ServiceChunk:
			r.chunkSvc.Stop()
		case ServiceEmbed:
			r.embedSvc.Stop()
		case ServiceFTS:
			r.ftsSvc.Stop()
		}
		r.metrics.ServicesUp.WithLabelValues(name).Set(0)
	}

	return r.health.Stop(ctx)
}

func (r *Runner) observe(service string, items int, err error) {
	r.metrics.TicksTotal.WithLabelValues(service).Inc()
	if err != nil {
		r.metrics.TickErrors.WithLabelValues(service).Inc()
		return
	}
	r.metrics.ItemsProcessed.WithLabelValues(service).Add(float64(items))
}

func (r *Runner) recoverStaleClaims(ctx context.Context) error {
	ids, err := r.rawRepo.RecoverStale(ctx, r.cfg.Worker.Lease)
	if err != nil {
		return err
	}
	for _, id := range ids {
		r.diag.Warn(ctx, "runner", diagnostics.KindLeaseExpired,
			"raw article lease expired, re-enqueued", nil,
			map[string]any{"raw_article_id": id.String()})
	}
	if len(ids) > 0 {
		r.log.Info("recovered stale claims", slog.Int("count", len(ids)))
	}
	return nil
}

// Module provides the runner and its plumbing. The Selection is
// supplied by the CLI.
var Module = fx.Module("services",
	fx.Provide(NewMetrics),
	fx.Provide(NewHealthServer),
	fx.Provide(func(log *slog.Logger) *scheduler.Scheduler {
		return scheduler.NewScheduler(log)
	}),
	fx.Provide(NewRunner),
	fx.Invoke(func(lc fx.Lifecycle, r *Runner) {
		lc.Append(fx.Hook{
			OnStart: r.Start,
			OnStop:  r.Stop,
		})
	}),
)
