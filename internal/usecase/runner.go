package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"InfluenceRanker/internal/domain"
	"InfluenceRanker/internal/platform"
	"InfluenceRanker/internal/ports"
)

// CycleSummary aggregates one full scrape cycle across platforms.
type CycleSummary struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Platforms map[domain.Platform]*IngestSummary
	Failed    map[domain.Platform]string
}

// TotalSaved sums saved articles over all platforms in the cycle.
func (s *CycleSummary) TotalSaved() int {
	var total int
	for _, p := range s.Platforms {
		total += p.Saved
	}
	return total
}

// PopularSource is implemented by adapters that publish a second,
// popularity-sorted listing beyond the trending one.
type PopularSource interface {
	ports.TrendingSource
	ScrapePopularEntries(ctx context.Context) ([]domain.RawArticleRecord, error)
}

// Runner drives a scrape cycle: every registered platform source is
// scraped in turn, and its records are normalized and saved. A failing
// platform is logged and skipped so one broken site never blocks the
// others.
type Runner struct {
	registry   *platform.Registry
	normalizer *Normalizer
	logger     *slog.Logger
	now        func() time.Time
}

func NewRunner(registry *platform.Registry, normalizer *Normalizer, logger *slog.Logger) *Runner {
	return &Runner{
		registry:   registry,
		normalizer: normalizer,
		logger:     logger,
		now:        time.Now,
	}
}

// RunCycle scrapes the requested platforms (all registered ones when
// only is empty) and ingests the results. The returned error joins
// per-platform failures; the summary is valid either way.
func (r *Runner) RunCycle(ctx context.Context, only []domain.Platform, dryRun bool) (*CycleSummary, error) {
	started := r.now().UTC()
	summary := &CycleSummary{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Platforms: map[domain.Platform]*IngestSummary{},
		Failed:    map[domain.Platform]string{},
	}

	sources, err := r.selectSources(only)
	if err != nil {
		return summary, err
	}

	if r.logger != nil {
		r.logger.Info("scrape cycle started", "run_id", summary.RunID, "platforms", len(sources), "dry_run", dryRun)
	}

	var errs []error
	for _, src := range sources {
		errs = r.collect(ctx, summary, src.Platform(), src.ScrapeTrending, dryRun, errs)
	}

	return summary, r.finish(summary, started, errs)
}

// RunPopular scrapes the popularity-sorted listings of the adapters that
// publish one (today hatena's popular entry list) and ingests the
// results. Adapters without such a listing are skipped.
func (r *Runner) RunPopular(ctx context.Context, dryRun bool) (*CycleSummary, error) {
	started := r.now().UTC()
	summary := &CycleSummary{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Platforms: map[domain.Platform]*IngestSummary{},
		Failed:    map[domain.Platform]string{},
	}

	if r.logger != nil {
		r.logger.Info("popular scrape started", "run_id", summary.RunID, "dry_run", dryRun)
	}

	var errs []error
	for _, src := range r.registry.All() {
		popular, ok := src.(PopularSource)
		if !ok {
			continue
		}
		errs = r.collect(ctx, summary, src.Platform(), popular.ScrapePopularEntries, dryRun, errs)
	}

	return summary, r.finish(summary, started, errs)
}

// collect runs one platform's fetch and ingests its records into the
// cycle summary.
func (r *Runner) collect(ctx context.Context, summary *CycleSummary, name domain.Platform,
	fetch func(context.Context) ([]domain.RawArticleRecord, error), dryRun bool, errs []error) []error {

	records, err := fetch(ctx)
	if err != nil {
		summary.Failed[name] = err.Error()
		if r.logger != nil {
			r.logger.Error("platform scrape failed", "run_id", summary.RunID, "platform", name, "error", err)
		}
		return append(errs, fmt.Errorf("scrape %s: %w", name, err))
	}

	ingest, err := r.normalizer.NormalizeAndSave(ctx, records, dryRun)
	if ingest != nil {
		summary.Platforms[name] = ingest
	}
	if err != nil {
		summary.Failed[name] = err.Error()
		if r.logger != nil {
			r.logger.Error("platform ingest failed", "run_id", summary.RunID, "platform", name, "error", err)
		}
		return append(errs, fmt.Errorf("ingest %s: %w", name, err))
	}
	return errs
}

func (r *Runner) finish(summary *CycleSummary, started time.Time, errs []error) error {
	summary.Duration = r.now().UTC().Sub(started)
	if r.logger != nil {
		r.logger.Info("scrape cycle finished",
			"run_id", summary.RunID,
			"saved", summary.TotalSaved(),
			"failed_platforms", len(summary.Failed),
			"duration", summary.Duration,
		)
	}
	return errors.Join(errs...)
}

func (r *Runner) selectSources(only []domain.Platform) ([]ports.TrendingSource, error) {
	if len(only) == 0 {
		return r.registry.All(), nil
	}
	sources := make([]ports.TrendingSource, 0, len(only))
	for _, p := range only {
		src, err := r.registry.Resolve(p)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}
