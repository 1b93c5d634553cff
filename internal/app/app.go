package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"InfluenceRanker/internal/config"
	"InfluenceRanker/internal/domain"
	"InfluenceRanker/internal/infrastructure/ratelimit"
	"InfluenceRanker/internal/infrastructure/scheduler"
	"InfluenceRanker/internal/infrastructure/storage"
	"InfluenceRanker/internal/logging"
	"InfluenceRanker/internal/matcher"
	"InfluenceRanker/internal/platform"
	"InfluenceRanker/internal/ports"
	"InfluenceRanker/internal/ranking"
	"InfluenceRanker/internal/score"
	"InfluenceRanker/internal/scrape"
	"InfluenceRanker/internal/usecase"
)

// App wires configuration, storage, scraping adapters and the scoring
// pipeline into one runnable unit.
type App struct {
	Config     config.Config
	Logger     *slog.Logger
	Store      *storage.Store
	Registry   *platform.Registry
	Normalizer *usecase.Normalizer
	Runner     *usecase.Runner
	Generator  *ranking.Generator
	Tracker    *ranking.Tracker

	redisClient *redis.Client
}

// New builds the full application from config. The caller owns Close.
func New(cfg config.Config) (*App, error) {
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		Logger: logger,
		Store:  store,
	}

	if cfg.Redis.Addr != "" {
		a.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		logger.Info("rate limiting via redis", "addr", cfg.Redis.Addr)
	}

	a.Registry = platform.NewRegistry()
	scrapeLogger := logging.ForComponent(logger, "scrape")
	for _, p := range domain.AllPlatforms() {
		pc := cfg.Platforms.For(p)
		if !pc.Enabled {
			logger.Info("platform disabled", "platform", p)
			continue
		}
		a.Registry.Register(a.buildSource(p, pc, scrapeLogger))
	}

	m := matcher.New(store, logging.ForComponent(logger, "matcher"))
	a.Normalizer = usecase.NewNormalizer(store, m, logging.ForComponent(logger, "ingest"))
	a.Runner = usecase.NewRunner(a.Registry, a.Normalizer, logging.ForComponent(logger, "ingest"))

	calc := score.NewCalculator(store, store, store, cfg.Scoring, logging.ForComponent(logger, "score"))
	rankingLogger := logging.ForComponent(logger, "ranking")
	a.Generator = ranking.NewGenerator(calc, store, cfg.Ranking, rankingLogger)
	a.Tracker = ranking.NewTracker(store, store, cfg.Ranking.HistoryRetentionDays, rankingLogger)

	return a, nil
}

func (a *App) buildSource(p domain.Platform, pc config.PlatformConfig, logger *slog.Logger) ports.TrendingSource {
	var limiter ports.RateLimiter
	if a.redisClient != nil {
		limiter = ratelimit.NewRedisWindow(a.redisClient, pc.RequestsPerMinute)
	} else {
		limiter = scrape.NewSlidingWindow(pc.RequestsPerMinute)
	}

	engine := scrape.NewEngine(&http.Client{}, scrape.Options{
		TimeoutSeconds:    pc.TimeoutSeconds,
		MaxRetryCount:     pc.MaxRetryCount,
		RetryDelaySeconds: pc.RetryDelaySeconds,
		Headers:           pc.Headers,
	}, limiter, string(p), logger)

	switch p {
	case domain.PlatformQiita:
		return platform.NewQiita(engine, logger, pc.MaxItems)
	case domain.PlatformZenn:
		return platform.NewZenn(engine, logger, pc.MaxItems)
	default:
		feed := platform.NewHatenaFeed(pc.FeedURL, logger, pc.MaxItems)
		return platform.NewHatena(engine, feed, logger, pc.MaxItems)
	}
}

// RunScrape executes one scrape cycle over the selected platforms (all
// enabled ones when platforms is empty).
func (a *App) RunScrape(ctx context.Context, platforms []domain.Platform, dryRun bool) (*usecase.CycleSummary, error) {
	return a.Runner.RunCycle(ctx, platforms, dryRun)
}

// RunPopularScrape executes one cycle over the popularity-sorted
// listings of the adapters that publish one.
func (a *App) RunPopularScrape(ctx context.Context, dryRun bool) (*usecase.CycleSummary, error) {
	return a.Runner.RunPopular(ctx, dryRun)
}

// RunRanking recomputes the given periods (all when empty) anchored at
// reference, then records rank-change history for each.
func (a *App) RunRanking(ctx context.Context, periods []domain.PeriodType, reference time.Time) error {
	if len(periods) == 0 {
		periods = domain.AllPeriodTypes()
	}
	for _, periodType := range periods {
		rows, err := a.Generator.GenerateForPeriod(ctx, periodType, reference)
		if err != nil {
			return fmt.Errorf("generate %s: %w", periodType, err)
		}
		if len(rows) == 0 {
			continue
		}
		if _, err := a.Tracker.Record(ctx, periodType, rows[0].CalculatedAt); err != nil {
			return fmt.Errorf("record history %s: %w", periodType, err)
		}
	}
	return nil
}

// RunDaemon runs scrape and ranking cycles on their configured intervals
// until ctx is cancelled.
func (a *App) RunDaemon(ctx context.Context) error {
	loc := a.Config.Scheduler.Location()
	schedLogger := logging.ForComponent(a.Logger, "scheduler")

	scrapeTicker := scheduler.NewTicker("scrape", a.Config.Scheduler.ParseScrapeInterval(), loc, schedLogger)
	err := scrapeTicker.Start(ctx, func(now time.Time) {
		if _, err := a.RunScrape(ctx, nil, false); err != nil {
			a.Logger.Error("scheduled scrape failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("start scrape scheduler: %w", err)
	}

	rankingTicker := scheduler.NewTicker("ranking", a.Config.Scheduler.ParseRankingInterval(), loc, schedLogger)
	err = rankingTicker.Start(ctx, func(now time.Time) {
		if err := a.RunRanking(ctx, nil, now.UTC()); err != nil {
			a.Logger.Error("scheduled ranking failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("start ranking scheduler: %w", err)
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := scrapeTicker.Stop(stopCtx); err != nil {
		return err
	}
	return rankingTicker.Stop(stopCtx)
}

// Close releases storage and redis handles.
func (a *App) Close() error {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.Logger.Warn("closing redis client", "error", err)
		}
	}
	return a.Store.Close()
}
