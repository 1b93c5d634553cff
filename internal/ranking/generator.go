package ranking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"InfluenceRanker/internal/config"
	"InfluenceRanker/internal/domain"
	"InfluenceRanker/internal/ports"
	"InfluenceRanker/internal/score"
)

// Generator recomputes the per-period company rankings. Period types are
// independent units of work; generation of the same period type is
// serialized through a per-period lock because the replace is a
// delete-plus-insert critical section.
type Generator struct {
	calc     *score.Calculator
	rankings ports.RankingRepository
	periods  config.RankingConfig
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.Mutex
	locks map[domain.PeriodType]*sync.Mutex
}

// NewGenerator wires the score calculator and the ranking repository.
func NewGenerator(calc *score.Calculator, rankings ports.RankingRepository, periods config.RankingConfig, logger *slog.Logger) *Generator {
	return &Generator{
		calc:     calc,
		rankings: rankings,
		periods:  periods,
		logger:   logger,
		now:      time.Now,
		locks:    map[domain.PeriodType]*sync.Mutex{},
	}
}

// PeriodDates resolves a period type to its [start, end] window: end is
// the reference date's end of day, start is the day-count back from the
// reference date, or the configured epoch for the all-time period.
func (g *Generator) PeriodDates(periodType domain.PeriodType, reference time.Time) (time.Time, time.Time) {
	ref := reference.UTC()
	end := time.Date(ref.Year(), ref.Month(), ref.Day(), 23, 59, 59, 0, time.UTC)

	if periodType == domain.PeriodAll {
		epochYear := g.periods.AllTimeEpochYear
		if epochYear == 0 {
			epochYear = 2020
		}
		return time.Date(epochYear, time.January, 1, 0, 0, 0, 0, time.UTC), end
	}

	days := g.periods.DaysFor(periodType)
	start := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)
	return start, end
}

// GenerateForPeriod recomputes one period's ranking: score all active
// companies, dense-rank them by score descending, replace the stored set
// for the period bounds, and append an influence-score snapshot per
// company. Returns the new ranking rows ordered by position.
func (g *Generator) GenerateForPeriod(ctx context.Context, periodType domain.PeriodType, reference time.Time) ([]domain.Ranking, error) {
	lock := g.lockFor(periodType)
	lock.Lock()
	defer lock.Unlock()

	start, end := g.PeriodDates(periodType, reference)

	results, err := g.calc.AllCompaniesScore(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("score period %s: %w", periodType, err)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Company.ID < results[j].Company.ID
	})

	calculatedAt := g.now().UTC()
	rows := denseRank(results, periodType, start, end, calculatedAt)

	if err := g.rankings.ReplaceForPeriod(ctx, periodType, start, end, rows); err != nil {
		return nil, fmt.Errorf("replace ranking %s: %w", periodType, err)
	}

	for _, result := range results {
		if err := g.calc.SaveScore(ctx, periodType, start, end, result); err != nil {
			return nil, fmt.Errorf("snapshot score %s company %d: %w", periodType, result.Company.ID, err)
		}
	}

	if g.logger != nil {
		g.logger.Info("ranking generated",
			"period", periodType, "companies", len(rows), "calculated_at", calculatedAt)
	}
	return rows, nil
}

// GenerateAll recomputes every period type. Periods are independent, so
// one period's failure does not abort the rest; errors are joined.
func (g *Generator) GenerateAll(ctx context.Context, reference time.Time) (map[domain.PeriodType][]domain.Ranking, error) {
	out := make(map[domain.PeriodType][]domain.Ranking, len(domain.AllPeriodTypes()))
	var errs []error

	for _, periodType := range domain.AllPeriodTypes() {
		rows, err := g.GenerateForPeriod(ctx, periodType, reference)
		if err != nil {
			if g.logger != nil {
				g.logger.Error("ranking generation failed", "period", periodType, "error", err)
			}
			errs = append(errs, err)
			continue
		}
		out[periodType] = rows
	}

	return out, errors.Join(errs...)
}

// TopForPeriod returns the current top-N rows of one period.
func (g *Generator) TopForPeriod(ctx context.Context, periodType domain.PeriodType, limit int) ([]domain.Ranking, error) {
	return g.rankings.TopForPeriod(ctx, periodType, limit)
}

// CompanyRankings returns a company's current row per period, nil for
// periods without one yet.
func (g *Generator) CompanyRankings(ctx context.Context, companyID int64) (map[domain.PeriodType]*domain.Ranking, error) {
	return g.rankings.CurrentForCompany(ctx, companyID)
}

// Statistics aggregates the current ranking set of one period.
func (g *Generator) Statistics(ctx context.Context, periodType domain.PeriodType) (*domain.RankingStatistics, error) {
	return g.rankings.Statistics(ctx, periodType)
}

func (g *Generator) lockFor(periodType domain.PeriodType) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	lock, ok := g.locks[periodType]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[periodType] = lock
	}
	return lock
}

// denseRank assigns positions to score-sorted results: tied scores share
// a position and the next distinct score sits exactly one lower.
func denseRank(results []score.Result, periodType domain.PeriodType, start, end, calculatedAt time.Time) []domain.Ranking {
	rows := make([]domain.Ranking, 0, len(results))

	rank := 0
	var prevScore float64
	for i, result := range results {
		if i == 0 || result.Score != prevScore {
			rank++
			prevScore = result.Score
		}
		rows = append(rows, domain.Ranking{
			CompanyID:      result.Company.ID,
			PeriodType:     periodType,
			PeriodStart:    start,
			PeriodEnd:      end,
			RankPosition:   rank,
			TotalScore:     result.Score,
			ArticleCount:   result.ArticleCount,
			TotalBookmarks: result.TotalBookmarks,
			CalculatedAt:   calculatedAt,
		})
	}

	return rows
}
