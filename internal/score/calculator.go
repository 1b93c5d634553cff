package score

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"InfluenceRanker/internal/config"
	"InfluenceRanker/internal/domain"
	"InfluenceRanker/internal/ports"
)

// Result is one company's computed influence for a period.
type Result struct {
	Company        domain.Company
	Score          float64
	ArticleCount   int
	TotalBookmarks int
}

// Calculator computes weighted, time-decayed influence scores from
// persisted articles.
type Calculator struct {
	articles  ports.ArticleRepository
	companies ports.CompanyRepository
	scores    ports.ScoreRepository
	weights   config.ScoringConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewCalculator wires repositories and the weighting constants.
func NewCalculator(
	articles ports.ArticleRepository,
	companies ports.CompanyRepository,
	scores ports.ScoreRepository,
	weights config.ScoringConfig,
	logger *slog.Logger,
) *Calculator {
	return &Calculator{
		articles:  articles,
		companies: companies,
		scores:    scores,
		weights:   weights,
		logger:    logger,
		now:       time.Now,
	}
}

// CompanyScore sums per-article scores over the company's qualifying
// articles in [start, end]. An inverted window or an empty selection
// yields a zero result, not an error.
func (c *Calculator) CompanyScore(ctx context.Context, company domain.Company, start, end time.Time) (Result, error) {
	result := Result{Company: company}
	if start.After(end) {
		return result, nil
	}

	articles, err := c.articles.ListForCompanyInWindow(ctx, company.ID, start, end)
	if err != nil {
		return result, fmt.Errorf("articles for company %d: %w", company.ID, err)
	}

	now := c.now().UTC()
	for _, article := range articles {
		result.Score += c.articleScore(article, start, end, now)
		result.ArticleCount++
		result.TotalBookmarks += article.BookmarkCount
	}

	return result, nil
}

// AllCompaniesScore computes every active company's result for the window,
// dropping companies that score zero.
func (c *Calculator) AllCompaniesScore(ctx context.Context, start, end time.Time) ([]Result, error) {
	companies, err := c.companies.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active companies: %w", err)
	}

	var results []Result
	for _, company := range companies {
		result, err := c.CompanyScore(ctx, company, start, end)
		if err != nil {
			return nil, err
		}
		if result.Score == 0 {
			continue
		}
		results = append(results, result)
	}

	if c.logger != nil {
		c.logger.Debug("scored companies", "candidates", len(companies), "scored", len(results))
	}
	return results, nil
}

// SaveScore appends an influence-score snapshot. Snapshots are never
// overwritten; history accumulates per calculation run.
func (c *Calculator) SaveScore(ctx context.Context, periodType domain.PeriodType, start, end time.Time, result Result) error {
	snapshot := &domain.InfluenceScore{
		CompanyID:      result.Company.ID,
		PeriodType:     periodType,
		PeriodStart:    start,
		PeriodEnd:      end,
		TotalScore:     result.Score,
		ArticleCount:   result.ArticleCount,
		TotalBookmarks: result.TotalBookmarks,
		CalculatedAt:   c.now().UTC(),
	}
	if err := c.scores.Append(ctx, snapshot); err != nil {
		return fmt.Errorf("append influence score: %w", err)
	}
	return nil
}

// articleScore applies engagement multipliers, the platform weight and the
// time weight to one article.
func (c *Calculator) articleScore(article domain.Article, start, end, now time.Time) float64 {
	base := c.weights.BasePoints +
		float64(article.BookmarkCount)*c.weights.BookmarkFactor +
		float64(article.LikesCount)*c.weights.LikesFactor

	return base * c.weights.PlatformWeight(article.Platform) * c.timeWeight(article.PublishedAt, start, end, now)
}

// timeWeight decays linearly from 1.0 down to the configured floor the
// further back in the period the publish time sits relative to now.
// Articles outside the window or without a publish date get the flat
// fallback weight.
func (c *Calculator) timeWeight(published *time.Time, start, end, now time.Time) float64 {
	if published == nil || published.Before(start) || published.After(end) {
		return c.weights.FallbackTimeWeight
	}

	period := end.Sub(start)
	if period <= 0 {
		return c.weights.FallbackTimeWeight
	}

	age := now.Sub(*published)
	weight := 1.0 - (age.Seconds()/period.Seconds())*(1.0-c.weights.DecayFloor)
	if weight < c.weights.DecayFloor {
		return c.weights.DecayFloor
	}
	if weight > 1.0 {
		return 1.0
	}
	return weight
}
