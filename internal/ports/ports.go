package ports

import (
	"context"
	"time"

	"InfluenceRanker/internal/domain"
)

// TrendingSource pulls the current trending listing of one platform.
type TrendingSource interface {
	Platform() domain.Platform
	ScrapeTrending(ctx context.Context) ([]domain.RawArticleRecord, error)
}

// RateLimiter throttles outbound requests. Acquire blocks until a request
// slot for the key is available inside the current window.
type RateLimiter interface {
	Acquire(ctx context.Context, key string) error
}

// ArticleRepository persists scraped articles, keyed by URL.
type ArticleRepository interface {
	Upsert(ctx context.Context, article *domain.Article) error
	// ListForCompanyInWindow returns non-deleted articles of a company whose
	// published_at falls in [start, end], or whose scraped_at does when
	// published_at is unknown.
	ListForCompanyInWindow(ctx context.Context, companyID int64, start, end time.Time) ([]domain.Article, error)
	ListUnmatched(ctx context.Context, limit int) ([]domain.Article, error)
	AssignCompany(ctx context.Context, articleID, companyID int64) error
}

// CompanyRepository reads the company reference data maintained out-of-core.
type CompanyRepository interface {
	ListActive(ctx context.Context) ([]domain.Company, error)
}

// ScoreRepository appends influence-score snapshots. Never updates in place.
type ScoreRepository interface {
	Append(ctx context.Context, score *domain.InfluenceScore) error
}

// RankingRepository owns the per-period ranking sets.
type RankingRepository interface {
	// ReplaceForPeriod atomically swaps the ranking set of one
	// (period, bounds) combination: delete plus insert in one transaction.
	ReplaceForPeriod(ctx context.Context, periodType domain.PeriodType, start, end time.Time, rows []domain.Ranking) error
	TopForPeriod(ctx context.Context, periodType domain.PeriodType, limit int) ([]domain.Ranking, error)
	CurrentForCompany(ctx context.Context, companyID int64) (map[domain.PeriodType]*domain.Ranking, error)
	Statistics(ctx context.Context, periodType domain.PeriodType) (*domain.RankingStatistics, error)
	SnapshotAt(ctx context.Context, periodType domain.PeriodType, calculatedAt time.Time) ([]domain.Ranking, error)
	// LatestCalculatedAtBefore returns the newest snapshot timestamp strictly
	// older than the given instant, or nil when no prior snapshot exists.
	LatestCalculatedAtBefore(ctx context.Context, periodType domain.PeriodType, before time.Time) (*time.Time, error)
}

// HistoryRepository owns the append-only rank-change log.
type HistoryRepository interface {
	AppendAll(ctx context.Context, rows []domain.RankingHistory) error
	ForCompany(ctx context.Context, companyID int64, periodType domain.PeriodType, days int) ([]domain.RankingHistory, error)
	LatestCalculatedAt(ctx context.Context, periodType domain.PeriodType) (*time.Time, error)
	ChangesAt(ctx context.Context, periodType domain.PeriodType, calculatedAt time.Time) ([]domain.RankingHistory, error)
	// MoversAt lists history rows at a snapshot joined with company fields.
	// Descending order (ascending=false) returns rises only, largest first;
	// ascending returns falls only, largest fall first.
	MoversAt(ctx context.Context, periodType domain.PeriodType, calculatedAt time.Time, limit int, ascending bool) ([]domain.RankingMove, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
