package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"InfluenceRanker/internal/domain"
)

var rankingColumns = []string{
	"id", "company_id", "period_type", "period_start", "period_end",
	"rank_position", "total_score", "article_count", "total_bookmarks", "calculated_at",
}

// rankedColumns is rankingColumns qualified for queries that join the
// companies table, where bare "id" would be ambiguous.
var rankedColumns = []string{
	"r.id", "r.company_id", "r.period_type", "r.period_start", "r.period_end",
	"r.rank_position", "r.total_score", "r.article_count", "r.total_bookmarks", "r.calculated_at",
}

// ReplaceForPeriod swaps the ranking set of one (period, bounds)
// combination in a single transaction. Readers never observe a
// half-written set.
func (s *Store) ReplaceForPeriod(ctx context.Context, periodType domain.PeriodType, start, end time.Time, rows []domain.Ranking) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ranking replace: %w", err)
	}
	defer tx.Rollback()

	delQuery, delArgs, err := sq.Delete("company_rankings").
		Where(sq.Eq{"period_type": periodType}).
		Where(sq.Eq{"period_start": start.UTC()}).
		Where(sq.Eq{"period_end": end.UTC()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build ranking delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, delQuery, delArgs...); err != nil {
		return fmt.Errorf("delete rankings %s: %w", periodType, err)
	}

	for _, row := range rows {
		insQuery, insArgs, err := sq.Insert("company_rankings").
			Columns("company_id", "period_type", "period_start", "period_end",
				"rank_position", "total_score", "article_count", "total_bookmarks", "calculated_at").
			Values(row.CompanyID, row.PeriodType, row.PeriodStart.UTC(), row.PeriodEnd.UTC(),
				row.RankPosition, row.TotalScore, row.ArticleCount, row.TotalBookmarks,
				row.CalculatedAt.UTC()).
			ToSql()
		if err != nil {
			return fmt.Errorf("build ranking insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insQuery, insArgs...); err != nil {
			return fmt.Errorf("insert ranking for company %d: %w", row.CompanyID, err)
		}
	}

	return tx.Commit()
}

// TopForPeriod returns the most recent ranking set for a period, best
// position first. Companies deactivated after the snapshot are filtered
// out. limit <= 0 means the whole set.
func (s *Store) TopForPeriod(ctx context.Context, periodType domain.PeriodType, limit int) ([]domain.Ranking, error) {
	at, err := s.latestRankingAt(ctx, periodType, nil)
	if err != nil {
		return nil, err
	}
	if at == nil {
		return nil, nil
	}

	builder := sq.Select(rankedColumns...).
		From("company_rankings r").
		Join("companies c ON c.id = r.company_id").
		Where(sq.Eq{"c.is_active": true}).
		Where(sq.Eq{"r.period_type": periodType}).
		Where(sq.Eq{"r.calculated_at": at.UTC()}).
		OrderBy("r.rank_position", "r.company_id")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build top query: %w", err)
	}

	var rows []domain.Ranking
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select top rankings %s: %w", periodType, err)
	}
	return rows, nil
}

// CurrentForCompany returns the company's newest ranking per period.
// Periods the company is absent from are missing from the map; an
// inactive company yields an empty map.
func (s *Store) CurrentForCompany(ctx context.Context, companyID int64) (map[domain.PeriodType]*domain.Ranking, error) {
	out := make(map[domain.PeriodType]*domain.Ranking)
	for _, periodType := range domain.AllPeriodTypes() {
		query, args, err := sq.Select(rankedColumns...).
			From("company_rankings r").
			Join("companies c ON c.id = r.company_id").
			Where(sq.Eq{"c.is_active": true}).
			Where(sq.Eq{"r.company_id": companyID}).
			Where(sq.Eq{"r.period_type": periodType}).
			OrderBy("r.calculated_at DESC", "r.id DESC").
			Limit(1).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("build company ranking query: %w", err)
		}

		var row domain.Ranking
		err = s.db.GetContext(ctx, &row, query, args...)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("select ranking for company %d: %w", companyID, err)
		}
		out[periodType] = &row
	}
	return out, nil
}

// Statistics aggregates the most recent ranking set of a period over
// active companies.
func (s *Store) Statistics(ctx context.Context, periodType domain.PeriodType) (*domain.RankingStatistics, error) {
	stats := &domain.RankingStatistics{PeriodType: periodType}

	at, err := s.latestRankingAt(ctx, periodType, nil)
	if err != nil {
		return nil, err
	}
	if at == nil {
		return stats, nil
	}

	query, args, err := sq.Select(
		"COUNT(*) AS company_count",
		"COALESCE(AVG(r.total_score), 0) AS average_score",
		"COALESCE(MAX(r.total_score), 0) AS max_score",
		"COALESCE(MIN(r.total_score), 0) AS min_score",
		"COALESCE(SUM(r.article_count), 0) AS total_articles",
		"COALESCE(SUM(r.total_bookmarks), 0) AS total_bookmarks",
	).
		From("company_rankings r").
		Join("companies c ON c.id = r.company_id").
		Where(sq.Eq{"c.is_active": true}).
		Where(sq.Eq{"r.period_type": periodType}).
		Where(sq.Eq{"r.calculated_at": at.UTC()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build statistics query: %w", err)
	}

	var row struct {
		CompanyCount   int     `db:"company_count"`
		AverageScore   float64 `db:"average_score"`
		MaxScore       float64 `db:"max_score"`
		MinScore       float64 `db:"min_score"`
		TotalArticles  int     `db:"total_articles"`
		TotalBookmarks int     `db:"total_bookmarks"`
	}
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, fmt.Errorf("select ranking statistics %s: %w", periodType, err)
	}

	stats.CompanyCount = row.CompanyCount
	stats.AverageScore = row.AverageScore
	stats.MaxScore = row.MaxScore
	stats.MinScore = row.MinScore
	stats.TotalArticles = row.TotalArticles
	stats.TotalBookmarks = row.TotalBookmarks
	return stats, nil
}

// SnapshotAt returns the full ranking set computed at one instant.
func (s *Store) SnapshotAt(ctx context.Context, periodType domain.PeriodType, calculatedAt time.Time) ([]domain.Ranking, error) {
	query, args, err := sq.Select(rankingColumns...).
		From("company_rankings").
		Where(sq.Eq{"period_type": periodType}).
		Where(sq.Eq{"calculated_at": calculatedAt.UTC()}).
		OrderBy("rank_position", "company_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build snapshot query: %w", err)
	}

	var rows []domain.Ranking
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select ranking snapshot %s: %w", periodType, err)
	}
	return rows, nil
}

// LatestCalculatedAtBefore returns the newest snapshot timestamp strictly
// older than before, across all period bounds, or nil when none exists.
func (s *Store) LatestCalculatedAtBefore(ctx context.Context, periodType domain.PeriodType, before time.Time) (*time.Time, error) {
	b := before.UTC()
	return s.latestRankingAt(ctx, periodType, &b)
}

// latestRankingAt selects the newest calculated_at, optionally bounded
// strictly below. An ORDER BY on the bare column keeps the DATETIME
// declared type, which MAX() would lose under this driver.
func (s *Store) latestRankingAt(ctx context.Context, periodType domain.PeriodType, before *time.Time) (*time.Time, error) {
	builder := sq.Select("calculated_at").
		From("company_rankings").
		Where(sq.Eq{"period_type": periodType}).
		OrderBy("calculated_at DESC").
		Limit(1)
	if before != nil {
		builder = builder.Where("calculated_at < ?", *before)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build latest calculated_at query: %w", err)
	}

	var at time.Time
	err = s.db.GetContext(ctx, &at, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select latest calculated_at %s: %w", periodType, err)
	}
	return &at, nil
}
