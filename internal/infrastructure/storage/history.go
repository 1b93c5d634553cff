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

var historyColumns = []string{
	"id", "company_id", "period_type", "current_rank", "previous_rank",
	"rank_change", "calculated_at",
}

// AppendAll stores one batch of history rows in a single transaction.
func (s *Store) AppendAll(ctx context.Context, rows []domain.RankingHistory) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history append: %w", err)
	}
	defer tx.Rollback()

	for _, row := range rows {
		query, args, err := sq.Insert("company_ranking_history").
			Columns("company_id", "period_type", "current_rank", "previous_rank",
				"rank_change", "calculated_at").
			Values(row.CompanyID, row.PeriodType, row.CurrentRank, row.PreviousRank,
				row.RankChange, row.CalculatedAt.UTC()).
			ToSql()
		if err != nil {
			return fmt.Errorf("build history insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert history for company %d: %w", row.CompanyID, err)
		}
	}

	return tx.Commit()
}

// ForCompany returns a company's history rows from the last days days,
// newest first.
func (s *Store) ForCompany(ctx context.Context, companyID int64, periodType domain.PeriodType, days int) ([]domain.RankingHistory, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	query, args, err := sq.Select(historyColumns...).
		From("company_ranking_history").
		Where(sq.Eq{"company_id": companyID}).
		Where(sq.Eq{"period_type": periodType}).
		Where("calculated_at >= ?", cutoff).
		OrderBy("calculated_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build company history query: %w", err)
	}

	var rows []domain.RankingHistory
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select history for company %d: %w", companyID, err)
	}
	return rows, nil
}

// LatestCalculatedAt returns the newest history snapshot time for a
// period, or nil when no history exists.
func (s *Store) LatestCalculatedAt(ctx context.Context, periodType domain.PeriodType) (*time.Time, error) {
	query, args, err := sq.Select("calculated_at").
		From("company_ranking_history").
		Where(sq.Eq{"period_type": periodType}).
		OrderBy("calculated_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build latest history query: %w", err)
	}

	var at time.Time
	err = s.db.GetContext(ctx, &at, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select latest history %s: %w", periodType, err)
	}
	return &at, nil
}

// ChangesAt returns every history row recorded at one snapshot.
func (s *Store) ChangesAt(ctx context.Context, periodType domain.PeriodType, calculatedAt time.Time) ([]domain.RankingHistory, error) {
	query, args, err := sq.Select(historyColumns...).
		From("company_ranking_history").
		Where(sq.Eq{"period_type": periodType}).
		Where(sq.Eq{"calculated_at": calculatedAt.UTC()}).
		OrderBy("rank_change DESC", "company_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build changes query: %w", err)
	}

	var rows []domain.RankingHistory
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select history changes %s: %w", periodType, err)
	}
	return rows, nil
}

// MoversAt lists history rows at a snapshot joined with company fields.
// Descending order returns rises only, ascending returns falls only, so a
// riser listing never tails into fallers.
func (s *Store) MoversAt(ctx context.Context, periodType domain.PeriodType, calculatedAt time.Time, limit int, ascending bool) ([]domain.RankingMove, error) {
	builder := sq.Select(
		"h.company_id", "c.name AS company_name", "c.domain AS company_domain",
		"h.period_type", "h.current_rank", "h.previous_rank", "h.rank_change", "h.calculated_at",
	).
		From("company_ranking_history h").
		Join("companies c ON c.id = h.company_id").
		Where(sq.Eq{"h.period_type": periodType}).
		Where(sq.Eq{"h.calculated_at": calculatedAt.UTC()})
	if ascending {
		builder = builder.Where("h.rank_change < 0").OrderBy("h.rank_change ASC", "h.company_id")
	} else {
		builder = builder.Where("h.rank_change > 0").OrderBy("h.rank_change DESC", "h.company_id")
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build movers query: %w", err)
	}

	var rows []domain.RankingMove
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select movers %s: %w", periodType, err)
	}
	return rows, nil
}

// DeleteOlderThan removes history rows with calculated_at before cutoff
// and reports how many were deleted.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM company_ranking_history WHERE calculated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete old history: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted history: %w", err)
	}
	return deleted, nil
}
