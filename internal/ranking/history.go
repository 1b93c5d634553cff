package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"InfluenceRanker/internal/domain"
	"InfluenceRanker/internal/ports"
)

// Tracker maintains the append-only rank-change log by diffing the current
// ranking snapshot of a period against the most recent prior one.
type Tracker struct {
	rankings      ports.RankingRepository
	history       ports.HistoryRepository
	retentionDays int
	logger        *slog.Logger
	now           func() time.Time
}

// NewTracker wires the ranking and history repositories. retentionDays
// bounds how long history rows are kept; it defaults to 365.
func NewTracker(rankings ports.RankingRepository, history ports.HistoryRepository, retentionDays int, logger *slog.Logger) *Tracker {
	if retentionDays <= 0 {
		retentionDays = 365
	}
	return &Tracker{
		rankings:      rankings,
		history:       history,
		retentionDays: retentionDays,
		logger:        logger,
		now:           time.Now,
	}
}

// Record computes rank deltas between the ranking set at calculatedAt and
// the newest set strictly older than it, appending one history row per
// company present in the current set. Companies without a previous rank
// are skipped, not treated as an infinite rise. Returns the number of
// rows appended.
func (t *Tracker) Record(ctx context.Context, periodType domain.PeriodType, calculatedAt time.Time) (int, error) {
	current, err := t.rankings.SnapshotAt(ctx, periodType, calculatedAt)
	if err != nil {
		return 0, fmt.Errorf("current snapshot %s: %w", periodType, err)
	}
	if len(current) == 0 {
		return 0, nil
	}

	prevAt, err := t.rankings.LatestCalculatedAtBefore(ctx, periodType, calculatedAt)
	if err != nil {
		return 0, fmt.Errorf("previous snapshot time %s: %w", periodType, err)
	}
	if prevAt == nil {
		if t.logger != nil {
			t.logger.Info("no previous ranking snapshot, skipping history", "period", periodType)
		}
		return 0, nil
	}

	previous, err := t.rankings.SnapshotAt(ctx, periodType, *prevAt)
	if err != nil {
		return 0, fmt.Errorf("previous snapshot %s: %w", periodType, err)
	}

	previousRank := make(map[int64]int, len(previous))
	for _, row := range previous {
		previousRank[row.CompanyID] = row.RankPosition
	}

	var rows []domain.RankingHistory
	for _, row := range current {
		prev, ok := previousRank[row.CompanyID]
		if !ok {
			continue
		}
		rows = append(rows, domain.RankingHistory{
			CompanyID:    row.CompanyID,
			PeriodType:   periodType,
			CurrentRank:  row.RankPosition,
			PreviousRank: prev,
			RankChange:   prev - row.RankPosition,
			CalculatedAt: calculatedAt,
		})
	}

	if len(rows) == 0 {
		return 0, nil
	}
	if err := t.history.AppendAll(ctx, rows); err != nil {
		return 0, fmt.Errorf("append history %s: %w", periodType, err)
	}
	return len(rows), nil
}

// CompanyHistory returns a company's time-bounded history, newest first.
func (t *Tracker) CompanyHistory(ctx context.Context, companyID int64, periodType domain.PeriodType, days int) ([]domain.RankingHistory, error) {
	return t.history.ForCompany(ctx, companyID, periodType, days)
}

// TopRisers lists the biggest rank gains at the most recent snapshot.
func (t *Tracker) TopRisers(ctx context.Context, periodType domain.PeriodType, limit int) ([]domain.RankingMove, error) {
	return t.movers(ctx, periodType, limit, false)
}

// TopFallers lists the biggest rank losses at the most recent snapshot.
func (t *Tracker) TopFallers(ctx context.Context, periodType domain.PeriodType, limit int) ([]domain.RankingMove, error) {
	return t.movers(ctx, periodType, limit, true)
}

func (t *Tracker) movers(ctx context.Context, periodType domain.PeriodType, limit int, ascending bool) ([]domain.RankingMove, error) {
	at, err := t.history.LatestCalculatedAt(ctx, periodType)
	if err != nil {
		return nil, fmt.Errorf("latest history snapshot %s: %w", periodType, err)
	}
	if at == nil {
		return nil, nil
	}
	return t.history.MoversAt(ctx, periodType, *at, limit, ascending)
}

// ChangeStatistics aggregates rank deltas at the most recent snapshot.
func (t *Tracker) ChangeStatistics(ctx context.Context, periodType domain.PeriodType) (*domain.ChangeStatistics, error) {
	stats := &domain.ChangeStatistics{PeriodType: periodType}

	at, err := t.history.LatestCalculatedAt(ctx, periodType)
	if err != nil {
		return nil, fmt.Errorf("latest history snapshot %s: %w", periodType, err)
	}
	if at == nil {
		return stats, nil
	}

	rows, err := t.history.ChangesAt(ctx, periodType, *at)
	if err != nil {
		return nil, fmt.Errorf("history changes %s: %w", periodType, err)
	}

	var total int
	for _, row := range rows {
		total += row.RankChange
		switch {
		case row.RankChange > 0:
			stats.Risers++
			if row.RankChange > stats.MaxRise {
				stats.MaxRise = row.RankChange
			}
		case row.RankChange < 0:
			stats.Fallers++
			if row.RankChange < stats.MaxFall {
				stats.MaxFall = row.RankChange
			}
		default:
			stats.Unchanged++
		}
	}
	if len(rows) > 0 {
		stats.AverageChange = float64(total) / float64(len(rows))
	}

	return stats, nil
}

// Cleanup deletes history rows older than the retention window and
// returns the number deleted. Runs as a periodic maintenance task.
func (t *Tracker) Cleanup(ctx context.Context) (int64, error) {
	cutoff := t.now().UTC().AddDate(0, 0, -t.retentionDays)
	deleted, err := t.history.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup history: %w", err)
	}
	if t.logger != nil {
		t.logger.Info("history cleanup", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}
