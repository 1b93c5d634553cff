package ranking

import (
	"context"
	"testing"
	"time"

	"InfluenceRanker/internal/domain"
)

type fakeHistory struct {
	appended []domain.RankingHistory
	latest   *time.Time
	changes  []domain.RankingHistory
	moves    []domain.RankingMove

	deleteCutoff time.Time
	deleteCount  int64
}

func (f *fakeHistory) AppendAll(ctx context.Context, rows []domain.RankingHistory) error {
	f.appended = append(f.appended, rows...)
	return nil
}

func (f *fakeHistory) ForCompany(ctx context.Context, companyID int64, pt domain.PeriodType, days int) ([]domain.RankingHistory, error) {
	return nil, nil
}

func (f *fakeHistory) LatestCalculatedAt(ctx context.Context, pt domain.PeriodType) (*time.Time, error) {
	return f.latest, nil
}

func (f *fakeHistory) ChangesAt(ctx context.Context, pt domain.PeriodType, at time.Time) ([]domain.RankingHistory, error) {
	return f.changes, nil
}

func (f *fakeHistory) MoversAt(ctx context.Context, pt domain.PeriodType, at time.Time, limit int, ascending bool) ([]domain.RankingMove, error) {
	return f.moves, nil
}

func (f *fakeHistory) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.deleteCutoff = cutoff
	return f.deleteCount, nil
}

func seedSnapshot(r *fakeRankings, pt domain.PeriodType, at time.Time, ranks map[int64]int) {
	var rows []domain.Ranking
	for companyID, pos := range ranks {
		rows = append(rows, domain.Ranking{
			CompanyID:    companyID,
			PeriodType:   pt,
			RankPosition: pos,
			CalculatedAt: at,
		})
	}
	r.ReplaceForPeriod(context.Background(), pt, at.AddDate(0, 0, -7), at, rows)
}

func TestRecordComputesRankChange(t *testing.T) {
	t.Parallel()

	rankings := newFakeRankings()
	history := &fakeHistory{}
	prevAt := time.Date(2025, time.August, 29, 3, 0, 0, 0, time.UTC)
	curAt := time.Date(2025, time.August, 30, 3, 0, 0, 0, time.UTC)

	seedSnapshot(rankings, domain.Period1Week, prevAt, map[int64]int{1: 5, 2: 2, 3: 1})
	// Company 4 has no previous snapshot and must be left out.
	seedSnapshot(rankings, domain.Period1Week, curAt, map[int64]int{1: 3, 2: 7, 4: 4})

	tracker := NewTracker(rankings, history, 365, nil)
	n, err := tracker.Record(context.Background(), domain.Period1Week, curAt)
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 history rows, got %d", n)
	}

	changes := map[int64]domain.RankingHistory{}
	for _, row := range history.appended {
		changes[row.CompanyID] = row
	}
	if got := changes[1].RankChange; got != 2 {
		t.Fatalf("rank 5 to 3 should be +2, got %d", got)
	}
	if got := changes[2].RankChange; got != -5 {
		t.Fatalf("rank 2 to 7 should be -5, got %d", got)
	}
	if _, ok := changes[4]; ok {
		t.Fatal("company without previous rank must not produce history")
	}
}

func TestRecordSkipsWithoutPreviousSnapshot(t *testing.T) {
	t.Parallel()

	rankings := newFakeRankings()
	history := &fakeHistory{}
	curAt := time.Date(2025, time.August, 30, 3, 0, 0, 0, time.UTC)
	seedSnapshot(rankings, domain.Period1Month, curAt, map[int64]int{1: 1})

	tracker := NewTracker(rankings, history, 365, nil)
	n, err := tracker.Record(context.Background(), domain.Period1Month, curAt)
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if n != 0 || len(history.appended) != 0 {
		t.Fatalf("expected no history on first snapshot, got %d rows", n)
	}
}

func TestChangeStatistics(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, time.August, 30, 3, 0, 0, 0, time.UTC)
	history := &fakeHistory{
		latest: &at,
		changes: []domain.RankingHistory{
			{CompanyID: 1, RankChange: 4},
			{CompanyID: 2, RankChange: -6},
			{CompanyID: 3, RankChange: 0},
			{CompanyID: 4, RankChange: 2},
		},
	}

	tracker := NewTracker(newFakeRankings(), history, 365, nil)
	stats, err := tracker.ChangeStatistics(context.Background(), domain.Period1Week)
	if err != nil {
		t.Fatalf("ChangeStatistics error: %v", err)
	}
	if stats.Risers != 2 || stats.Fallers != 1 || stats.Unchanged != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.MaxRise != 4 || stats.MaxFall != -6 {
		t.Fatalf("unexpected extremes: %+v", stats)
	}
	if stats.AverageChange != 0 {
		t.Fatalf("expected average 0, got %f", stats.AverageChange)
	}
}

func TestChangeStatisticsEmptyHistory(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(newFakeRankings(), &fakeHistory{}, 365, nil)
	stats, err := tracker.ChangeStatistics(context.Background(), domain.Period1Year)
	if err != nil {
		t.Fatalf("ChangeStatistics error: %v", err)
	}
	if stats.Risers != 0 || stats.Fallers != 0 || stats.Unchanged != 0 || stats.AverageChange != 0 {
		t.Fatalf("expected zero statistics, got %+v", stats)
	}
}

func TestCleanupUsesRetentionCutoff(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{deleteCount: 12}
	tracker := NewTracker(newFakeRankings(), history, 30, nil)
	now := time.Date(2025, time.August, 31, 0, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }

	deleted, err := tracker.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("Cleanup error: %v", err)
	}
	if deleted != 12 {
		t.Fatalf("expected 12 deleted rows, got %d", deleted)
	}
	want := now.AddDate(0, 0, -30)
	if !history.deleteCutoff.Equal(want) {
		t.Fatalf("cutoff = %v, want %v", history.deleteCutoff, want)
	}
}
