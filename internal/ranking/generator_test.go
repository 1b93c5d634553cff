package ranking

import (
	"context"
	"fmt"
	"testing"
	"time"

	"InfluenceRanker/internal/config"
	"InfluenceRanker/internal/domain"
	"InfluenceRanker/internal/score"
)

type fakeArticles struct {
	byCompany map[int64][]domain.Article
}

func (f *fakeArticles) Upsert(ctx context.Context, a *domain.Article) error { return nil }

func (f *fakeArticles) ListForCompanyInWindow(ctx context.Context, companyID int64, start, end time.Time) ([]domain.Article, error) {
	var out []domain.Article
	for _, a := range f.byCompany[companyID] {
		if a.PublishedAt != nil && !a.PublishedAt.Before(start) && !a.PublishedAt.After(end) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeArticles) ListUnmatched(ctx context.Context, limit int) ([]domain.Article, error) {
	return nil, nil
}

func (f *fakeArticles) AssignCompany(ctx context.Context, articleID, companyID int64) error {
	return nil
}

type fakeCompanies struct {
	list []domain.Company
}

func (f *fakeCompanies) ListActive(ctx context.Context) ([]domain.Company, error) {
	return f.list, nil
}

type fakeScores struct {
	appended []domain.InfluenceScore
}

func (f *fakeScores) Append(ctx context.Context, s *domain.InfluenceScore) error {
	f.appended = append(f.appended, *s)
	return nil
}

// fakeRankings mimics the replace-by-period-bounds semantics of the real
// repository and keeps every snapshot addressable by calculated_at.
type fakeRankings struct {
	sets map[string][]domain.Ranking
}

func newFakeRankings() *fakeRankings {
	return &fakeRankings{sets: map[string][]domain.Ranking{}}
}

func boundsKey(pt domain.PeriodType, start, end time.Time) string {
	return fmt.Sprintf("%s|%d|%d", pt, start.Unix(), end.Unix())
}

func (f *fakeRankings) ReplaceForPeriod(ctx context.Context, pt domain.PeriodType, start, end time.Time, rows []domain.Ranking) error {
	f.sets[boundsKey(pt, start, end)] = append([]domain.Ranking(nil), rows...)
	return nil
}

func (f *fakeRankings) TopForPeriod(ctx context.Context, pt domain.PeriodType, limit int) ([]domain.Ranking, error) {
	return nil, nil
}

func (f *fakeRankings) CurrentForCompany(ctx context.Context, companyID int64) (map[domain.PeriodType]*domain.Ranking, error) {
	return nil, nil
}

func (f *fakeRankings) Statistics(ctx context.Context, pt domain.PeriodType) (*domain.RankingStatistics, error) {
	return nil, nil
}

func (f *fakeRankings) SnapshotAt(ctx context.Context, pt domain.PeriodType, calculatedAt time.Time) ([]domain.Ranking, error) {
	var out []domain.Ranking
	for _, rows := range f.sets {
		for _, row := range rows {
			if row.PeriodType == pt && row.CalculatedAt.Equal(calculatedAt) {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

func (f *fakeRankings) LatestCalculatedAtBefore(ctx context.Context, pt domain.PeriodType, before time.Time) (*time.Time, error) {
	var latest *time.Time
	for _, rows := range f.sets {
		for _, row := range rows {
			if row.PeriodType != pt || !row.CalculatedAt.Before(before) {
				continue
			}
			if latest == nil || row.CalculatedAt.After(*latest) {
				ts := row.CalculatedAt
				latest = &ts
			}
		}
	}
	return latest, nil
}

func testGenerator(articles *fakeArticles, companies *fakeCompanies, rankings *fakeRankings, scores *fakeScores) *Generator {
	weights := config.ScoringConfig{
		BasePoints:            1.0,
		BookmarkFactor:        0.1,
		LikesFactor:           0.05,
		DecayFloor:            0.1,
		FallbackTimeWeight:    0.5,
		UnknownPlatformWeight: 0.5,
		PlatformWeights:       map[string]float64{"qiita": 1.0, "zenn": 1.0, "hatena": 0.8},
	}
	periods := config.RankingConfig{
		PeriodDays:           map[string]int{"1w": 7, "1m": 30, "3m": 90, "6m": 180, "1y": 365, "3y": 1095},
		AllTimeEpochYear:     2020,
		HistoryRetentionDays: 365,
	}
	calc := score.NewCalculator(articles, companies, scores, weights, nil)
	return NewGenerator(calc, rankings, periods, nil)
}

func TestPeriodDates(t *testing.T) {
	t.Parallel()

	g := testGenerator(&fakeArticles{}, &fakeCompanies{}, newFakeRankings(), &fakeScores{})
	ref := time.Date(2025, time.August, 30, 15, 30, 0, 0, time.UTC)

	start, end := g.PeriodDates(domain.Period1Week, ref)
	if !end.Equal(time.Date(2025, time.August, 30, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("unexpected end: %v", end)
	}
	if !start.Equal(time.Date(2025, time.August, 23, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected 1w start: %v", start)
	}

	start, _ = g.PeriodDates(domain.PeriodAll, ref)
	if !start.Equal(time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected all-time epoch: %v", start)
	}
}

func TestGenerateForPeriodDenseRank(t *testing.T) {
	t.Parallel()

	ref := time.Date(2025, time.August, 30, 12, 0, 0, 0, time.UTC)
	published := time.Date(2025, time.August, 30, 23, 59, 59, 0, time.UTC)

	// Two companies tie, one trails: likes 20/20/10 with weight 1.0 give
	// scores 2.0, 2.0, 1.5.
	articles := &fakeArticles{byCompany: map[int64][]domain.Article{
		1: {{Platform: domain.PlatformQiita, LikesCount: 20, PublishedAt: &published}},
		2: {{Platform: domain.PlatformQiita, LikesCount: 20, PublishedAt: &published}},
		3: {{Platform: domain.PlatformQiita, LikesCount: 10, PublishedAt: &published}},
	}}
	companies := &fakeCompanies{list: []domain.Company{{ID: 1}, {ID: 2}, {ID: 3}}}
	rankings := newFakeRankings()
	scores := &fakeScores{}

	g := testGenerator(articles, companies, rankings, scores)
	g.calc = score.NewCalculator(articles, companies, scores, config.ScoringConfig{
		BasePoints:         1.0,
		LikesFactor:        0.05,
		DecayFloor:         0.1,
		FallbackTimeWeight: 0.5,
		PlatformWeights:    map[string]float64{"qiita": 1.0},
	}, nil)
	g.now = func() time.Time { return published }

	rows, err := g.GenerateForPeriod(context.Background(), domain.Period1Week, ref)
	if err != nil {
		t.Fatalf("GenerateForPeriod error: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("expected 3 ranking rows, got %d", len(rows))
	}
	gotRanks := []int{rows[0].RankPosition, rows[1].RankPosition, rows[2].RankPosition}
	if gotRanks[0] != 1 || gotRanks[1] != 1 || gotRanks[2] != 2 {
		t.Fatalf("dense rank violated: got %v, want [1 1 2]", gotRanks)
	}
	if len(scores.appended) != 3 {
		t.Fatalf("expected an influence-score snapshot per company, got %d", len(scores.appended))
	}
}

func TestGenerateForPeriodIsIdempotent(t *testing.T) {
	t.Parallel()

	ref := time.Date(2025, time.August, 30, 12, 0, 0, 0, time.UTC)
	published := time.Date(2025, time.August, 30, 10, 0, 0, 0, time.UTC)

	articles := &fakeArticles{byCompany: map[int64][]domain.Article{
		1: {{Platform: domain.PlatformQiita, LikesCount: 10, PublishedAt: &published}},
	}}
	companies := &fakeCompanies{list: []domain.Company{{ID: 1}}}
	rankings := newFakeRankings()

	g := testGenerator(articles, companies, rankings, &fakeScores{})
	g.now = func() time.Time { return published }

	for i := 0; i < 2; i++ {
		if _, err := g.GenerateForPeriod(context.Background(), domain.Period1Month, ref); err != nil {
			t.Fatalf("GenerateForPeriod run %d: %v", i, err)
		}
	}

	start, end := g.PeriodDates(domain.Period1Month, ref)
	stored := rankings.sets[boundsKey(domain.Period1Month, start, end)]
	if len(stored) != 1 {
		t.Fatalf("expected the prior set to be fully replaced, got %d rows", len(stored))
	}
}

func TestGenerateAllCoversEveryPeriod(t *testing.T) {
	t.Parallel()

	ref := time.Date(2025, time.August, 30, 12, 0, 0, 0, time.UTC)
	published := time.Date(2025, time.August, 30, 10, 0, 0, 0, time.UTC)

	articles := &fakeArticles{byCompany: map[int64][]domain.Article{
		1: {{Platform: domain.PlatformQiita, LikesCount: 10, PublishedAt: &published}},
	}}
	g := testGenerator(articles, &fakeCompanies{list: []domain.Company{{ID: 1}}}, newFakeRankings(), &fakeScores{})
	g.now = func() time.Time { return published }

	out, err := g.GenerateAll(context.Background(), ref)
	if err != nil {
		t.Fatalf("GenerateAll error: %v", err)
	}
	if len(out) != len(domain.AllPeriodTypes()) {
		t.Fatalf("expected %d periods, got %d", len(domain.AllPeriodTypes()), len(out))
	}
}
