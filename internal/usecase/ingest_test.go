package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"InfluenceRanker/internal/domain"
	"InfluenceRanker/internal/matcher"
	"InfluenceRanker/internal/platform"
)

type memArticles struct {
	byURL map[string]*domain.Article
	next  int64
}

func newMemArticles() *memArticles {
	return &memArticles{byURL: map[string]*domain.Article{}}
}

func (m *memArticles) Upsert(ctx context.Context, a *domain.Article) error {
	if existing, ok := m.byURL[a.URL]; ok {
		id := existing.ID
		stored := *a
		stored.ID = id
		m.byURL[a.URL] = &stored
		return nil
	}
	m.next++
	stored := *a
	stored.ID = m.next
	m.byURL[a.URL] = &stored
	return nil
}

func (m *memArticles) ListForCompanyInWindow(ctx context.Context, companyID int64, start, end time.Time) ([]domain.Article, error) {
	return nil, nil
}

func (m *memArticles) ListUnmatched(ctx context.Context, limit int) ([]domain.Article, error) {
	var out []domain.Article
	for _, a := range m.byURL {
		if a.CompanyID == nil && a.DeletedAt == nil {
			out = append(out, *a)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memArticles) AssignCompany(ctx context.Context, articleID, companyID int64) error {
	for _, a := range m.byURL {
		if a.ID == articleID {
			id := companyID
			a.CompanyID = &id
			return nil
		}
	}
	return errors.New("article not found")
}

type staticCompanies struct {
	list []domain.Company
}

func (s *staticCompanies) ListActive(ctx context.Context) ([]domain.Company, error) {
	return s.list, nil
}

func testNormalizer(articles *memArticles) *Normalizer {
	companies := &staticCompanies{list: []domain.Company{
		{ID: 7, Name: "Example Inc", Domain: "tech.example.co.jp", IsActive: true},
	}}
	return NewNormalizer(articles, matcher.New(companies, nil), nil)
}

func TestNormalizeAndSaveUpsertsByURL(t *testing.T) {
	t.Parallel()

	articles := newMemArticles()
	n := testNormalizer(articles)
	published := time.Date(2025, time.August, 29, 10, 0, 0, 0, time.UTC)

	first := []domain.RawArticleRecord{{
		Title:       "Go concurrency patterns",
		URL:         "https://tech.example.co.jp/entry/go",
		Domain:      "tech.example.co.jp",
		Engagement:  40,
		PublishedAt: &published,
		Platform:    domain.PlatformHatena,
	}}
	if _, err := n.NormalizeAndSave(context.Background(), first, false); err != nil {
		t.Fatalf("first NormalizeAndSave: %v", err)
	}

	// Same URL scraped again with a higher bookmark count.
	second := first
	second[0].Engagement = 120
	if _, err := n.NormalizeAndSave(context.Background(), second, false); err != nil {
		t.Fatalf("second NormalizeAndSave: %v", err)
	}

	if len(articles.byURL) != 1 {
		t.Fatalf("expected one stored article, got %d", len(articles.byURL))
	}
	stored := articles.byURL["https://tech.example.co.jp/entry/go"]
	if stored.BookmarkCount != 120 {
		t.Fatalf("bookmark count not refreshed: got %d", stored.BookmarkCount)
	}
	if stored.CompanyID == nil || *stored.CompanyID != 7 {
		t.Fatalf("expected company 7 attribution, got %v", stored.CompanyID)
	}
	if stored.LikesCount != 0 {
		t.Fatalf("hatena engagement must map to bookmarks, likes = %d", stored.LikesCount)
	}
}

func TestNormalizeAndSaveDropsMalformed(t *testing.T) {
	t.Parallel()

	articles := newMemArticles()
	n := testNormalizer(articles)

	records := []domain.RawArticleRecord{
		{Title: "no url", Platform: domain.PlatformQiita},
		{URL: "https://qiita.com/u/items/1", Platform: domain.PlatformQiita},
		{Title: "ok", URL: "https://qiita.com/u/items/2", Engagement: 5, Platform: domain.PlatformQiita},
	}
	summary, err := n.NormalizeAndSave(context.Background(), records, false)
	if err != nil {
		t.Fatalf("NormalizeAndSave: %v", err)
	}
	if summary.Dropped != 2 || summary.Saved != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	stored := articles.byURL["https://qiita.com/u/items/2"]
	if stored == nil || stored.LikesCount != 5 {
		t.Fatalf("qiita engagement must map to likes, got %+v", stored)
	}
}

func TestNormalizeAndSaveDryRun(t *testing.T) {
	t.Parallel()

	articles := newMemArticles()
	n := testNormalizer(articles)

	records := []domain.RawArticleRecord{{
		Title:    "dry run entry",
		URL:      "https://tech.example.co.jp/entry/dry",
		Domain:   "tech.example.co.jp",
		Platform: domain.PlatformHatena,
	}}
	summary, err := n.NormalizeAndSave(context.Background(), records, true)
	if err != nil {
		t.Fatalf("NormalizeAndSave: %v", err)
	}
	if summary.Saved != 1 || summary.Matched != 1 {
		t.Fatalf("dry run should still count and match: %+v", summary)
	}
	if len(articles.byURL) != 0 {
		t.Fatalf("dry run must not persist, stored %d", len(articles.byURL))
	}
}

func TestRematchArticles(t *testing.T) {
	t.Parallel()

	articles := newMemArticles()
	articles.Upsert(context.Background(), &domain.Article{
		URL:      "https://tech.example.co.jp/entry/old",
		Title:    "old unmatched entry",
		Domain:   "tech.example.co.jp",
		Platform: domain.PlatformHatena,
	})
	articles.Upsert(context.Background(), &domain.Article{
		URL:      "https://blog.other.jp/entry/none",
		Title:    "unrelated entry",
		Domain:   "blog.other.jp",
		Platform: domain.PlatformHatena,
	})

	n := testNormalizer(articles)
	assigned, err := n.RematchArticles(context.Background(), 100)
	if err != nil {
		t.Fatalf("RematchArticles: %v", err)
	}
	if assigned != 1 {
		t.Fatalf("expected 1 assignment, got %d", assigned)
	}
	matched := articles.byURL["https://tech.example.co.jp/entry/old"]
	if matched.CompanyID == nil || *matched.CompanyID != 7 {
		t.Fatalf("expected company 7, got %v", matched.CompanyID)
	}
	if articles.byURL["https://blog.other.jp/entry/none"].CompanyID != nil {
		t.Fatal("unrelated article must stay unmatched")
	}
}

type stubSource struct {
	platform domain.Platform
	records  []domain.RawArticleRecord
	err      error
}

func (s *stubSource) Platform() domain.Platform { return s.platform }

func (s *stubSource) ScrapeTrending(ctx context.Context) ([]domain.RawArticleRecord, error) {
	return s.records, s.err
}

type stubPopularSource struct {
	stubSource
	popularRecords []domain.RawArticleRecord
}

func (s *stubPopularSource) ScrapePopularEntries(ctx context.Context) ([]domain.RawArticleRecord, error) {
	return s.popularRecords, s.err
}

// The hatena adapter carries the popular entry listing.
var _ PopularSource = (*platform.Hatena)(nil)

func TestRunPopularUsesPopularListings(t *testing.T) {
	t.Parallel()

	registry := platform.NewRegistry()
	registry.Register(&stubSource{
		platform: domain.PlatformQiita,
		records: []domain.RawArticleRecord{{
			Title:    "qiita trending entry",
			URL:      "https://qiita.com/u/items/trend",
			Platform: domain.PlatformQiita,
		}},
	})
	registry.Register(&stubPopularSource{
		stubSource: stubSource{
			platform: domain.PlatformHatena,
			records: []domain.RawArticleRecord{{
				Title:    "hatena trending entry",
				URL:      "https://b.example.jp/entry/trend",
				Platform: domain.PlatformHatena,
			}},
		},
		popularRecords: []domain.RawArticleRecord{{
			Title:    "hatena popular entry",
			URL:      "https://b.example.jp/entry/popular",
			Platform: domain.PlatformHatena,
		}},
	})

	articles := newMemArticles()
	runner := NewRunner(registry, testNormalizer(articles), nil)

	summary, err := runner.RunPopular(context.Background(), false)
	if err != nil {
		t.Fatalf("RunPopular: %v", err)
	}
	if len(summary.Platforms) != 1 {
		t.Fatalf("only popular-capable adapters must run, got %+v", summary.Platforms)
	}
	if summary.TotalSaved() != 1 {
		t.Fatalf("expected one saved article, got %d", summary.TotalSaved())
	}
	if _, ok := articles.byURL["https://b.example.jp/entry/popular"]; !ok {
		t.Fatal("popular listing entry not stored")
	}
	if _, ok := articles.byURL["https://b.example.jp/entry/trend"]; ok {
		t.Fatal("trending listing must not run during a popular cycle")
	}
}

func TestRunCycleIsolatesPlatformFailures(t *testing.T) {
	t.Parallel()

	registry := platform.NewRegistry()
	registry.Register(&stubSource{
		platform: domain.PlatformQiita,
		records: []domain.RawArticleRecord{{
			Title:    "qiita entry",
			URL:      "https://qiita.com/u/items/a",
			Platform: domain.PlatformQiita,
		}},
	})
	registry.Register(&stubSource{
		platform: domain.PlatformZenn,
		err:      errors.New("listing markup changed"),
	})

	articles := newMemArticles()
	runner := NewRunner(registry, testNormalizer(articles), nil)

	summary, err := runner.RunCycle(context.Background(), nil, false)
	if err == nil {
		t.Fatal("expected joined error for the failing platform")
	}
	if summary.RunID == "" {
		t.Fatal("expected a run id")
	}
	if summary.TotalSaved() != 1 {
		t.Fatalf("healthy platform must still save, got %d", summary.TotalSaved())
	}
	if _, ok := summary.Failed[domain.PlatformZenn]; !ok {
		t.Fatalf("zenn failure not recorded: %+v", summary.Failed)
	}
}

func TestRunCycleSelectedPlatformOnly(t *testing.T) {
	t.Parallel()

	registry := platform.NewRegistry()
	registry.Register(&stubSource{
		platform: domain.PlatformQiita,
		records: []domain.RawArticleRecord{{
			Title:    "qiita entry",
			URL:      "https://qiita.com/u/items/b",
			Platform: domain.PlatformQiita,
		}},
	})
	registry.Register(&stubSource{
		platform: domain.PlatformHatena,
		records: []domain.RawArticleRecord{{
			Title:    "hatena entry",
			URL:      "https://b.example.jp/entry",
			Platform: domain.PlatformHatena,
		}},
	})

	articles := newMemArticles()
	runner := NewRunner(registry, testNormalizer(articles), nil)

	summary, err := runner.RunCycle(context.Background(), []domain.Platform{domain.PlatformQiita}, false)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(summary.Platforms) != 1 {
		t.Fatalf("expected one platform in summary, got %d", len(summary.Platforms))
	}
	if _, ok := summary.Platforms[domain.PlatformQiita]; !ok {
		t.Fatal("qiita summary missing")
	}
}
