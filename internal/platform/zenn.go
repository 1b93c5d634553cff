package platform

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"InfluenceRanker/internal/domain"
	"InfluenceRanker/internal/ports"
	"InfluenceRanker/internal/scrape"
)

const zennBaseURL = "https://zenn.dev"

var (
	zennItemSelectors   = []string{"div[class*=\"ArticleList_item\"]", "article"}
	zennTitleSelectors  = []string{"h2", "p[class*=\"title\"]", "a[href*=\"/articles/\"] h2"}
	zennLinkSelectors   = []string{"a[class*=\"ArticleList_link\"]", "a[href*=\"/articles/\"]"}
	zennLikesSelectors  = []string{"span[class*=\"like\"]", "[aria-label*=\"いいね\"]", "button span"}
	zennAuthorSelectors = []string{"div[class*=\"userName\"]", "a[href^=\"/\"] span"}
	zennTimeSelectors   = []string{"time", "span[class*=\"date\"]"}
)

// Zenn scrapes the Zenn trending listing.
type Zenn struct {
	engine   *scrape.Engine
	logger   *slog.Logger
	baseURL  string
	maxItems int
	now      func() time.Time
}

var _ ports.TrendingSource = (*Zenn)(nil)

// NewZenn wires the shared extraction engine; maxItems defaults to 16.
func NewZenn(engine *scrape.Engine, logger *slog.Logger, maxItems int) *Zenn {
	if maxItems <= 0 {
		maxItems = 16
	}
	return &Zenn{
		engine:   engine,
		logger:   logger,
		baseURL:  zennBaseURL,
		maxItems: maxItems,
		now:      time.Now,
	}
}

// Platform identifies the adapter inside the registry.
func (z *Zenn) Platform() domain.Platform { return domain.PlatformZenn }

// ScrapeTrending fetches the trending page and returns normalized records.
func (z *Zenn) ScrapeTrending(ctx context.Context) ([]domain.RawArticleRecord, error) {
	z.engine.Reset()

	doc, err := z.engine.Fetch(ctx, z.baseURL)
	if err != nil {
		return nil, fmt.Errorf("zenn trending: %w", err)
	}

	base, err := url.Parse(z.baseURL)
	if err != nil {
		return nil, fmt.Errorf("zenn base url: %w", err)
	}

	scrapedAt := z.now().UTC()
	var records []domain.RawArticleRecord

	itemSelection(doc, zennItemSelectors).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if len(records) >= z.maxItems {
			return false
		}

		record, ok := z.parseItem(sel, base, scrapedAt)
		if !ok {
			if z.logger != nil {
				z.logger.Warn("dropping malformed zenn item", "index", i)
			}
			return true
		}

		records = append(records, record)
		return true
	})

	return records, nil
}

func (z *Zenn) parseItem(sel *goquery.Selection, base *url.URL, scrapedAt time.Time) (domain.RawArticleRecord, bool) {
	title := scrape.TextBySelectors(sel, zennTitleSelectors)
	link := scrape.LinkBySelectors(sel, zennLinkSelectors, base)
	if title == "" || link == "" {
		return domain.RawArticleRecord{}, false
	}

	record := domain.RawArticleRecord{
		Title:      title,
		URL:        link,
		Domain:     hostOf(link),
		Engagement: scrape.NumberBySelectors(sel, zennLikesSelectors),
		AuthorName: CleanAuthorName(scrape.TextBySelectors(sel, zennAuthorSelectors)),
		AuthorURL:  scrape.LinkBySelectors(sel, zennAuthorSelectors, base),
		ScrapedAt:  scrapedAt,
		Platform:   domain.PlatformZenn,
	}
	record.PublishedAt = parseItemTime(sel, zennTimeSelectors, scrapedAt)

	return record, true
}
