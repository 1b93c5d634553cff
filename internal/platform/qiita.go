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

const qiitaBaseURL = "https://qiita.com"

// Candidate selector chains, tried in order. Markup variance between
// deployments is absorbed here, not in code.
var (
	qiitaItemSelectors   = []string{"div.p-home_main article", "article"}
	qiitaTitleSelectors  = []string{"h2 a", "h2", "a[class*=\"title\"]"}
	qiitaLinkSelectors   = []string{"h2 a", "a[href*=\"/items/\"]"}
	qiitaLikesSelectors  = []string{"[aria-label*=\"LGTM\"]", "[data-likes-count]", "footer span"}
	qiitaAuthorSelectors = []string{"header a[href^=\"/\"]", "a[class*=\"author\"]"}
	qiitaTimeSelectors   = []string{"time", "span[class*=\"date\"]"}
)

// Qiita scrapes the Qiita trending listing.
type Qiita struct {
	engine   *scrape.Engine
	logger   *slog.Logger
	baseURL  string
	maxItems int
	now      func() time.Time
}

var _ ports.TrendingSource = (*Qiita)(nil)

// NewQiita wires the shared extraction engine; maxItems defaults to 16.
func NewQiita(engine *scrape.Engine, logger *slog.Logger, maxItems int) *Qiita {
	if maxItems <= 0 {
		maxItems = 16
	}
	return &Qiita{
		engine:   engine,
		logger:   logger,
		baseURL:  qiitaBaseURL,
		maxItems: maxItems,
		now:      time.Now,
	}
}

// Platform identifies the adapter inside the registry.
func (q *Qiita) Platform() domain.Platform { return domain.PlatformQiita }

// ScrapeTrending fetches the trending page and returns normalized records.
// Items missing a title or URL are dropped with a warning, never aborting
// the batch.
func (q *Qiita) ScrapeTrending(ctx context.Context) ([]domain.RawArticleRecord, error) {
	q.engine.Reset()

	doc, err := q.engine.Fetch(ctx, q.baseURL)
	if err != nil {
		return nil, fmt.Errorf("qiita trending: %w", err)
	}

	base, err := url.Parse(q.baseURL)
	if err != nil {
		return nil, fmt.Errorf("qiita base url: %w", err)
	}

	scrapedAt := q.now().UTC()
	var records []domain.RawArticleRecord

	itemSelection(doc, qiitaItemSelectors).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if len(records) >= q.maxItems {
			return false
		}

		record, ok := q.parseItem(sel, base, scrapedAt)
		if !ok {
			if q.logger != nil {
				q.logger.Warn("dropping malformed qiita item", "index", i)
			}
			return true
		}

		records = append(records, record)
		return true
	})

	return records, nil
}

func (q *Qiita) parseItem(sel *goquery.Selection, base *url.URL, scrapedAt time.Time) (domain.RawArticleRecord, bool) {
	title := scrape.TextBySelectors(sel, qiitaTitleSelectors)
	link := scrape.LinkBySelectors(sel, qiitaLinkSelectors, base)
	if title == "" || link == "" {
		return domain.RawArticleRecord{}, false
	}

	record := domain.RawArticleRecord{
		Title:      title,
		URL:        link,
		Domain:     hostOf(link),
		Engagement: scrape.NumberBySelectors(sel, qiitaLikesSelectors),
		AuthorName: CleanAuthorName(scrape.TextBySelectors(sel, qiitaAuthorSelectors)),
		AuthorURL:  scrape.LinkBySelectors(sel, qiitaAuthorSelectors, base),
		ScrapedAt:  scrapedAt,
		Platform:   domain.PlatformQiita,
	}
	record.PublishedAt = parseItemTime(sel, qiitaTimeSelectors, scrapedAt)

	return record, true
}

// parseItemTime resolves an item's publish timestamp: a machine-readable
// datetime attribute first, then a relative-time token anchored to now.
func parseItemTime(sel *goquery.Selection, selectors []string, now time.Time) *time.Time {
	if value := scrape.AttrBySelectors(sel, selectors, "datetime"); value != "" {
		if ts, err := time.Parse(time.RFC3339, value); err == nil {
			utc := ts.UTC()
			return &utc
		}
	}
	return ParseRelativeTime(scrape.TextBySelectors(sel, selectors), now)
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}
