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

const (
	hatenaBaseURL    = "https://b.hatena.ne.jp"
	hatenaHotEntry   = hatenaBaseURL + "/hotentry/it"
	hatenaEntryList  = hatenaBaseURL + "/entrylist/it"
	hatenaDateLayout = "2006/01/02 15:04"
)

var (
	hatenaItemSelectors     = []string{"div.entrylist-contents", "li.entrylist-item"}
	hatenaTitleSelectors    = []string{"h3.entrylist-contents-title a", "h3 a"}
	hatenaLinkSelectors     = []string{"h3.entrylist-contents-title a", "h3 a"}
	hatenaBookmarkSelectors = []string{"span.entrylist-contents-users a", "span.entrylist-contents-users", "[data-bookmark-count]"}
	hatenaAuthorSelectors   = []string{"li.entrylist-contents-username a", ".entrylist-contents-username"}
	hatenaDateSelectors     = []string{"li.entrylist-contents-date", ".entrylist-contents-date"}
)

// Hatena scrapes Hatena Bookmark listings. The hot-entry page backs
// ScrapeTrending; the popular entry list backs ScrapePopularEntries.
// When the HTML scrape fails and a feed collector is configured, the
// adapter falls back to the hot-entry RSS feed.
type Hatena struct {
	engine   *scrape.Engine
	feed     *HatenaFeed
	logger   *slog.Logger
	baseURL  string
	maxItems int
	now      func() time.Time
}

var _ ports.TrendingSource = (*Hatena)(nil)

// NewHatena wires the shared extraction engine and an optional feed
// fallback; maxItems defaults to 16.
func NewHatena(engine *scrape.Engine, feed *HatenaFeed, logger *slog.Logger, maxItems int) *Hatena {
	if maxItems <= 0 {
		maxItems = 16
	}
	return &Hatena{
		engine:   engine,
		feed:     feed,
		logger:   logger,
		baseURL:  hatenaBaseURL,
		maxItems: maxItems,
		now:      time.Now,
	}
}

// Platform identifies the adapter inside the registry.
func (h *Hatena) Platform() domain.Platform { return domain.PlatformHatena }

// ScrapeTrending fetches the hot-entry listing.
func (h *Hatena) ScrapeTrending(ctx context.Context) ([]domain.RawArticleRecord, error) {
	records, err := h.scrapeListing(ctx, h.listingURL(hatenaHotEntry))
	if err != nil && h.feed != nil {
		if h.logger != nil {
			h.logger.Warn("hatena html scrape failed, falling back to feed", "error", err)
		}
		return h.feed.Collect(ctx)
	}
	return records, err
}

// ScrapePopularEntries fetches the popular entry list; same record shape
// as ScrapeTrending.
func (h *Hatena) ScrapePopularEntries(ctx context.Context) ([]domain.RawArticleRecord, error) {
	return h.scrapeListing(ctx, h.listingURL(hatenaEntryList))
}

// listingURL rebases a production listing path onto the configured base,
// which keeps the adapter testable against a local server.
func (h *Hatena) listingURL(productionURL string) string {
	if h.baseURL == hatenaBaseURL {
		return productionURL
	}
	parsed, err := url.Parse(productionURL)
	if err != nil {
		return productionURL
	}
	return h.baseURL + parsed.Path
}

func (h *Hatena) scrapeListing(ctx context.Context, listingURL string) ([]domain.RawArticleRecord, error) {
	h.engine.Reset()

	doc, err := h.engine.Fetch(ctx, listingURL)
	if err != nil {
		return nil, fmt.Errorf("hatena listing %s: %w", listingURL, err)
	}

	base, err := url.Parse(h.baseURL)
	if err != nil {
		return nil, fmt.Errorf("hatena base url: %w", err)
	}

	scrapedAt := h.now().UTC()
	var records []domain.RawArticleRecord

	itemSelection(doc, hatenaItemSelectors).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if len(records) >= h.maxItems {
			return false
		}

		record, ok := h.parseItem(sel, base, scrapedAt)
		if !ok {
			if h.logger != nil {
				h.logger.Warn("dropping malformed hatena item", "index", i)
			}
			return true
		}

		records = append(records, record)
		return true
	})

	return records, nil
}

func (h *Hatena) parseItem(sel *goquery.Selection, base *url.URL, scrapedAt time.Time) (domain.RawArticleRecord, bool) {
	title := scrape.TextBySelectors(sel, hatenaTitleSelectors)
	link := scrape.LinkBySelectors(sel, hatenaLinkSelectors, base)
	if title == "" || link == "" {
		return domain.RawArticleRecord{}, false
	}

	record := domain.RawArticleRecord{
		Title:      title,
		URL:        link,
		Domain:     hostOf(link),
		Engagement: scrape.NumberBySelectors(sel, hatenaBookmarkSelectors),
		AuthorName: CleanAuthorName(scrape.TextBySelectors(sel, hatenaAuthorSelectors)),
		AuthorURL:  scrape.LinkBySelectors(sel, hatenaAuthorSelectors, base),
		ScrapedAt:  scrapedAt,
		Platform:   domain.PlatformHatena,
	}

	dateText := scrape.TextBySelectors(sel, hatenaDateSelectors)
	if ts, err := time.Parse(hatenaDateLayout, dateText); err == nil {
		utc := ts.UTC()
		record.PublishedAt = &utc
	} else {
		record.PublishedAt = ParseRelativeTime(dateText, scrapedAt)
	}

	return record, true
}
