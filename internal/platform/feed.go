package platform

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/mmcdole/gofeed"

	"InfluenceRanker/internal/domain"
)

// HatenaFeed collects popular entries from the Hatena Bookmark RSS feed.
// It reads the hatena:bookmarkcount extension for engagement and serves
// as a markup-independent fallback for the HTML adapter.
type HatenaFeed struct {
	parser   *gofeed.Parser
	feedURL  string
	logger   *slog.Logger
	maxItems int
	now      func() time.Time
}

// NewHatenaFeed builds a feed collector; maxItems defaults to 16.
func NewHatenaFeed(feedURL string, logger *slog.Logger, maxItems int) *HatenaFeed {
	if maxItems <= 0 {
		maxItems = 16
	}
	return &HatenaFeed{
		parser:   gofeed.NewParser(),
		feedURL:  feedURL,
		logger:   logger,
		maxItems: maxItems,
		now:      time.Now,
	}
}

// Collect parses the feed and returns normalized records.
func (f *HatenaFeed) Collect(ctx context.Context) ([]domain.RawArticleRecord, error) {
	feed, err := f.parser.ParseURLWithContext(f.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse hatena feed %s: %w", f.feedURL, err)
	}

	scrapedAt := f.now().UTC()
	var records []domain.RawArticleRecord

	for _, item := range feed.Items {
		if len(records) >= f.maxItems {
			break
		}
		if item.Title == "" || item.Link == "" {
			if f.logger != nil {
				f.logger.Warn("dropping malformed feed item", "title", item.Title)
			}
			continue
		}

		record := domain.RawArticleRecord{
			Title:      item.Title,
			URL:        item.Link,
			Domain:     hostOf(item.Link),
			Engagement: bookmarkCount(item),
			ScrapedAt:  scrapedAt,
			Platform:   domain.PlatformHatena,
		}
		if item.Author != nil {
			record.AuthorName = CleanAuthorName(item.Author.Name)
		}
		if item.PublishedParsed != nil {
			utc := item.PublishedParsed.UTC()
			record.PublishedAt = &utc
		}

		records = append(records, record)
	}

	return records, nil
}

func bookmarkCount(item *gofeed.Item) int {
	exts, ok := item.Extensions["hatena"]
	if !ok {
		return 0
	}
	for _, ext := range exts["bookmarkcount"] {
		if n, err := strconv.Atoi(ext.Value); err == nil {
			return n
		}
	}
	return 0
}
