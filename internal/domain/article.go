package domain

import (
	"fmt"
	"time"
)

// Platform identifies the publishing site an article was scraped from.
type Platform string

const (
	PlatformQiita  Platform = "qiita"
	PlatformZenn   Platform = "zenn"
	PlatformHatena Platform = "hatena"
)

// ParsePlatform validates a platform tag from user input.
func ParsePlatform(s string) (Platform, error) {
	for _, p := range AllPlatforms() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// AllPlatforms returns every platform with a scraping adapter.
func AllPlatforms() []Platform {
	return []Platform{PlatformQiita, PlatformZenn, PlatformHatena}
}

// RawArticleRecord is the transient shape produced by platform adapters.
// It is never persisted directly; the ingestion normalizer turns it into
// an Article after company matching.
type RawArticleRecord struct {
	Title       string
	URL         string
	AuthorName  string
	AuthorURL   string
	Domain      string
	Engagement  int
	PublishedAt *time.Time
	ScrapedAt   time.Time
	Platform    Platform
}

// Article is the persisted article entity. Identity is the URL (unique);
// every scrape cycle upserts by URL. Engagement counters are
// platform-dependent: Hatena fills bookmarks, Qiita/Zenn fill likes.
type Article struct {
	ID            int64      `db:"id"`
	URL           string     `db:"url"`
	Title         string     `db:"title"`
	Domain        string     `db:"domain"`
	Platform      Platform   `db:"platform"`
	AuthorName    string     `db:"author_name"`
	AuthorURL     string     `db:"author_url"`
	PublishedAt   *time.Time `db:"published_at"`
	BookmarkCount int        `db:"bookmark_count"`
	LikesCount    int        `db:"likes_count"`
	ScrapedAt     time.Time  `db:"scraped_at"`
	CompanyID     *int64     `db:"company_id"`
	DeletedAt     *time.Time `db:"deleted_at"`
}

// Deleted reports whether the article has been soft-deleted. Soft-deleted
// articles stay in storage but never contribute to scores or rankings.
func (a Article) Deleted() bool {
	return a.DeletedAt != nil
}

// Engagement returns the platform-appropriate popularity counter.
func (a Article) Engagement() int {
	if a.Platform == PlatformHatena {
		return a.BookmarkCount
	}
	return a.LikesCount
}
