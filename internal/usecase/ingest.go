package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"InfluenceRanker/internal/domain"
	"InfluenceRanker/internal/matcher"
	"InfluenceRanker/internal/ports"
)

// IngestSummary reports what one normalization pass did with the raw
// records handed to it.
type IngestSummary struct {
	Scraped int
	Saved   int
	Matched int
	Dropped int
	DryRun  bool
}

// Normalizer turns raw platform records into persisted articles. Each
// record is validated, attributed to a company where the matcher finds
// one, and upserted by URL so repeated scrapes refresh engagement
// counters instead of duplicating rows.
type Normalizer struct {
	articles ports.ArticleRepository
	matcher  *matcher.Matcher
	logger   *slog.Logger
	now      func() time.Time
}

func NewNormalizer(articles ports.ArticleRepository, m *matcher.Matcher, logger *slog.Logger) *Normalizer {
	return &Normalizer{
		articles: articles,
		matcher:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// NormalizeAndSave validates, matches and upserts the given records.
// Malformed records (missing URL or title) are dropped with a warning,
// never failing the batch. With dryRun set, matching still runs but
// nothing is written.
func (n *Normalizer) NormalizeAndSave(ctx context.Context, records []domain.RawArticleRecord, dryRun bool) (*IngestSummary, error) {
	summary := &IngestSummary{Scraped: len(records), DryRun: dryRun}

	for _, rec := range records {
		if rec.URL == "" || rec.Title == "" {
			summary.Dropped++
			if n.logger != nil {
				n.logger.Warn("dropping malformed record", "platform", rec.Platform, "url", rec.URL)
			}
			continue
		}

		article, err := n.normalize(ctx, rec)
		if err != nil {
			return summary, err
		}
		if article.CompanyID != nil {
			summary.Matched++
		}

		if dryRun {
			summary.Saved++
			continue
		}
		if err := n.articles.Upsert(ctx, article); err != nil {
			return summary, fmt.Errorf("upsert article %s: %w", article.URL, err)
		}
		summary.Saved++
	}

	return summary, nil
}

func (n *Normalizer) normalize(ctx context.Context, rec domain.RawArticleRecord) (*domain.Article, error) {
	article := &domain.Article{
		URL:         rec.URL,
		Title:       rec.Title,
		Domain:      rec.Domain,
		Platform:    rec.Platform,
		AuthorName:  rec.AuthorName,
		AuthorURL:   rec.AuthorURL,
		PublishedAt: rec.PublishedAt,
		ScrapedAt:   rec.ScrapedAt,
	}
	if article.ScrapedAt.IsZero() {
		article.ScrapedAt = n.now().UTC()
	}
	if rec.Platform == domain.PlatformHatena {
		article.BookmarkCount = rec.Engagement
	} else {
		article.LikesCount = rec.Engagement
	}

	company, err := n.matcher.Identify(ctx, matcher.Fields{
		URL:        rec.URL,
		Domain:     rec.Domain,
		Title:      rec.Title,
		AuthorName: rec.AuthorName,
		Platform:   rec.Platform,
	})
	if err != nil {
		return nil, fmt.Errorf("match article %s: %w", rec.URL, err)
	}
	if company != nil {
		id := company.ID
		article.CompanyID = &id
	}
	return article, nil
}

// RematchArticles re-runs company matching over stored articles that
// have no company yet. Useful after company reference data changes.
// Returns how many articles gained an attribution.
func (n *Normalizer) RematchArticles(ctx context.Context, limit int) (int, error) {
	articles, err := n.articles.ListUnmatched(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list unmatched: %w", err)
	}

	var assigned int
	for _, a := range articles {
		company, err := n.matcher.Identify(ctx, matcher.Fields{
			URL:        a.URL,
			Domain:     a.Domain,
			Title:      a.Title,
			AuthorName: a.AuthorName,
			Platform:   a.Platform,
		})
		if err != nil {
			return assigned, fmt.Errorf("rematch article %d: %w", a.ID, err)
		}
		if company == nil {
			continue
		}
		if err := n.articles.AssignCompany(ctx, a.ID, company.ID); err != nil {
			return assigned, fmt.Errorf("assign company to article %d: %w", a.ID, err)
		}
		assigned++
	}

	if n.logger != nil {
		n.logger.Info("rematch finished", "checked", len(articles), "assigned", assigned)
	}
	return assigned, nil
}
