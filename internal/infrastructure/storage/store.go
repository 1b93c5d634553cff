package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"InfluenceRanker/internal/domain"
	"InfluenceRanker/internal/ports"
)

// Store is the SQLite-backed implementation of every repository port.
// All timestamps are written in UTC.
type Store struct {
	db *sqlx.DB
}

var (
	_ ports.ArticleRepository = (*Store)(nil)
	_ ports.CompanyRepository = (*Store)(nil)
	_ ports.ScoreRepository   = (*Store)(nil)
	_ ports.RankingRepository = (*Store)(nil)
	_ ports.HistoryRepository = (*Store)(nil)
)

// Open opens (creating if needed) the SQLite database at path and applies
// the schema. Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	// modernc sqlite serializes writes itself; a single connection avoids
	// SQLITE_BUSY on concurrent transactions.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert inserts an article or, when the URL is already known, refreshes
// its engagement counters and metadata. An existing published_at or
// company attribution is never cleared by a scrape that lacks one.
func (s *Store) Upsert(ctx context.Context, a *domain.Article) error {
	query, args, err := sq.Insert("articles").
		Columns("url", "title", "domain", "platform", "author_name", "author_url",
			"published_at", "bookmark_count", "likes_count", "scraped_at", "company_id").
		Values(a.URL, a.Title, a.Domain, a.Platform, a.AuthorName, a.AuthorURL,
			utcPtr(a.PublishedAt), a.BookmarkCount, a.LikesCount, a.ScrapedAt.UTC(), a.CompanyID).
		Suffix(`ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			domain = excluded.domain,
			author_name = excluded.author_name,
			author_url = excluded.author_url,
			published_at = COALESCE(excluded.published_at, articles.published_at),
			bookmark_count = excluded.bookmark_count,
			likes_count = excluded.likes_count,
			scraped_at = excluded.scraped_at,
			company_id = COALESCE(excluded.company_id, articles.company_id)`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build article upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert article %s: %w", a.URL, err)
	}
	return s.db.GetContext(ctx, &a.ID, `SELECT id FROM articles WHERE url = ?`, a.URL)
}

// ListForCompanyInWindow returns non-deleted company articles inside the
// window. Articles without a publish date fall back to their scrape time.
func (s *Store) ListForCompanyInWindow(ctx context.Context, companyID int64, start, end time.Time) ([]domain.Article, error) {
	query, args, err := sq.Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"company_id": companyID}).
		Where("deleted_at IS NULL").
		Where("COALESCE(published_at, scraped_at) >= ?", start.UTC()).
		Where("COALESCE(published_at, scraped_at) <= ?", end.UTC()).
		OrderBy("COALESCE(published_at, scraped_at) DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build window query: %w", err)
	}

	var rows []domain.Article
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select articles for company %d: %w", companyID, err)
	}
	return rows, nil
}

// ListUnmatched returns non-deleted articles with no company attribution,
// oldest first. limit <= 0 means no limit.
func (s *Store) ListUnmatched(ctx context.Context, limit int) ([]domain.Article, error) {
	builder := sq.Select(articleColumns...).
		From("articles").
		Where("company_id IS NULL").
		Where("deleted_at IS NULL").
		OrderBy("id")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build unmatched query: %w", err)
	}

	var rows []domain.Article
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select unmatched articles: %w", err)
	}
	return rows, nil
}

func (s *Store) AssignCompany(ctx context.Context, articleID, companyID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE articles SET company_id = ? WHERE id = ?`, companyID, articleID)
	if err != nil {
		return fmt.Errorf("assign company to article %d: %w", articleID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("article %d not found", articleID)
	}
	return nil
}

// SoftDeleteArticle excludes an article from scoring without losing the
// row. Upserting the same URL later does not resurrect it.
func (s *Store) SoftDeleteArticle(ctx context.Context, articleID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE articles SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), articleID)
	if err != nil {
		return fmt.Errorf("soft delete article %d: %w", articleID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("article %d not found or already deleted", articleID)
	}
	return nil
}

// Append stores one influence-score snapshot. Snapshots are never updated.
func (s *Store) Append(ctx context.Context, score *domain.InfluenceScore) error {
	query, args, err := sq.Insert("company_influence_scores").
		Columns("company_id", "period_type", "period_start", "period_end",
			"total_score", "article_count", "total_bookmarks", "calculated_at").
		Values(score.CompanyID, score.PeriodType, score.PeriodStart.UTC(), score.PeriodEnd.UTC(),
			score.TotalScore, score.ArticleCount, score.TotalBookmarks, score.CalculatedAt.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build score insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append score for company %d: %w", score.CompanyID, err)
	}
	return nil
}

// LatestScores returns the newest score snapshot per company for a period,
// highest score first.
func (s *Store) LatestScores(ctx context.Context, periodType domain.PeriodType, limit int) ([]domain.InfluenceScore, error) {
	builder := sq.Select("s.id", "s.company_id", "s.period_type", "s.period_start",
		"s.period_end", "s.total_score", "s.article_count", "s.total_bookmarks", "s.calculated_at").
		From("company_influence_scores s").
		Where(sq.Eq{"s.period_type": periodType}).
		Where(`s.id = (
			SELECT id FROM company_influence_scores
			WHERE company_id = s.company_id AND period_type = s.period_type
			ORDER BY calculated_at DESC, id DESC LIMIT 1
		)`).
		OrderBy("s.total_score DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build latest scores query: %w", err)
	}

	var rows []domain.InfluenceScore
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select latest scores: %w", err)
	}
	return rows, nil
}

var articleColumns = []string{
	"id", "url", "title", "domain", "platform", "author_name", "author_url",
	"published_at", "bookmark_count", "likes_count", "scraped_at", "company_id", "deleted_at",
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
