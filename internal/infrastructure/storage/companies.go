package storage

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"InfluenceRanker/internal/domain"
)

// stringSlice persists a list of strings as one comma-separated TEXT
// column. Values containing commas are not expected in matching data.
type stringSlice []string

func (s stringSlice) Value() (driver.Value, error) {
	return strings.Join(s, ","), nil
}

func (s *stringSlice) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into stringSlice", src)
	}
	if raw == "" {
		*s = nil
		return nil
	}
	*s = strings.Split(raw, ",")
	return nil
}

type dbCompany struct {
	ID                int64       `db:"id"`
	Name              string      `db:"name"`
	Domain            string      `db:"domain"`
	DomainPatterns    stringSlice `db:"domain_patterns"`
	URLPatterns       stringSlice `db:"url_patterns"`
	Keywords          stringSlice `db:"keywords"`
	QiitaUsername     string      `db:"qiita_username"`
	ZennUsername      string      `db:"zenn_username"`
	ZennOrganizations stringSlice `db:"zenn_organizations"`
	IsActive          bool        `db:"is_active"`
}

func (c dbCompany) toDomain() domain.Company {
	return domain.Company{
		ID:                c.ID,
		Name:              c.Name,
		Domain:            c.Domain,
		DomainPatterns:    c.DomainPatterns,
		URLPatterns:       c.URLPatterns,
		Keywords:          c.Keywords,
		QiitaUsername:     c.QiitaUsername,
		ZennUsername:      c.ZennUsername,
		ZennOrganizations: c.ZennOrganizations,
		IsActive:          c.IsActive,
	}
}

// ListActive returns all companies participating in matching and ranking.
func (s *Store) ListActive(ctx context.Context) ([]domain.Company, error) {
	query, args, err := sq.Select(
		"id", "name", "domain", "domain_patterns", "url_patterns", "keywords",
		"qiita_username", "zenn_username", "zenn_organizations", "is_active",
	).
		From("companies").
		Where(sq.Eq{"is_active": true}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active companies query: %w", err)
	}

	var rows []dbCompany
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select active companies: %w", err)
	}

	companies := make([]domain.Company, 0, len(rows))
	for _, row := range rows {
		companies = append(companies, row.toDomain())
	}
	return companies, nil
}

// UpsertCompany inserts a company or refreshes the matching attributes of
// the company with the same name. The ID field is set on insert.
func (s *Store) UpsertCompany(ctx context.Context, c *domain.Company) error {
	query, args, err := sq.Insert("companies").
		Columns("name", "domain", "domain_patterns", "url_patterns", "keywords",
			"qiita_username", "zenn_username", "zenn_organizations", "is_active").
		Values(c.Name, c.Domain, stringSlice(c.DomainPatterns), stringSlice(c.URLPatterns),
			stringSlice(c.Keywords), c.QiitaUsername, c.ZennUsername,
			stringSlice(c.ZennOrganizations), c.IsActive).
		Suffix(`ON CONFLICT(name) DO UPDATE SET
			domain = excluded.domain,
			domain_patterns = excluded.domain_patterns,
			url_patterns = excluded.url_patterns,
			keywords = excluded.keywords,
			qiita_username = excluded.qiita_username,
			zenn_username = excluded.zenn_username,
			zenn_organizations = excluded.zenn_organizations,
			is_active = excluded.is_active`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build company upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert company %s: %w", c.Name, err)
	}
	return s.db.GetContext(ctx, &c.ID, `SELECT id FROM companies WHERE name = ?`, c.Name)
}
