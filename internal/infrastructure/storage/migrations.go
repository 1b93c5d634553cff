package storage

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS companies (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	name               TEXT NOT NULL UNIQUE,
	domain             TEXT NOT NULL DEFAULT '',
	domain_patterns    TEXT NOT NULL DEFAULT '',
	url_patterns       TEXT NOT NULL DEFAULT '',
	keywords           TEXT NOT NULL DEFAULT '',
	qiita_username     TEXT NOT NULL DEFAULT '',
	zenn_username      TEXT NOT NULL DEFAULT '',
	zenn_organizations TEXT NOT NULL DEFAULT '',
	is_active          INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS articles (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	url            TEXT NOT NULL UNIQUE,
	title          TEXT NOT NULL,
	domain         TEXT NOT NULL DEFAULT '',
	platform       TEXT NOT NULL,
	author_name    TEXT NOT NULL DEFAULT '',
	author_url     TEXT NOT NULL DEFAULT '',
	published_at   DATETIME,
	bookmark_count INTEGER NOT NULL DEFAULT 0,
	likes_count    INTEGER NOT NULL DEFAULT 0,
	scraped_at     DATETIME NOT NULL,
	company_id     INTEGER REFERENCES companies(id),
	deleted_at     DATETIME
);

CREATE INDEX IF NOT EXISTS idx_articles_company_published
	ON articles(company_id, published_at);
CREATE INDEX IF NOT EXISTS idx_articles_platform
	ON articles(platform);

CREATE TABLE IF NOT EXISTS company_influence_scores (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	company_id      INTEGER NOT NULL REFERENCES companies(id),
	period_type     TEXT NOT NULL,
	period_start    DATETIME NOT NULL,
	period_end      DATETIME NOT NULL,
	total_score     REAL NOT NULL DEFAULT 0,
	article_count   INTEGER NOT NULL DEFAULT 0,
	total_bookmarks INTEGER NOT NULL DEFAULT 0,
	calculated_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scores_company_period
	ON company_influence_scores(company_id, period_type, calculated_at);

CREATE TABLE IF NOT EXISTS company_rankings (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	company_id      INTEGER NOT NULL REFERENCES companies(id),
	period_type     TEXT NOT NULL,
	period_start    DATETIME NOT NULL,
	period_end      DATETIME NOT NULL,
	rank_position   INTEGER NOT NULL,
	total_score     REAL NOT NULL DEFAULT 0,
	article_count   INTEGER NOT NULL DEFAULT 0,
	total_bookmarks INTEGER NOT NULL DEFAULT 0,
	calculated_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rankings_period_bounds
	ON company_rankings(period_type, period_start, period_end);
CREATE INDEX IF NOT EXISTS idx_rankings_period_calculated
	ON company_rankings(period_type, calculated_at);

CREATE TABLE IF NOT EXISTS company_ranking_history (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	company_id    INTEGER NOT NULL REFERENCES companies(id),
	period_type   TEXT NOT NULL,
	current_rank  INTEGER NOT NULL,
	previous_rank INTEGER NOT NULL,
	rank_change   INTEGER NOT NULL,
	calculated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_period_calculated
	ON company_ranking_history(period_type, calculated_at);
CREATE INDEX IF NOT EXISTS idx_history_company_period
	ON company_ranking_history(company_id, period_type);
`

func migrate(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
