package domain

import (
	"fmt"
	"time"
)

// PeriodType names a ranking window with a fixed day-count
// (or a fixed epoch for the all-time period).
type PeriodType string

const (
	Period1Week   PeriodType = "1w"
	Period1Month  PeriodType = "1m"
	Period3Months PeriodType = "3m"
	Period6Months PeriodType = "6m"
	Period1Year   PeriodType = "1y"
	Period3Years  PeriodType = "3y"
	PeriodAll     PeriodType = "all"
)

// ParsePeriodType validates a period tag from user input.
func ParsePeriodType(s string) (PeriodType, error) {
	for _, pt := range AllPeriodTypes() {
		if string(pt) == s {
			return pt, nil
		}
	}
	return "", fmt.Errorf("unknown period type %q", s)
}

// AllPeriodTypes returns every recomputable ranking period.
func AllPeriodTypes() []PeriodType {
	return []PeriodType{
		Period1Week,
		Period1Month,
		Period3Months,
		Period6Months,
		Period1Year,
		Period3Years,
		PeriodAll,
	}
}

// InfluenceScore is an append-only snapshot of a company's computed score
// for a period. Multiple snapshots per (company, period, bounds) coexist;
// "latest" is always a query-time max(calculated_at).
type InfluenceScore struct {
	ID             int64      `db:"id"`
	CompanyID      int64      `db:"company_id"`
	PeriodType     PeriodType `db:"period_type"`
	PeriodStart    time.Time  `db:"period_start"`
	PeriodEnd      time.Time  `db:"period_end"`
	TotalScore     float64    `db:"total_score"`
	ArticleCount   int        `db:"article_count"`
	TotalBookmarks int        `db:"total_bookmarks"`
	CalculatedAt   time.Time  `db:"calculated_at"`
}

// Ranking is one row of the current ranking set for a period. The whole set
// for a (period, bounds) combination is replaced on each recomputation.
// RankPosition is a dense rank: tied scores share a position and the next
// distinct score sits exactly one position lower.
type Ranking struct {
	ID             int64      `db:"id"`
	CompanyID      int64      `db:"company_id"`
	PeriodType     PeriodType `db:"period_type"`
	PeriodStart    time.Time  `db:"period_start"`
	PeriodEnd      time.Time  `db:"period_end"`
	RankPosition   int        `db:"rank_position"`
	TotalScore     float64    `db:"total_score"`
	ArticleCount   int        `db:"article_count"`
	TotalBookmarks int        `db:"total_bookmarks"`
	CalculatedAt   time.Time  `db:"calculated_at"`
}

// RankingHistory is one append-only rank-delta record. RankChange is
// previous minus current, so positive means the company climbed.
type RankingHistory struct {
	ID           int64      `db:"id"`
	CompanyID    int64      `db:"company_id"`
	PeriodType   PeriodType `db:"period_type"`
	CurrentRank  int        `db:"current_rank"`
	PreviousRank int        `db:"previous_rank"`
	RankChange   int        `db:"rank_change"`
	CalculatedAt time.Time  `db:"calculated_at"`
}

// RankingMove is a history row joined with company display fields,
// used for riser/faller listings.
type RankingMove struct {
	CompanyID     int64      `db:"company_id"`
	CompanyName   string     `db:"company_name"`
	CompanyDomain string     `db:"company_domain"`
	PeriodType    PeriodType `db:"period_type"`
	CurrentRank   int        `db:"current_rank"`
	PreviousRank  int        `db:"previous_rank"`
	RankChange    int        `db:"rank_change"`
	CalculatedAt  time.Time  `db:"calculated_at"`
}

// RankingStatistics aggregates the current ranking set of one period.
type RankingStatistics struct {
	PeriodType     PeriodType `db:"period_type"`
	CompanyCount   int        `db:"company_count"`
	AverageScore   float64    `db:"average_score"`
	MaxScore       float64    `db:"max_score"`
	MinScore       float64    `db:"min_score"`
	TotalArticles  int        `db:"total_articles"`
	TotalBookmarks int        `db:"total_bookmarks"`
}

// ChangeStatistics aggregates rank deltas at the most recent history snapshot.
type ChangeStatistics struct {
	PeriodType    PeriodType
	Risers        int
	Fallers       int
	Unchanged     int
	AverageChange float64
	MaxRise       int
	MaxFall       int
}
