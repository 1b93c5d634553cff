package domain

// Company is a long-lived reference entity maintained outside the ingestion
// core. Matching attributes (patterns, usernames, keywords) drive the
// company matcher; only active companies participate in scoring and ranking.
type Company struct {
	ID                int64
	Name              string
	Domain            string
	DomainPatterns    []string
	URLPatterns       []string
	Keywords          []string
	QiitaUsername     string
	ZennUsername      string
	ZennOrganizations []string
	IsActive          bool
}
