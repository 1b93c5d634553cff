package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"InfluenceRanker/internal/domain"
	"InfluenceRanker/internal/ports"
)

const zennHost = "zenn.dev"

// Fields carries the article attributes the matcher inspects.
type Fields struct {
	URL        string
	Domain     string
	Title      string
	AuthorName string
	Platform   domain.Platform
}

func (f Fields) empty() bool {
	return f.URL == "" && f.Domain == "" && f.Title == "" && f.AuthorName == ""
}

// Matcher resolves an article to zero-or-one known company using ordered
// heuristics: URL patterns, then domain, then platform username, then
// strict whole-word keywords. First match wins; only active companies
// are considered.
type Matcher struct {
	companies ports.CompanyRepository
	logger    *slog.Logger
}

// New wires the company reference source.
func New(companies ports.CompanyRepository, logger *slog.Logger) *Matcher {
	return &Matcher{companies: companies, logger: logger}
}

// Identify returns the matching company or nil when nothing matches.
// An unmatched article is not an error: it is persisted without a
// company reference.
func (m *Matcher) Identify(ctx context.Context, fields Fields) (*domain.Company, error) {
	if fields.empty() {
		return nil, nil
	}

	companies, err := m.companies.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active companies: %w", err)
	}

	strategies := []struct {
		name  string
		match func(domain.Company, Fields) (bool, string)
	}{
		{"url_pattern", matchURLPattern},
		{"domain", matchDomain},
		{"username", matchUsername},
		{"keyword", matchKeyword},
	}

	for _, strategy := range strategies {
		for i := range companies {
			ok, matched := strategy.match(companies[i], fields)
			if !ok {
				continue
			}
			if m.logger != nil {
				m.logger.Info("company matched",
					"company", companies[i].Name,
					"strategy", strategy.name,
					"matched", matched,
					"url", fields.URL)
			}
			return &companies[i], nil
		}
	}

	return nil, nil
}

// matchURLPattern checks url_patterns substrings, plus the Zenn
// organization special case: zenn.dev/{org}/articles/... matches the
// company's zenn_organizations exactly.
func matchURLPattern(c domain.Company, f Fields) (bool, string) {
	if f.URL == "" {
		return false, ""
	}

	for _, pattern := range c.URLPatterns {
		if pattern != "" && strings.Contains(f.URL, pattern) {
			return true, pattern
		}
	}

	if org := zennOrganization(f.URL); org != "" {
		for _, candidate := range c.ZennOrganizations {
			if candidate == org {
				return true, "zenn.dev/" + org
			}
		}
	}

	return false, ""
}

// zennOrganization extracts {org} from zenn.dev/{org}/articles/... URLs.
func zennOrganization(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || !isZennHost(parsed.Host) {
		return ""
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) >= 2 && parts[1] == "articles" {
		return parts[0]
	}
	return ""
}

// isZennHost accepts zenn.dev and its subdomains, not lookalike hosts
// that merely end in the same characters.
func isZennHost(host string) bool {
	return host == zennHost || strings.HasSuffix(host, "."+zennHost)
}

func matchDomain(c domain.Company, f Fields) (bool, string) {
	if f.Domain == "" {
		return false, ""
	}
	if c.Domain != "" && f.Domain == c.Domain {
		return true, c.Domain
	}
	for _, pattern := range c.DomainPatterns {
		if pattern != "" && strings.Contains(f.Domain, pattern) {
			return true, pattern
		}
	}
	return false, ""
}

// matchUsername compares the author handle, both raw and with leading
// "@"/"/" stripped, against the platform-specific username field.
func matchUsername(c domain.Company, f Fields) (bool, string) {
	var username string
	switch f.Platform {
	case domain.PlatformQiita:
		username = c.QiitaUsername
	case domain.PlatformZenn:
		username = c.ZennUsername
	default:
		return false, ""
	}
	if username == "" || f.AuthorName == "" {
		return false, ""
	}

	raw := strings.TrimSpace(f.AuthorName)
	cleaned := strings.TrimSpace(strings.TrimLeft(raw, "@/"))
	if cleaned == username || raw == username {
		return true, username
	}
	return false, ""
}

// matchKeyword requires whole-word, case-insensitive matches against the
// title and author text: "test" matches "test について" but never "testing".
// Word boundaries are checked against Unicode letters and digits, not
// regexp's ASCII \b, so Japanese keywords match too.
func matchKeyword(c domain.Company, f Fields) (bool, string) {
	haystack := f.Title + " " + f.AuthorName
	if strings.TrimSpace(haystack) == "" {
		return false, ""
	}
	for _, keyword := range c.Keywords {
		if keyword == "" {
			continue
		}
		expr, err := regexp.Compile(
			`(?i)(?:^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(keyword) + `(?:[^\p{L}\p{N}_]|$)`)
		if err != nil {
			continue
		}
		if expr.MatchString(haystack) {
			return true, keyword
		}
	}
	return false, ""
}
