package platform

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var companyMarkers = []string{"株式会社", "有限会社", "合同会社", "(株)", "（株）"}

// CleanAuthorName normalizes an author handle scraped from a listing page.
// Some platforms concatenate the handle, a company name and a relative-time
// token into a single text node ("haruotsuinGMOペパボ株式会社3日前 172");
// this is a best-effort heuristic for that markup quirk:
//   - strip leading "@" and "/" and surrounding whitespace
//   - cut everything from the first relative-time token onward
//   - cut a trailing company marker and what follows it
//   - when the handle starts with ASCII, cut at the first non-ASCII rune
//     (handles on these platforms are ASCII; the company name is not)
func CleanAuthorName(raw string) string {
	name := strings.TrimSpace(raw)
	name = strings.TrimLeft(name, "@/")

	if loc := relTimeExpr.FindStringIndex(name); loc != nil {
		name = name[:loc[0]]
	}

	for _, marker := range companyMarkers {
		if idx := strings.Index(name, marker); idx >= 0 {
			name = name[:idx]
		}
	}

	if name != "" && name[0] < utf8.RuneSelf {
		for i, r := range name {
			if r > unicode.MaxASCII {
				name = name[:i]
				break
			}
		}
	}

	return strings.TrimSpace(name)
}
