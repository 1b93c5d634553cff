package scrape

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// maxTextLength bounds extracted text in runes, not bytes, so Japanese
// titles are measured the same as ASCII ones: anything longer is treated
// as a selector hitting the wrong node and discarded instead of
// truncated.
const maxTextLength = 500

var leadingDigitsExpr = regexp.MustCompile(`^[0-9][0-9,]*`)

// numberAttrs are attribute names tried before falling back to element text.
var numberAttrs = []string{"aria-label", "data-count", "data-bookmark-count", "data-likes-count"}

// Text returns the trimmed text of the first matched node, or empty when
// the node is missing or its text exceeds maxTextLength.
func Text(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	text := strings.TrimSpace(sel.First().Text())
	if utf8.RuneCountInString(text) > maxTextLength {
		return ""
	}
	return text
}

// TextBySelectors tries each selector in order against the root and returns
// the first non-empty text.
func TextBySelectors(root *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		if text := Text(root.Find(selector)); text != "" {
			return text
		}
	}
	return ""
}

// Link returns the href of the first matched node resolved against base.
// A nil base keeps relative links as-is.
func Link(sel *goquery.Selection, base *url.URL) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	href, ok := sel.First().Attr("href")
	if !ok {
		return ""
	}
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if base == nil {
		return href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(parsed).String()
}

// LinkBySelectors tries each selector in order and returns the first
// resolvable non-empty link.
func LinkBySelectors(root *goquery.Selection, selectors []string, base *url.URL) string {
	for _, selector := range selectors {
		if link := Link(root.Find(selector), base); link != "" {
			return link
		}
	}
	return ""
}

// Number extracts an engagement count from a node: a numeric-looking
// aria-label or data-* attribute wins, then the leading digits of the
// element text, defaulting to 0.
func Number(sel *goquery.Selection) int {
	n, _ := number(sel)
	return n
}

func number(sel *goquery.Selection) (int, bool) {
	if sel == nil || sel.Length() == 0 {
		return 0, false
	}
	node := sel.First()
	for _, name := range numberAttrs {
		if value, ok := node.Attr(name); ok {
			if n, ok := leadingNumber(value); ok {
				return n, true
			}
		}
	}
	return leadingNumber(node.Text())
}

// NumberBySelectors tries each selector in order and returns the first
// parseable count, defaulting to 0.
func NumberBySelectors(root *goquery.Selection, selectors []string) int {
	for _, selector := range selectors {
		if n, ok := number(root.Find(selector)); ok {
			return n
		}
	}
	return 0
}

// Attr returns a named attribute of the first matched node.
func Attr(sel *goquery.Selection, name string) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	value, _ := sel.First().Attr(name)
	return strings.TrimSpace(value)
}

// AttrBySelectors tries each selector in order and returns the first
// non-empty attribute value.
func AttrBySelectors(root *goquery.Selection, selectors []string, name string) string {
	for _, selector := range selectors {
		if value := Attr(root.Find(selector), name); value != "" {
			return value
		}
	}
	return ""
}

func leadingNumber(text string) (int, bool) {
	match := leadingDigitsExpr.FindString(strings.TrimSpace(text))
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}
