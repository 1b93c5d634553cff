package platform

import (
	"regexp"
	"strconv"
	"time"
)

var relTimeExpr = regexp.MustCompile(`(\d+)\s*(分|時間|日|か月|ヶ月|年)前`)

// ParseRelativeTime converts a Japanese relative-time token ("2時間前",
// "30分前", "3日前") into an absolute timestamp anchored to now.
// Returns nil when the text carries no recognizable token.
func ParseRelativeTime(text string, now time.Time) *time.Time {
	match := relTimeExpr.FindStringSubmatch(text)
	if match == nil {
		return nil
	}

	n, err := strconv.Atoi(match[1])
	if err != nil {
		return nil
	}

	var d time.Duration
	switch match[2] {
	case "分":
		d = time.Duration(n) * time.Minute
	case "時間":
		d = time.Duration(n) * time.Hour
	case "日":
		d = time.Duration(n) * 24 * time.Hour
	case "か月", "ヶ月":
		d = time.Duration(n) * 30 * 24 * time.Hour
	case "年":
		d = time.Duration(n) * 365 * 24 * time.Hour
	}

	ts := now.Add(-d)
	return &ts
}
