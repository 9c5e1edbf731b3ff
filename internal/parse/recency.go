package parse

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	minutesOrHoursAgo = regexp.MustCompile(`(\d+)\+?\s*(m|min|mins|minute|minutes|h|hr|hrs|hour|hours)\b`)
	daysAgo           = regexp.MustCompile(`(\d+)\+?\s*(d|day|days)\b`)
)

// IsRecent reports whether a relative posting date such as "3d ago" is within
// maxDays. Dates it cannot interpret are treated as recent.
func IsRecent(dateText string, maxDays int) bool {
	s := strings.ToLower(strings.TrimSpace(dateText))
	if s == "" {
		return true
	}

	switch {
	case strings.Contains(s, "just now"), strings.Contains(s, "today"):
		return true
	case strings.Contains(s, "yesterday"):
		return maxDays >= 1
	}

	if minutesOrHoursAgo.MatchString(s) {
		return true
	}
	if m := daysAgo.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return true
		}
		return n <= maxDays
	}

	return true
}
