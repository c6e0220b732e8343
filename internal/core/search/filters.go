package search

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/neilberkman/oralvis/internal/core/db"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var sessionIDPattern = regexp.MustCompile(`^[Ss][0-9]+$`)

// Filters represents parsed filters from a query string
type Filters struct {
	SessionID  string    // Exact identifier, when the query is one
	Name       string    // Substring of the patient name
	AfterDate  time.Time // Only sessions recorded at or after this time
	BeforeDate time.Time // Only sessions recorded before this time
	HasAfter   bool
	HasBefore  bool
	Limit      int
}

// IsSessionID reports whether s looks like a session identifier (S<number>)
func IsSessionID(s string) bool {
	return sessionIDPattern.MatchString(strings.TrimSpace(s))
}

// NormalizeSessionID upper-cases the prefix so "s7" finds "S7"
func NormalizeSessionID(s string) string {
	s = strings.TrimSpace(s)
	if IsSessionID(s) {
		return "S" + s[1:]
	}
	return s
}

// ParseQuery extracts filters from a query string.
// Supports:
//   - S12            - a session identifier
//   - name:<text>    - patient name contains text
//   - date:yesterday, date:2025-01-08 - recorded on or after
//   - after:last week, before:2025-02-01 - explicit ranges
//   - limit:<n>
//
// Remaining words are joined into a name filter.
func ParseQuery(query string, now time.Time) Filters {
	filters := Filters{}
	parser := newParser()

	tokens := strings.Fields(query)
	var nameParts []string

	for _, token := range tokens {
		switch {
		case strings.HasPrefix(token, "name:"):
			nameParts = append(nameParts, strings.TrimPrefix(token, "name:"))

		case strings.HasPrefix(token, "date:"), strings.HasPrefix(token, "after:"):
			value := token[strings.Index(token, ":")+1:]
			if parsed, ok := ParseDate(parser, value, now); ok {
				filters.AfterDate = parsed
				filters.HasAfter = true
			}

		case strings.HasPrefix(token, "before:"):
			if parsed, ok := ParseDate(parser, strings.TrimPrefix(token, "before:"), now); ok {
				filters.BeforeDate = parsed
				filters.HasBefore = true
			}

		case strings.HasPrefix(token, "limit:"):
			if n, err := strconv.Atoi(strings.TrimPrefix(token, "limit:")); err == nil && n > 0 {
				filters.Limit = n
			}

		case IsSessionID(token) && filters.SessionID == "":
			filters.SessionID = NormalizeSessionID(token)

		default:
			nameParts = append(nameParts, token)
		}
	}

	filters.Name = strings.TrimSpace(strings.Join(nameParts, " "))
	return filters
}

// SessionFilter converts the parsed filters into a record store filter
func (f Filters) SessionFilter() db.SessionFilter {
	sf := db.SessionFilter{NameContains: f.Name, Limit: f.Limit}
	if f.HasAfter {
		sf.After = f.AfterDate
	}
	if f.HasBefore {
		sf.Before = f.BeforeDate
	}
	return sf
}

func newParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseDate parses a fixed layout ("2025-01-08") or natural language
// ("yesterday", "last-week"; dashes stand in for spaces inside a token)
func ParseDate(w *when.Parser, dateStr string, now time.Time) (time.Time, bool) {
	formats := []string{
		"2006-01-02",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006/01/02",
		"01/02/2006",
	}
	for _, format := range formats {
		if t, err := time.ParseInLocation(format, dateStr, now.Location()); err == nil {
			return t, true
		}
	}

	if w == nil {
		w = newParser()
	}
	phrase := strings.ReplaceAll(dateStr, "-", " ")
	if result, err := w.Parse(phrase, now); err == nil && result != nil {
		return result.Time, true
	}

	return time.Time{}, false
}
