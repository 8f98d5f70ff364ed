package clip

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/NanaAbabioh/testimony-app-backend/internal/cursor"
	"github.com/NanaAbabioh/testimony-app-backend/internal/validate"
)

type Sort string

const (
	SortRecent    Sort = "recent"
	SortMostSaved Sort = "mostSaved"

	DefaultLimit = 20
	MinLimit     = 1
	MaxLimit     = 50

	minYear    = 2000
	maxYear    = 2100
	maxEpisode = 10000
)

var monthPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// InvalidQueryError names the listing parameter that was rejected.
type InvalidQueryError struct {
	Field   string
	Message string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// MonthRange is an inclusive range of ISO dates covering one calendar month.
type MonthRange struct {
	Month string
	Start string
	End   string
}

func (m MonthRange) Contains(date string) bool {
	return date != "" && date >= m.Start && date <= m.End
}

// Query is a validated listing request.
type Query struct {
	CategoryID string
	Month      *MonthRange
	Episode    string
	Sort       Sort
	Limit      int
	Cursor     *cursor.Cursor
}

func (q Query) CategoryScoped() bool {
	return q.CategoryID != ""
}

// Normalize validates raw listing parameters. Bad month, categoryId or
// episode values fail; bad sort, limit or cursor values fall back to
// defaults.
func Normalize(params url.Values, now time.Time) (Query, error) {
	q := Query{
		Sort:  normalizeSort(params.Get("sort")),
		Limit: normalizeLimit(params.Get("limit")),
	}

	if raw := strings.TrimSpace(params.Get("categoryId")); raw != "" {
		if msg := validate.CategoryID(raw); msg != "" {
			return Query{}, &InvalidQueryError{Field: "categoryId", Message: msg}
		}
		q.CategoryID = raw
	}

	month, err := combineMonth(strings.TrimSpace(params.Get("year")), strings.TrimSpace(params.Get("month")), now)
	if err != nil {
		return Query{}, err
	}
	if month != "" {
		r, err := ParseMonth(month)
		if err != nil {
			return Query{}, err
		}
		q.Month = &r
	}

	if raw := strings.TrimSpace(params.Get("episode")); raw != "" {
		n, ok := parseEpisodeParam(raw)
		if !ok {
			return Query{}, &InvalidQueryError{
				Field:   "episode",
				Message: fmt.Sprintf("episode must be a positive integer below %d", maxEpisode),
			}
		}
		q.Episode = strconv.Itoa(n)
	}

	if c := cursor.Decode(params.Get("cursor")); c != nil && c.Matches(string(q.Sort)) {
		q.Cursor = c
	}

	return q, nil
}

func normalizeSort(raw string) Sort {
	if Sort(raw) == SortMostSaved {
		return SortMostSaved
	}
	return SortRecent
}

func normalizeLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return DefaultLimit
	}
	return min(max(n, MinLimit), MaxLimit)
}

// combineMonth resolves the short forms year=2024&month=3 and month=3 into
// YYYY-MM. A full YYYY-MM month wins over a separate year.
func combineMonth(year, month string, now time.Time) (string, error) {
	if month == "" || monthPattern.MatchString(month) {
		return month, nil
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 || len(month) > 2 {
		return "", monthError()
	}
	y := now.Year()
	if year != "" {
		y, err = strconv.Atoi(year)
		if err != nil || len(year) != 4 {
			return "", &InvalidQueryError{Field: "year", Message: "year must be a four digit number"}
		}
	}
	return fmt.Sprintf("%04d-%02d", y, m), nil
}

func monthError() *InvalidQueryError {
	return &InvalidQueryError{
		Field:   "month",
		Message: fmt.Sprintf("month must be YYYY-MM with month 01-12 and year %d-%d", minYear, maxYear),
	}
}

// ParseMonth derives the literal first and last day of a YYYY-MM month.
func ParseMonth(month string) (MonthRange, error) {
	m := monthPattern.FindStringSubmatch(month)
	if m == nil {
		return MonthRange{}, monthError()
	}
	year, _ := strconv.Atoi(m[1])
	mon, _ := strconv.Atoi(m[2])
	if year < minYear || year > maxYear || mon < 1 || mon > 12 {
		return MonthRange{}, monthError()
	}
	first := time.Date(year, time.Month(mon), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return MonthRange{
		Month: month,
		Start: first.Format(time.DateOnly),
		End:   last.Format(time.DateOnly),
	}, nil
}

func parseEpisodeParam(raw string) (int, bool) {
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	if len(raw) > 5 {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n >= maxEpisode {
		return 0, false
	}
	return n, true
}
