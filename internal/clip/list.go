package clip

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/NanaAbabioh/testimony-app-backend/internal/cursor"
	"github.com/NanaAbabioh/testimony-app-backend/internal/database"
)

// DefaultCategoryFetchCap bounds how many rows a category listing reads so
// the whole category can be ordered in memory.
const DefaultCategoryFetchCap = 1000

var digitRun = regexp.MustCompile(`\d+`)

type QueryEcho struct {
	CategoryID string `json:"categoryId,omitempty"`
	Month      string `json:"month,omitempty"`
	Episode    string `json:"episode,omitempty"`
	Sort       Sort   `json:"sort"`
	Limit      int    `json:"limit"`
	HasCursor  bool   `json:"hasCursor"`
}

type Meta struct {
	Count       int       `json:"count"`
	HasMore     bool      `json:"hasMore"`
	QueryTimeMs int64     `json:"queryTimeMs"`
	Query       QueryEcho `json:"query"`
}

type Page struct {
	Items      []Summary `json:"items"`
	NextCursor string    `json:"nextCursor,omitempty"`
	Meta       Meta      `json:"meta"`
}

type Lister struct {
	db        database.DBTX
	overrides *Overrides
	fetchCap  int
	now       func() time.Time
}

func NewLister(db database.DBTX, overrides *Overrides, fetchCap int) *Lister {
	if fetchCap < 1 {
		fetchCap = DefaultCategoryFetchCap
	}
	return &Lister{db: db, overrides: overrides, fetchCap: fetchCap, now: time.Now}
}

// Run executes one listing request. It only reads from storage.
func (l *Lister) Run(ctx context.Context, q Query) (Page, error) {
	start := l.now()

	var (
		records []Record
		err     error
	)
	if q.CategoryScoped() {
		records, err = listCategory(ctx, l.db, q.CategoryID, l.fetchCap)
	} else {
		records, err = listPage(ctx, l.db, q.Sort, q.Limit, q.Cursor)
	}
	if err != nil {
		return Page{}, err
	}

	l.ensureOverrides(ctx)

	items := make([]Summary, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		if seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true

		s := rec.Summary()
		if l.overrides != nil {
			l.overrides.Apply(&s)
		}
		if q.Month != nil && !q.Month.Contains(s.ServiceDate) {
			continue
		}
		if q.Episode != "" && !EpisodeMatches(s.Episode, q.Episode) {
			continue
		}
		items = append(items, s)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return EpisodeNumber(items[i].Episode) > EpisodeNumber(items[j].Episode)
	})

	page := Page{}
	if q.CategoryScoped() {
		page.Items = items
	} else {
		if len(items) > q.Limit {
			items = items[:q.Limit]
		}
		page.Items = items
		if len(items) == q.Limit && len(records) > 0 {
			next, err := cursor.Encode(cursorFor(q.Sort, records[len(records)-1]))
			if err != nil {
				return Page{}, fmt.Errorf("encode next cursor: %w", err)
			}
			page.NextCursor = next
		}
	}

	page.Meta = Meta{
		Count:       len(page.Items),
		HasMore:     page.NextCursor != "",
		QueryTimeMs: l.now().Sub(start).Milliseconds(),
		Query:       echo(q),
	}
	return page, nil
}

// ensureOverrides retries a missed startup load; listings still succeed
// without overrides.
func (l *Lister) ensureOverrides(ctx context.Context) {
	if l.overrides == nil || l.overrides.Loaded() {
		return
	}
	if err := l.overrides.Load(ctx); err != nil {
		slog.Warn("clip: overrides unavailable, listing without them", "error", err)
	}
}

func cursorFor(s Sort, last Record) cursor.Cursor {
	ms := last.CreatedAt.UnixMilli()
	if s == SortMostSaved {
		return cursor.MostSaved(last.SavedCount, ms)
	}
	return cursor.Recent(last.ServiceDate, ms)
}

func echo(q Query) QueryEcho {
	e := QueryEcho{
		CategoryID: q.CategoryID,
		Episode:    q.Episode,
		Sort:       q.Sort,
		Limit:      q.Limit,
		HasCursor:  q.Cursor != nil,
	}
	if q.Month != nil {
		e.Month = q.Month.Month
	}
	return e
}

// EpisodeNumber is the first run of digits in label, or 0 when there is none.
func EpisodeNumber(label string) int {
	run := digitRun.FindString(label)
	if run == "" {
		return 0
	}
	n, err := strconv.Atoi(run)
	if err != nil {
		return 0
	}
	return n
}

// EpisodeMatches compares episode numbers numerically, so "7" matches
// "EP007".
func EpisodeMatches(label, want string) bool {
	if digitRun.FindString(label) == "" {
		return false
	}
	return EpisodeNumber(label) == EpisodeNumber(want)
}
