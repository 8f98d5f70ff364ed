package clip

import (
	"context"
	"fmt"
	"sync"

	"github.com/NanaAbabioh/testimony-app-backend/internal/database"
)

// Override replaces the generated short title or summary of one clip.
// Empty fields leave the stored value in place.
type Override struct {
	TitleShort   string `json:"titleShort,omitempty"`
	SummaryShort string `json:"summaryShort,omitempty"`
}

// Overrides holds admin overrides in memory. It is created once per process
// and must be loaded before it affects listings.
type Overrides struct {
	db database.DBTX

	mu     sync.RWMutex
	items  map[string]Override
	loaded bool
}

func NewOverrides(db database.DBTX) *Overrides {
	return &Overrides{db: db, items: make(map[string]Override)}
}

// Load replaces the in-memory set with what is stored.
func (o *Overrides) Load(ctx context.Context) error {
	rows, err := o.db.Query(ctx,
		`SELECT clip_id, COALESCE(title_short, ''), COALESCE(summary_short, '') FROM clip_overrides`,
	)
	if err != nil {
		return fmt.Errorf("load overrides: %w", err)
	}
	defer rows.Close()

	items := make(map[string]Override)
	for rows.Next() {
		var id string
		var ov Override
		if err := rows.Scan(&id, &ov.TitleShort, &ov.SummaryShort); err != nil {
			return fmt.Errorf("scan override: %w", err)
		}
		items[id] = ov
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate overrides: %w", err)
	}

	o.mu.Lock()
	o.items = items
	o.loaded = true
	o.mu.Unlock()
	return nil
}

func (o *Overrides) Loaded() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.loaded
}

func (o *Overrides) Get(clipID string) (Override, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	ov, ok := o.items[clipID]
	return ov, ok
}

func (o *Overrides) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.items)
}

// Set writes the override through to storage, then updates memory.
func (o *Overrides) Set(ctx context.Context, clipID string, ov Override) error {
	_, err := o.db.Exec(ctx,
		`INSERT INTO clip_overrides (clip_id, title_short, summary_short, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (clip_id) DO UPDATE
		 SET title_short = EXCLUDED.title_short, summary_short = EXCLUDED.summary_short, updated_at = now()`,
		clipID, nullable(ov.TitleShort), nullable(ov.SummaryShort),
	)
	if err != nil {
		return fmt.Errorf("save override for %s: %w", clipID, err)
	}

	o.mu.Lock()
	o.items[clipID] = ov
	o.mu.Unlock()
	return nil
}

// Apply copies any override for s onto it.
func (o *Overrides) Apply(s *Summary) {
	ov, ok := o.Get(s.ID)
	if !ok {
		return
	}
	if ov.TitleShort != "" {
		s.TitleShort = ov.TitleShort
	}
	if ov.SummaryShort != "" {
		s.SummaryShort = ov.SummaryShort
	}
}
