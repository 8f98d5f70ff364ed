package clip

import (
	"encoding/json"
	"testing"
	"time"
)

var clipColumnNames = []string{"id", "category_id", "status", "service_date", "saved_count", "created_at", "doc"}

var baseTime = time.Date(2025, 3, 1, 10, 0, 0, 123_000_000, time.UTC)

func strPtr(s string) *string { return &s }

type testClip struct {
	id          string
	categoryID  string
	status      string
	serviceDate string
	savedCount  int64
	createdAt   time.Time
	doc         map[string]any
}

func (c testClip) row(t *testing.T) []any {
	t.Helper()
	doc, err := json.Marshal(c.doc)
	if err != nil {
		t.Fatal(err)
	}
	var category, serviceDate *string
	if c.categoryID != "" {
		category = strPtr(c.categoryID)
	}
	if c.serviceDate != "" {
		serviceDate = strPtr(c.serviceDate)
	}
	status := c.status
	if status == "" {
		status = "live"
	}
	return []any{c.id, category, status, serviceDate, c.savedCount, c.createdAt, doc}
}
