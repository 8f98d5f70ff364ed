package clip

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NanaAbabioh/testimony-app-backend/internal/cursor"
	"github.com/NanaAbabioh/testimony-app-backend/internal/database"
)

const clipColumns = `id, category_id, status, service_date, saved_count, created_at, doc`

const (
	orderRecent    = `ORDER BY COALESCE(service_date, '') DESC, created_at DESC`
	orderMostSaved = `ORDER BY saved_count DESC, created_at DESC`
)

func scanRecords(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			id          string
			categoryID  *string
			status      string
			serviceDate *string
			savedCount  int64
			createdAt   time.Time
			doc         []byte
		)
		if err := rows.Scan(&id, &categoryID, &status, &serviceDate, &savedCount, &createdAt, &doc); err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		rec, err := recordFromRow(id, categoryID, status, serviceDate, savedCount, createdAt, doc)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clips: %w", err)
	}
	return records, nil
}

// listPage reads one keyset page in storage order. The cursor, when present,
// is the position of the last row of the previous page.
func listPage(ctx context.Context, db database.DBTX, sort Sort, limit int, cur *cursor.Cursor) ([]Record, error) {
	var (
		sql  string
		args []any
	)
	switch {
	case sort == SortMostSaved && cur != nil:
		sql = `SELECT ` + clipColumns + ` FROM clips
		 WHERE (saved_count, created_at) < ($1, $2)
		 ` + orderMostSaved + ` LIMIT $3`
		args = []any{cur.SavedCount, time.UnixMilli(cur.CreatedAtMs).UTC(), limit}
	case sort == SortMostSaved:
		sql = `SELECT ` + clipColumns + ` FROM clips ` + orderMostSaved + ` LIMIT $1`
		args = []any{limit}
	case cur != nil:
		sql = `SELECT ` + clipColumns + ` FROM clips
		 WHERE (COALESCE(service_date, ''), created_at) < ($1, $2)
		 ` + orderRecent + ` LIMIT $3`
		args = []any{cur.ServiceDate, time.UnixMilli(cur.CreatedAtMs).UTC(), limit}
	default:
		sql = `SELECT ` + clipColumns + ` FROM clips ` + orderRecent + ` LIMIT $1`
		args = []any{limit}
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query clips: %w", err)
	}
	return scanRecords(rows)
}

func listCategory(ctx context.Context, db database.DBTX, categoryID string, fetchCap int) ([]Record, error) {
	rows, err := db.Query(ctx,
		`SELECT `+clipColumns+` FROM clips
		 WHERE category_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		categoryID, fetchCap,
	)
	if err != nil {
		return nil, fmt.Errorf("query category %s: %w", categoryID, err)
	}
	return scanRecords(rows)
}

func listAll(ctx context.Context, db database.DBTX) ([]Record, error) {
	rows, err := db.Query(ctx, `SELECT `+clipColumns+` FROM clips ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query all clips: %w", err)
	}
	return scanRecords(rows)
}

func getRecord(ctx context.Context, db database.DBTX, id string) (Record, error) {
	var (
		categoryID  *string
		status      string
		serviceDate *string
		savedCount  int64
		createdAt   time.Time
		doc         []byte
	)
	err := db.QueryRow(ctx,
		`SELECT category_id, status, service_date, saved_count, created_at, doc FROM clips WHERE id = $1`,
		id,
	).Scan(&categoryID, &status, &serviceDate, &savedCount, &createdAt, &doc)
	if err != nil {
		return Record{}, fmt.Errorf("get clip %s: %w", id, err)
	}
	return recordFromRow(id, categoryID, status, serviceDate, savedCount, createdAt, doc)
}

// insertRecord stores rec and fills in its id and creation time. Pending
// work flags queue the clip for the processing and title workers.
func insertRecord(ctx context.Context, db database.DBTX, rec *Record, needsProcessing, needsTitle bool) error {
	doc, err := rec.Document()
	if err != nil {
		return fmt.Errorf("encode clip document: %w", err)
	}
	processing, title := "none", "none"
	if needsProcessing {
		processing = "pending"
	}
	if needsTitle {
		title = "pending"
	}
	err = db.QueryRow(ctx,
		`INSERT INTO clips (category_id, status, service_date, processing_status, title_status, doc)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		nullable(rec.CategoryID), string(rec.Status), nullable(rec.ServiceDate), processing, title, doc,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert clip: %w", err)
	}
	return nil
}

func incrementSaved(ctx context.Context, db database.DBTX, id string) (int64, error) {
	var count int64
	err := db.QueryRow(ctx,
		`UPDATE clips SET saved_count = saved_count + 1, updated_at = now()
		 WHERE id = $1
		 RETURNING saved_count`,
		id,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment saved count for %s: %w", id, err)
	}
	return count, nil
}

func updateStatus(ctx context.Context, db database.DBTX, id string, status Status) error {
	tag, err := db.Exec(ctx,
		`UPDATE clips SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("update status for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update status for %s: %w", id, pgx.ErrNoRows)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
