package video

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NanaAbabioh/testimony-app-backend/internal/clip"
	"github.com/NanaAbabioh/testimony-app-backend/internal/database"
	"github.com/NanaAbabioh/testimony-app-backend/internal/notify"
)

type TitleGenerator interface {
	GenerateTitle(ctx context.Context, title, transcript string) (*TitleSuggestion, error)
}

func processNextTitle(ctx context.Context, db database.DBTX, ai TitleGenerator, notifier notify.Notifier) {
	if _, err := db.Exec(ctx,
		`UPDATE clips SET title_status = 'pending', title_started_at = NULL, updated_at = now()
		 WHERE title_status = 'processing'
		   AND (title_started_at < now() - INTERVAL '10 minutes' OR title_started_at IS NULL)`,
	); err != nil {
		slog.Error("title-worker: failed to reset stuck jobs", "error", err)
	}

	var clipID string
	var raw []byte
	err := db.QueryRow(ctx,
		`UPDATE clips SET title_status = 'processing', title_started_at = now(), updated_at = now()
		 WHERE id = (
		     SELECT id FROM clips
		     WHERE title_status = 'pending'
		     ORDER BY updated_at ASC LIMIT 1
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, doc`,
	).Scan(&clipID, &raw)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			slog.Error("title-worker: failed to claim job", "error", err)
		}
		return
	}

	rec, err := clip.FromDocument(clipID, raw)
	if err != nil {
		slog.Error("title-worker: failed to read clip", "clip_id", clipID, "error", err)
		markTitleFailed(ctx, db, clipID)
		return
	}
	if rec.Transcript == "" {
		slog.Info("title-worker: skipping clip without transcript", "clip_id", clipID)
		markTitleFailed(ctx, db, clipID)
		return
	}

	result, err := ai.GenerateTitle(ctx, rec.Title, rec.Transcript)
	if err != nil {
		slog.Error("title-worker: AI generation failed", "clip_id", clipID, "error", err)
		markTitleFailed(ctx, db, clipID)
		return
	}

	patch, err := clip.TitlePatch(result.TitleShort, result.SummaryShort)
	if err != nil {
		markTitleFailed(ctx, db, clipID)
		return
	}
	if _, err := db.Exec(ctx,
		`UPDATE clips SET doc = doc || $1::jsonb, title_status = 'ready', title_started_at = NULL, updated_at = now()
		 WHERE id = $2`,
		patch, clipID,
	); err != nil {
		slog.Error("title-worker: failed to save title", "clip_id", clipID, "error", err)
		return
	}
	emit(ctx, notifier, notify.Event{
		Name:   notify.EventTitleGenerated,
		ClipID: clipID,
		Title:  result.TitleShort,
		Detail: result.SummaryShort,
	})
}

func markTitleFailed(ctx context.Context, db database.DBTX, clipID string) {
	if _, err := db.Exec(ctx,
		`UPDATE clips SET title_status = 'failed', title_started_at = NULL, updated_at = now()
		 WHERE id = $1`,
		clipID,
	); err != nil {
		slog.Error("title-worker: failed to mark clip as failed", "clip_id", clipID, "error", err)
	}
}

// StartTitleWorker is a no-op when ai is nil.
func StartTitleWorker(ctx context.Context, db database.DBTX, ai TitleGenerator, notifier notify.Notifier, interval time.Duration) {
	if ai == nil {
		return
	}
	go func() {
		slog.Info("title-worker: started")
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("title-worker: shutting down")
				return
			case <-ticker.C:
				processNextTitle(ctx, db, ai, notifier)
			}
		}
	}()
}
