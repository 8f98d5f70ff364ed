package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NanaAbabioh/testimony-app-backend/internal/clip"
	"github.com/NanaAbabioh/testimony-app-backend/internal/database"
	"github.com/NanaAbabioh/testimony-app-backend/internal/notify"
	"github.com/NanaAbabioh/testimony-app-backend/internal/storage"
)

// Media is the part of object storage the processing worker needs.
type Media interface {
	DownloadToFile(ctx context.Context, key string, destPath string) error
	UploadFile(ctx context.Context, key string, filePath string, contentType string) error
	DeleteObject(ctx context.Context, key string) error
}

// processNextClip claims one pending clip, trims it out of its source
// recording and moves it to review. It reports whether a clip was claimed.
func processNextClip(ctx context.Context, db database.DBTX, media Media, notifier notify.Notifier) bool {
	if _, err := db.Exec(ctx,
		`UPDATE clips SET processing_status = 'pending', processing_started_at = NULL, updated_at = now()
		 WHERE processing_status = 'processing'
		   AND (processing_started_at < now() - INTERVAL '30 minutes' OR processing_started_at IS NULL)`,
	); err != nil {
		slog.Error("process-worker: failed to reset stuck jobs", "error", err)
	}

	var clipID string
	var raw []byte
	err := db.QueryRow(ctx,
		`UPDATE clips SET processing_status = 'processing', processing_started_at = now(), updated_at = now()
		 WHERE id = (
		     SELECT id FROM clips
		     WHERE processing_status = 'pending'
		     ORDER BY updated_at ASC LIMIT 1
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, doc`,
	).Scan(&clipID, &raw)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			slog.Error("process-worker: failed to claim job", "error", err)
		}
		return false
	}

	rec, err := clip.FromDocument(clipID, raw)
	if err == nil {
		err = processClip(ctx, db, media, rec)
	}
	if err != nil {
		slog.Error("process-worker: clip failed", "clip_id", clipID, "error", err)
		markProcessingFailed(ctx, db, clipID)
		emit(ctx, notifier, notify.Event{Name: notify.EventClipFailed, ClipID: clipID, Title: rec.Title, Detail: err.Error()})
		return true
	}
	slog.Info("process-worker: clip ready for review", "clip_id", clipID)
	emit(ctx, notifier, notify.Event{Name: notify.EventClipReady, ClipID: clipID, Title: rec.Title})
	return true
}

func processClip(ctx context.Context, db database.DBTX, media Media, rec clip.Record) error {
	clipID := rec.ID
	if rec.VideoID == "" {
		return errors.New("clip has no source video")
	}

	var sourceKey string
	err := db.QueryRow(ctx,
		`SELECT source_key FROM videos WHERE youtube_id = $1 AND source_key IS NOT NULL`,
		rec.VideoID,
	).Scan(&sourceKey)
	if err != nil {
		return fmt.Errorf("look up source for %s: %w", rec.VideoID, err)
	}

	inputPath, cleanupInput, err := tempFile("testimony-source-*.mp4")
	if err != nil {
		return err
	}
	defer cleanupInput()

	if err := media.DownloadToFile(ctx, sourceKey, inputPath); err != nil {
		return fmt.Errorf("download source: %w", err)
	}

	outputPath, cleanupOutput, err := tempFile("testimony-clip-*.mp4")
	if err != nil {
		return err
	}
	defer cleanupOutput()

	if err := trimClip(ctx, inputPath, outputPath, rec.StartSeconds, rec.EndSeconds); err != nil {
		return err
	}

	key := storage.ClipKey(clipID)
	if err := media.UploadFile(ctx, key, outputPath, storage.ClipMediaType); err != nil {
		return fmt.Errorf("upload clip: %w", err)
	}

	patch, err := clip.ProcessedPatch(key)
	if err != nil {
		return err
	}
	if _, err := db.Exec(ctx,
		`UPDATE clips SET doc = doc || $1::jsonb, status = 'reviewing', processing_status = 'ready',
		        processing_started_at = NULL, updated_at = now()
		 WHERE id = $2`,
		patch, clipID,
	); err != nil {
		if delErr := media.DeleteObject(ctx, key); delErr != nil {
			slog.Warn("process-worker: failed to remove orphaned clip", "key", key, "error", delErr)
		}
		return fmt.Errorf("save processed clip: %w", err)
	}
	return nil
}

func tempFile(pattern string) (string, func(), error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	_ = f.Close()
	return path, func() { _ = os.Remove(path) }, nil
}

// emit tolerates a nil notifier; delivery errors are already logged by the
// notifier itself.
func emit(ctx context.Context, n notify.Notifier, ev notify.Event) {
	if n == nil {
		return
	}
	_ = n.Notify(ctx, ev)
}

func markProcessingFailed(ctx context.Context, db database.DBTX, clipID string) {
	if _, err := db.Exec(ctx,
		`UPDATE clips SET processing_status = 'failed', processing_started_at = NULL, updated_at = now()
		 WHERE id = $1`,
		clipID,
	); err != nil {
		slog.Error("process-worker: failed to mark clip as failed", "clip_id", clipID, "error", err)
	}
}

func StartProcessingWorker(ctx context.Context, db database.DBTX, media Media, notifier notify.Notifier, interval time.Duration) {
	go func() {
		slog.Info("process-worker: started")
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("process-worker: shutting down")
				return
			case <-ticker.C:
				processNextClip(ctx, db, media, notifier)
			}
		}
	}()
}
