package video

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/NanaAbabioh/testimony-app-backend/internal/clip"
	"github.com/NanaAbabioh/testimony-app-backend/internal/database"
	"github.com/NanaAbabioh/testimony-app-backend/internal/httputil"
	"github.com/NanaAbabioh/testimony-app-backend/internal/storage"
	"github.com/NanaAbabioh/testimony-app-backend/internal/validate"
)

const (
	uploadURLExpiry = 1 * time.Hour
	maxVideoList    = 200
)

type ObjectStorage interface {
	UploadURL(ctx context.Context, key string, contentLength int64, expiry time.Duration) (string, error)
	ObjectSize(ctx context.Context, key string) (int64, error)
	DownloadToFile(ctx context.Context, key string, destPath string) error
	UploadFile(ctx context.Context, key string, filePath string, contentType string) error
}

// Handler serves the admin endpoints for source service recordings.
type Handler struct {
	db      database.DBTX
	storage ObjectStorage
}

func NewHandler(db database.DBTX, s ObjectStorage) *Handler {
	return &Handler{db: db, storage: s}
}

type Video struct {
	ID          string `json:"id"`
	YouTubeID   string `json:"youtubeId"`
	Title       string `json:"title"`
	ServiceDate string `json:"serviceDate,omitempty"`
	Episode     string `json:"episode,omitempty"`
	HasSource   bool   `json:"hasSource"`
	ClipCount   int64  `json:"clipCount"`
	CreatedAt   string `json:"createdAt"`
}

type createRequest struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	ServiceDate string `json:"serviceDate"`
	Episode     string `json:"episode"`
	SourceBytes int64  `json:"sourceBytes"`
}

type createResponse struct {
	Video     Video  `json:"video"`
	UploadURL string `json:"uploadUrl,omitempty"`
}

func (req createRequest) validate() (string, error) {
	youtubeID, err := ExtractYouTubeID(req.URL)
	if err != nil {
		return "", err
	}
	if msg := validate.VideoTitle(req.Title); msg != "" {
		return "", errors.New(msg)
	}
	if msg := validate.Episode(req.Episode); msg != "" {
		return "", errors.New(msg)
	}
	if req.ServiceDate != "" {
		if _, err := time.Parse(time.DateOnly, req.ServiceDate); err != nil {
			return "", errors.New("serviceDate must be YYYY-MM-DD")
		}
	}
	if req.SourceBytes < 0 {
		return "", errors.New("sourceBytes must not be negative")
	}
	return youtubeID, nil
}

// Create registers a service recording by its YouTube URL. When sourceBytes
// is set the response carries a presigned URL for uploading the source file;
// clips of the video are only trimmed once CompleteUpload has confirmed it.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.ServiceDate = strings.TrimSpace(req.ServiceDate)
	req.Episode = strings.TrimSpace(req.Episode)

	youtubeID, err := req.validate()
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var uploadURL string
	if req.SourceBytes > 0 {
		uploadURL, err = h.storage.UploadURL(r.Context(), storage.SourceKey(youtubeID), req.SourceBytes, uploadURLExpiry)
		if errors.Is(err, storage.ErrTooLarge) {
			httputil.WriteError(w, http.StatusRequestEntityTooLarge, "source file too large")
			return
		}
		if err != nil {
			slog.Error("video: failed to presign upload", "youtube_id", youtubeID, "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "failed to create upload url")
			return
		}
	}

	v := Video{
		YouTubeID:   youtubeID,
		Title:       req.Title,
		ServiceDate: req.ServiceDate,
		Episode:     req.Episode,
	}
	var createdAt time.Time
	err = h.db.QueryRow(r.Context(),
		`INSERT INTO videos (youtube_id, title, service_date, episode)
		 VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		youtubeID, req.Title, nullable(req.ServiceDate), nullable(req.Episode),
	).Scan(&v.ID, &createdAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			httputil.WriteError(w, http.StatusConflict, "video already registered")
			return
		}
		httputil.WriteStorageError(w, r, err, "video not found", "failed to create video")
		return
	}
	v.CreatedAt = createdAt.UTC().Format(time.RFC3339)

	httputil.WriteJSON(w, http.StatusCreated, createResponse{Video: v, UploadURL: uploadURL})
}

// CompleteUpload checks the source object landed in storage and records its
// key so new clips of the video are queued for trimming.
func (h *Handler) CompleteUpload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var youtubeID string
	err := h.db.QueryRow(r.Context(),
		`SELECT youtube_id FROM videos WHERE id = $1`, id,
	).Scan(&youtubeID)
	if err != nil {
		httputil.WriteStorageError(w, r, err, "video not found", "failed to load video")
		return
	}

	key := storage.SourceKey(youtubeID)
	size, err := h.storage.ObjectSize(r.Context(), key)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		slog.Error("video: failed to check source upload", "video_id", id, "key", key, "error", err)
		httputil.WriteError(w, http.StatusServiceUnavailable, "object storage unavailable")
		return
	}
	if err != nil || size == 0 {
		httputil.WriteError(w, http.StatusConflict, "source file has not been uploaded")
		return
	}

	if _, err := h.db.Exec(r.Context(),
		`UPDATE videos SET source_key = $1 WHERE id = $2`, key, id,
	); err != nil {
		httputil.WriteStorageError(w, r, err, "video not found", "failed to update video")
		return
	}

	queued, err := h.queuePendingClips(r.Context(), youtubeID)
	if err != nil {
		slog.Error("video: failed to queue clips", "video_id", id, "error", err)
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"sourceKey":   key,
		"sourceBytes": size,
		"queuedClips": queued,
	})
}

// queuePendingClips marks clips created before the source existed for
// processing.
func (h *Handler) queuePendingClips(ctx context.Context, youtubeID string) (int64, error) {
	tag, err := h.db.Exec(ctx,
		`UPDATE clips SET processing_status = 'pending', updated_at = now()
		 WHERE `+clip.VideoIDExpr("doc")+` = $1 AND processing_status IN ('none', 'failed')`,
		youtubeID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(r.Context(),
		`SELECT v.id, v.youtube_id, v.title, COALESCE(v.service_date, ''), COALESCE(v.episode, ''),
		        v.source_key IS NOT NULL, v.created_at,
		        (SELECT COUNT(*) FROM clips c WHERE `+clip.VideoIDExpr("c.doc")+` = v.youtube_id)
		 FROM videos v
		 ORDER BY v.created_at DESC
		 LIMIT $1`,
		maxVideoList,
	)
	if err != nil {
		httputil.WriteStorageError(w, r, err, "videos not found", "failed to list videos")
		return
	}
	defer rows.Close()

	videos := make([]Video, 0)
	for rows.Next() {
		var v Video
		var createdAt time.Time
		if err := rows.Scan(&v.ID, &v.YouTubeID, &v.Title, &v.ServiceDate, &v.Episode, &v.HasSource, &createdAt, &v.ClipCount); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "failed to scan video")
			return
		}
		v.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		httputil.WriteStorageError(w, r, err, "videos not found", "failed to list videos")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, videos)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
