package clip

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/NanaAbabioh/testimony-app-backend/internal/database"
	"github.com/NanaAbabioh/testimony-app-backend/internal/httputil"
)

const (
	listMaxAge          = 60
	listStaleRevalidate = 300
	processedURLExpiry  = 1 * time.Hour
	etagTimeBucket      = time.Minute
)

// ObjectStorage presigns processed clip media.
type ObjectStorage interface {
	DownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type Handler struct {
	db        database.DBTX
	lister    *Lister
	overrides *Overrides
	storage   ObjectStorage
	now       func() time.Time
}

func NewHandler(db database.DBTX, lister *Lister, overrides *Overrides, s ObjectStorage) *Handler {
	return &Handler{
		db:        db,
		lister:    lister,
		overrides: overrides,
		storage:   s,
		now:       time.Now,
	}
}

// List serves GET /api/clips.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q, err := Normalize(r.URL.Query(), h.now())
	if err != nil {
		var invalid *InvalidQueryError
		if errors.As(err, &invalid) {
			httputil.WriteError(w, http.StatusBadRequest, invalid.Message)
			return
		}
		httputil.WriteError(w, http.StatusBadRequest, "invalid query")
		return
	}

	page, err := h.lister.Run(r.Context(), q)
	if err != nil {
		httputil.WriteStorageError(w, r, err, "clips not found", "failed to list clips")
		return
	}

	slog.Debug("clip: listed",
		"sort", q.Sort,
		"category_id", q.CategoryID,
		"count", page.Meta.Count,
		"has_more", page.Meta.HasMore,
		"query_time_ms", page.Meta.QueryTimeMs,
	)

	etag := listETag(q, page, h.now())
	httputil.SetPublicCache(w, listMaxAge, listStaleRevalidate)
	w.Header().Set("ETag", etag)
	if httputil.NotModified(r, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

// listETag changes whenever the query shape, the page outline or the
// current minute changes.
func listETag(q Query, page Page, now time.Time) string {
	month := ""
	if q.Month != nil {
		month = q.Month.Month
	}
	return httputil.WeakETag(
		string(q.Sort),
		q.CategoryID,
		month,
		q.Episode,
		strconv.Itoa(q.Limit),
		strconv.Itoa(page.Meta.Count),
		page.NextCursor,
		strconv.FormatInt(now.Truncate(etagTimeBucket).Unix(), 10),
	)
}

type clipDetail struct {
	Summary
	Transcript string `json:"transcript,omitempty"`
}

// Get serves GET /api/clips/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := getRecord(r.Context(), h.db, id)
	if err != nil {
		httputil.WriteStorageError(w, r, err, "clip not found", "failed to load clip")
		return
	}

	detail := clipDetail{Summary: rec.Summary(), Transcript: rec.Transcript}
	if h.overrides != nil {
		h.overrides.Apply(&detail.Summary)
	}
	if rec.ProcessedClipKey != "" && h.storage != nil {
		url, err := h.storage.DownloadURL(r.Context(), rec.ProcessedClipKey, processedURLExpiry)
		if err != nil {
			slog.Error("clip: presign processed clip failed", "clip_id", id, "error", err)
		} else {
			detail.ProcessedClipURL = url
		}
	}

	httputil.WriteJSON(w, http.StatusOK, detail)
}

// Save serves POST /api/clips/{id}/save.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	count, err := incrementSaved(r.Context(), h.db, id)
	if err != nil {
		httputil.WriteStorageError(w, r, err, "clip not found", "failed to save clip")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"id": id, "savedCount": count})
}
