package clip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/NanaAbabioh/testimony-app-backend/internal/auth"
	"github.com/NanaAbabioh/testimony-app-backend/internal/cliptime"
	"github.com/NanaAbabioh/testimony-app-backend/internal/httputil"
	"github.com/NanaAbabioh/testimony-app-backend/internal/validate"
)

const MaxImportBatch = 200

type createRequest struct {
	VideoID     string             `json:"videoId"`
	CategoryID  string             `json:"categoryId"`
	Title       string             `json:"title"`
	Episode     string             `json:"episode"`
	ServiceDate string             `json:"serviceDate"`
	StartTime   cliptime.TimeValue `json:"startTime"`
	EndTime     cliptime.TimeValue `json:"endTime"`
	Transcript  string             `json:"transcript"`
}

type createResponse struct {
	Clip       Summary         `json:"clip"`
	Validation cliptime.Report `json:"validation"`
}

// buildRecord validates the descriptive fields and parses the clip timing.
// Time parse failures are hard errors; the timing report is advisory.
func buildRecord(req createRequest) (Record, cliptime.Report, error) {
	rec := Record{
		VideoID:     strings.TrimSpace(req.VideoID),
		CategoryID:  strings.TrimSpace(req.CategoryID),
		Title:       strings.TrimSpace(req.Title),
		Episode:     strings.TrimSpace(req.Episode),
		ServiceDate: strings.TrimSpace(req.ServiceDate),
		Transcript:  strings.TrimSpace(req.Transcript),
	}
	if rec.VideoID == "" {
		return Record{}, cliptime.Report{}, errors.New("videoId is required")
	}
	if rec.Title == "" {
		return Record{}, cliptime.Report{}, errors.New("title is required")
	}
	for _, msg := range []string{
		validate.ClipTitle(rec.Title),
		validate.Episode(rec.Episode),
		validate.Transcript(rec.Transcript),
	} {
		if msg != "" {
			return Record{}, cliptime.Report{}, errors.New(msg)
		}
	}
	if rec.CategoryID != "" {
		if msg := validate.CategoryID(rec.CategoryID); msg != "" {
			return Record{}, cliptime.Report{}, errors.New(msg)
		}
	}
	if rec.ServiceDate != "" {
		if _, err := time.Parse(time.DateOnly, rec.ServiceDate); err != nil {
			return Record{}, cliptime.Report{}, errors.New("serviceDate must be YYYY-MM-DD")
		}
	}

	start, err := req.StartTime.Seconds()
	if err != nil {
		return Record{}, cliptime.Report{}, fmt.Errorf("startTime: %w", err)
	}
	end, err := req.EndTime.Seconds()
	if err != nil {
		return Record{}, cliptime.Report{}, fmt.Errorf("endTime: %w", err)
	}
	rec.StartSeconds, rec.EndSeconds = start, end

	return rec, cliptime.Validate(rec.Timing()), nil
}

type sourceVideo struct {
	serviceDate string
	episode     string
	hasSource   bool
}

func (h *Handler) lookupVideo(ctx context.Context, youtubeID string) (sourceVideo, error) {
	var v sourceVideo
	err := h.db.QueryRow(ctx,
		`SELECT COALESCE(service_date, ''), COALESCE(episode, ''), source_key IS NOT NULL
		 FROM videos WHERE youtube_id = $1`,
		youtubeID,
	).Scan(&v.serviceDate, &v.episode, &v.hasSource)
	return v, err
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// Create serves POST /api/admin/clips.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, report, err := buildRecord(req)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := cliptime.CheckManualDuration(rec.StartSeconds, rec.EndSeconds); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	video, err := h.lookupVideo(r.Context(), rec.VideoID)
	if err != nil {
		httputil.WriteStorageError(w, r, err, "video not found", "failed to load video")
		return
	}
	if rec.ServiceDate == "" {
		rec.ServiceDate = video.serviceDate
	}
	if rec.Episode == "" {
		rec.Episode = video.episode
	}
	rec.Status = StatusProcessing

	if err := insertRecord(r.Context(), h.db, &rec, video.hasSource, rec.Transcript != ""); err != nil {
		if isForeignKeyViolation(err) {
			httputil.WriteError(w, http.StatusBadRequest, "category not found")
			return
		}
		httputil.WriteStorageError(w, r, err, "clip not found", "failed to create clip")
		return
	}

	if !report.IsValid {
		slog.Warn("clip: created with timing findings",
			"clip_id", rec.ID,
			"severity", report.Severity.String(),
			"start", cliptime.FormatSeconds(rec.StartSeconds),
			"end", cliptime.FormatSeconds(rec.EndSeconds),
		)
	}
	slog.Info("clip: created", "clip_id", rec.ID, "admin", auth.UserIDFromContext(r.Context()))

	httputil.WriteJSON(w, http.StatusCreated, createResponse{Clip: rec.Summary(), Validation: report})
}

type importItem struct {
	createRequest
	Status string `json:"status"`
}

type importRequest struct {
	Clips []importItem `json:"clips"`
}

type importResult struct {
	Index      int              `json:"index"`
	ID         string           `json:"id,omitempty"`
	Error      string           `json:"error,omitempty"`
	Validation *cliptime.Report `json:"validation,omitempty"`
}

type importResponse struct {
	Imported int            `json:"imported"`
	Failed   int            `json:"failed"`
	Flagged  int            `json:"flagged"`
	Results  []importResult `json:"results"`
}

// Import serves POST /api/admin/clips/import. Items are stored one by one;
// a bad item is reported and does not stop the batch. Timing findings are
// reported but never reject an item.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Clips) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "clips is required")
		return
	}
	if len(req.Clips) > MaxImportBatch {
		httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("at most %d clips per import", MaxImportBatch))
		return
	}

	resp := importResponse{Results: make([]importResult, 0, len(req.Clips))}
	for i, item := range req.Clips {
		result := h.importOne(r.Context(), i, item)
		switch {
		case result.Error != "":
			resp.Failed++
		default:
			resp.Imported++
			if result.Validation != nil && !result.Validation.IsValid {
				resp.Flagged++
			}
		}
		resp.Results = append(resp.Results, result)
	}

	slog.Info("clip: import finished",
		"imported", resp.Imported,
		"failed", resp.Failed,
		"flagged", resp.Flagged,
	)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) importOne(ctx context.Context, index int, item importItem) importResult {
	result := importResult{Index: index}

	rec, report, err := buildRecord(item.createRequest)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	rec.Status = StatusSubmitted
	if item.Status != "" {
		st, ok := ParseStatus(item.Status)
		if !ok {
			result.Error = "unknown status " + item.Status
			return result
		}
		rec.Status = st
	}

	if err := insertRecord(ctx, h.db, &rec, false, rec.Transcript != ""); err != nil {
		if isForeignKeyViolation(err) {
			result.Error = "category not found"
		} else {
			slog.Error("clip: import insert failed", "index", index, "error", err)
			result.Error = "failed to store clip"
		}
		return result
	}
	result.ID = rec.ID
	result.Validation = &report
	return result
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus serves PATCH /api/admin/clips/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, ok := ParseStatus(req.Status)
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "status must be one of submitted, processing, reviewing, live, hidden")
		return
	}

	if err := updateStatus(r.Context(), h.db, id, status); err != nil {
		httputil.WriteStorageError(w, r, err, "clip not found", "failed to update clip status")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type flaggedResponse struct {
	Total      int                     `json:"total"`
	ValidCount int                     `json:"validCount"`
	Flagged    []cliptime.FlaggedClip  `json:"flagged"`
	Counts     cliptime.SeverityCounts `json:"counts"`
}

// Flagged serves GET /api/admin/clips/flagged.
func (h *Handler) Flagged(w http.ResponseWriter, r *http.Request) {
	records, err := listAll(r.Context(), h.db)
	if err != nil {
		httputil.WriteStorageError(w, r, err, "clips not found", "failed to load clips")
		return
	}

	timed := make([]cliptime.TimedClip, 0, len(records))
	for _, rec := range records {
		timed = append(timed, cliptime.TimedClip{ID: rec.ID, Start: rec.StartSeconds, End: rec.EndSeconds})
	}
	batch := cliptime.ValidateBatch(timed)

	httputil.WriteJSON(w, http.StatusOK, flaggedResponse{
		Total:      len(records),
		ValidCount: len(batch.Valid),
		Flagged:    batch.Flagged,
		Counts:     batch.Counts,
	})
}

// SetOverride serves PUT /api/admin/clips/{id}/override.
func (h *Handler) SetOverride(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var ov Override
	if err := json.NewDecoder(r.Body).Decode(&ov); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ov.TitleShort = strings.TrimSpace(ov.TitleShort)
	ov.SummaryShort = strings.TrimSpace(ov.SummaryShort)
	if ov.TitleShort == "" && ov.SummaryShort == "" {
		httputil.WriteError(w, http.StatusBadRequest, "titleShort or summaryShort is required")
		return
	}
	if msg := validate.TitleShort(ov.TitleShort); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validate.SummaryShort(ov.SummaryShort); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.overrides.Set(r.Context(), id, ov); err != nil {
		if isForeignKeyViolation(err) {
			err = fmt.Errorf("override for %s: %w", id, pgx.ErrNoRows)
		}
		httputil.WriteStorageError(w, r, err, "clip not found", "failed to save override")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"clipId": id, "override": ov})
}
