// Package category manages the topics clips are filed under.
package category

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/NanaAbabioh/testimony-app-backend/internal/database"
	"github.com/NanaAbabioh/testimony-app-backend/internal/httputil"
	"github.com/NanaAbabioh/testimony-app-backend/internal/validate"
)

const maxCategories = 200

type Handler struct {
	db database.DBTX
}

func NewHandler(db database.DBTX) *Handler {
	return &Handler{db: db}
}

type item struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	SortOrder   int     `json:"sortOrder"`
	ClipCount   int64   `json:"clipCount"`
	CreatedAt   string  `json:"createdAt"`
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// List serves GET /api/categories.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(r.Context(),
		`SELECT c.id, c.name, c.description, c.sort_order, c.created_at,
		        (SELECT COUNT(*) FROM clips cl WHERE cl.category_id = c.id) AS clip_count
		 FROM categories c
		 ORDER BY c.sort_order, c.name`,
	)
	if err != nil {
		httputil.WriteStorageError(w, r, err, "categories not found", "failed to list categories")
		return
	}
	defer rows.Close()

	items := make([]item, 0)
	for rows.Next() {
		var it item
		var createdAt time.Time
		if err := rows.Scan(&it.ID, &it.Name, &it.Description, &it.SortOrder, &createdAt, &it.ClipCount); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "failed to scan category")
			return
		}
		it.CreatedAt = createdAt.Format(time.RFC3339)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		httputil.WriteStorageError(w, r, err, "categories not found", "failed to list categories")
		return
	}

	httputil.SetPublicCache(w, 300, 600)
	httputil.WriteJSON(w, http.StatusOK, items)
}

type createRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	SortOrder   int     `json:"sortOrder"`
}

// Create serves POST /api/admin/categories.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		httputil.WriteError(w, http.StatusBadRequest, "category name is required")
		return
	}
	if msg := validate.CategoryName(name); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Description != nil {
		if msg := validate.CategoryDescription(*req.Description); msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
	}

	var count int
	if err := h.db.QueryRow(r.Context(), `SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
		httputil.WriteStorageError(w, r, err, "categories not found", "failed to check category limit")
		return
	}
	if count >= maxCategories {
		httputil.WriteError(w, http.StatusForbidden, fmt.Sprintf("maximum of %d categories reached", maxCategories))
		return
	}

	it := item{Name: name, Description: req.Description, SortOrder: req.SortOrder}
	var createdAt time.Time
	err := h.db.QueryRow(r.Context(),
		`INSERT INTO categories (name, description, sort_order)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		name, req.Description, req.SortOrder,
	).Scan(&it.ID, &createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			httputil.WriteError(w, http.StatusConflict, "a category with this name already exists")
			return
		}
		httputil.WriteStorageError(w, r, err, "category not found", "failed to create category")
		return
	}
	it.CreatedAt = createdAt.Format(time.RFC3339)

	httputil.WriteJSON(w, http.StatusCreated, it)
}

type updateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	SortOrder   *int    `json:"sortOrder"`
}

// Update serves PATCH /api/admin/categories/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == nil && req.Description == nil && req.SortOrder == nil {
		httputil.WriteError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	setClauses := []string{}
	args := []any{}
	paramIdx := 1

	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			httputil.WriteError(w, http.StatusBadRequest, "category name is required")
			return
		}
		if msg := validate.CategoryName(trimmed); msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", paramIdx))
		args = append(args, trimmed)
		paramIdx++
	}
	if req.Description != nil {
		if msg := validate.CategoryDescription(*req.Description); msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", paramIdx))
		args = append(args, *req.Description)
		paramIdx++
	}
	if req.SortOrder != nil {
		setClauses = append(setClauses, fmt.Sprintf("sort_order = $%d", paramIdx))
		args = append(args, *req.SortOrder)
		paramIdx++
	}

	query := fmt.Sprintf("UPDATE categories SET %s, updated_at = now() WHERE id = $%d",
		strings.Join(setClauses, ", "), paramIdx)
	args = append(args, id)

	result, err := h.db.Exec(r.Context(), query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			httputil.WriteError(w, http.StatusConflict, "a category with this name already exists")
			return
		}
		httputil.WriteStorageError(w, r, err, "category not found", "failed to update category")
		return
	}
	if result.RowsAffected() == 0 {
		httputil.WriteError(w, http.StatusNotFound, "category not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete serves DELETE /api/admin/categories/{id}. Clips in the category
// stay and lose their category.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.db.Exec(r.Context(), `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		httputil.WriteStorageError(w, r, err, "category not found", "failed to delete category")
		return
	}
	if result.RowsAffected() == 0 {
		httputil.WriteError(w, http.StatusNotFound, "category not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
