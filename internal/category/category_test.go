package category

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
)

func newTestRouter(t *testing.T) (http.Handler, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mock.Close)

	h := NewHandler(mock)
	r := chi.NewRouter()
	r.Get("/api/categories", h.List)
	r.Post("/api/admin/categories", h.Create)
	r.Patch("/api/admin/categories/{id}", h.Update)
	r.Delete("/api/admin/categories/{id}", h.Delete)
	return r, mock
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestList(t *testing.T) {
	router, mock := newTestRouter(t)
	now := time.Now().UTC().Truncate(time.Second)
	desc := "Stories of healing"

	mock.ExpectQuery(`FROM categories c\s+ORDER BY c.sort_order, c.name`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "sort_order", "created_at", "clip_count"}).
			AddRow("cat-1", "Healing", &desc, 0, now, int64(12)).
			AddRow("cat-2", "Provision", (*string)(nil), 1, now, int64(0)))

	rec := do(router, http.MethodGet, "/api/categories", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var items []item
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].ClipCount != 12 || items[1].Description != nil {
		t.Errorf("unexpected items %+v", items)
	}
	if !strings.HasPrefix(rec.Header().Get("Cache-Control"), "public") {
		t.Errorf("expected public caching, got %q", rec.Header().Get("Cache-Control"))
	}
}

func TestList_StorageUnavailable(t *testing.T) {
	router, mock := newTestRouter(t)
	mock.ExpectQuery(`FROM categories`).WillReturnError(&pgconn.PgError{Code: "57P01"})

	rec := do(router, http.MethodGet, "/api/categories", "")

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestCreate(t *testing.T) {
	router, mock := newTestRouter(t)
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM categories`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`INSERT INTO categories`).
		WithArgs("Deliverance", (*string)(nil), 4).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow("cat-9", now))

	rec := do(router, http.MethodPost, "/api/admin/categories", `{"name":"  Deliverance ","sortOrder":4}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var it item
	if err := json.Unmarshal(rec.Body.Bytes(), &it); err != nil {
		t.Fatal(err)
	}
	if it.ID != "cat-9" || it.Name != "Deliverance" || it.CreatedAt != now.Format(time.RFC3339) {
		t.Errorf("unexpected item %+v", it)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestCreate_Validation(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := map[string]string{
		"empty name": `{"name":"   "}`,
		"long name":  `{"name":"` + strings.Repeat("n", 101) + `"}`,
		"long desc":  `{"name":"ok","description":"` + strings.Repeat("d", 1001) + `"}`,
		"malformed":  `{"name":`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if rec := do(router, http.MethodPost, "/api/admin/categories", body); rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestCreate_Duplicate(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM categories`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`INSERT INTO categories`).
		WithArgs("Healing", (*string)(nil), 0).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	if rec := do(router, http.MethodPost, "/api/admin/categories", `{"name":"Healing"}`); rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestCreate_Limit(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM categories`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(maxCategories))

	if rec := do(router, http.MethodPost, "/api/admin/categories", `{"name":"One more"}`); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestUpdate(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectExec(`UPDATE categories SET name = \$1, sort_order = \$2, updated_at = now\(\) WHERE id = \$3`).
		WithArgs("Renamed", 7, "cat-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if rec := do(router, http.MethodPatch, "/api/admin/categories/cat-1", `{"name":"Renamed","sortOrder":7}`); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestUpdate_Errors(t *testing.T) {
	router, mock := newTestRouter(t)

	if rec := do(router, http.MethodPatch, "/api/admin/categories/cat-1", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty update, got %d", rec.Code)
	}

	mock.ExpectExec(`UPDATE categories SET description = \$1`).
		WithArgs("new", "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	if rec := do(router, http.MethodPatch, "/api/admin/categories/missing", `{"description":"new"}`); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	mock.ExpectExec(`UPDATE categories SET name = \$1`).
		WithArgs("Healing", "cat-2").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	if rec := do(router, http.MethodPatch, "/api/admin/categories/cat-2", `{"name":"Healing"}`); rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestDelete(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectExec(`DELETE FROM categories WHERE id = \$1`).
		WithArgs("cat-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	if rec := do(router, http.MethodDelete, "/api/admin/categories/cat-1", ""); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	mock.ExpectExec(`DELETE FROM categories WHERE id = \$1`).
		WithArgs("cat-x").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	if rec := do(router, http.MethodDelete, "/api/admin/categories/cat-x", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	mock.ExpectExec(`DELETE FROM categories WHERE id = \$1`).
		WithArgs("cat-y").
		WillReturnError(errors.New("boom"))
	if rec := do(router, http.MethodDelete, "/api/admin/categories/cat-y", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
