package httputil

import (
	"log/slog"
	"net/http"

	"github.com/NanaAbabioh/testimony-app-backend/internal/database"
)

var kindMessages = map[database.ErrorKind]string{
	database.KindPermissionDenied:  "storage permission denied",
	database.KindResourceExhausted: "storage quota exceeded, try again later",
	database.KindUnavailable:       "storage temporarily unavailable",
}

// WriteStorageError classifies err and writes the matching status. notFound
// and fallback are the messages for missing rows and unclassified failures.
func WriteStorageError(w http.ResponseWriter, r *http.Request, err error, notFound, fallback string) {
	kind := database.Classify(err)
	status := database.StatusFor(kind)

	message := fallback
	switch {
	case kind == database.KindNotFound:
		message = notFound
	case kindMessages[kind] != "":
		message = kindMessages[kind]
	}

	if kind != database.KindNotFound {
		slog.Error("storage: request failed",
			"path", r.URL.Path,
			"kind", kind.String(),
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
	}
	WriteError(w, status, message)
}
