package httputil

import (
	"encoding/json"
	"net/http"
	"time"
)

type ErrorBody struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError writes an error body that is never cached. The request id is the
// one RequestID already placed on the response headers.
func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, status, ErrorBody{
		Error:     message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: w.Header().Get(RequestIDHeader),
	})
}
