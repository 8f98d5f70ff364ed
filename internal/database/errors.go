package database

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorKind is the storage failure category surfaced to the HTTP boundary.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindPermissionDenied
	KindResourceExhausted
	KindUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindResourceExhausted:
		return "resource_exhausted"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

var kindStatus = map[ErrorKind]int{
	KindNotFound:          http.StatusNotFound,
	KindPermissionDenied:  http.StatusForbidden,
	KindResourceExhausted: http.StatusTooManyRequests,
	KindUnavailable:       http.StatusServiceUnavailable,
	KindUnknown:           http.StatusInternalServerError,
}

// StatusFor maps an error kind to the HTTP status returned to clients.
func StatusFor(kind ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Substrings checked, in order, when an error carries no SQLSTATE. The wording
// tracks the messages produced by pgx and the pool on connection failures.
var messageKinds = []struct {
	substr string
	kind   ErrorKind
}{
	{"index", KindUnavailable},
	{"permission", KindPermissionDenied},
	{"quota", KindResourceExhausted},
	{"rate limit", KindResourceExhausted},
	{"resource exhausted", KindResourceExhausted},
	{"too many", KindResourceExhausted},
	{"unavailable", KindUnavailable},
	{"connection refused", KindUnavailable},
}

// Classify maps a storage error onto an ErrorKind. Postgres errors are
// classified by SQLSTATE; anything else falls back to message inspection.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return KindNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyCode(pgErr.Code)
	}

	msg := strings.ToLower(err.Error())
	for _, mk := range messageKinds {
		if strings.Contains(msg, mk.substr) {
			return mk.kind
		}
	}
	return KindUnknown
}

func classifyCode(code string) ErrorKind {
	switch {
	case code == "42501":
		return KindPermissionDenied
	case code == "42P01", code == "57P01", code == "57P02", code == "57P03":
		return KindUnavailable
	case strings.HasPrefix(code, "28"):
		return KindPermissionDenied
	case strings.HasPrefix(code, "53"), strings.HasPrefix(code, "54"):
		return KindResourceExhausted
	case strings.HasPrefix(code, "08"):
		return KindUnavailable
	default:
		return KindUnknown
	}
}
