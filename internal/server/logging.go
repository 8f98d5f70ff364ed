package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mssola/useragent"

	"github.com/NanaAbabioh/testimony-app-backend/internal/geoip"
	"github.com/NanaAbabioh/testimony-app-backend/internal/httputil"
	"github.com/NanaAbabioh/testimony-app-backend/internal/ratelimit"
)

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// browserName reports "bot" for crawlers and "" when the agent is unknown.
func browserName(userAgent string) string {
	if userAgent == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		return "bot"
	}
	name, _ := ua.Browser()
	return name
}

func slogMiddleware(geo *geoip.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/health" {
				next.ServeHTTP(w, r)
				return
			}

			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(recorder, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", httputil.RequestIDFromContext(r.Context()),
				"remote_addr", r.RemoteAddr,
			}
			if browser := browserName(r.UserAgent()); browser != "" {
				attrs = append(attrs, "browser", browser)
			}
			if country := geo.Country(ratelimit.ClientIP(r)); country != "" {
				attrs = append(attrs, "country", country)
			}
			slog.Info("http request", attrs...)
		})
	}
}
