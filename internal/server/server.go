package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/NanaAbabioh/testimony-app-backend/internal/auth"
	"github.com/NanaAbabioh/testimony-app-backend/internal/category"
	"github.com/NanaAbabioh/testimony-app-backend/internal/clip"
	"github.com/NanaAbabioh/testimony-app-backend/internal/cliptime"
	"github.com/NanaAbabioh/testimony-app-backend/internal/config"
	"github.com/NanaAbabioh/testimony-app-backend/internal/database"
	"github.com/NanaAbabioh/testimony-app-backend/internal/docs"
	"github.com/NanaAbabioh/testimony-app-backend/internal/geoip"
	"github.com/NanaAbabioh/testimony-app-backend/internal/httputil"
	"github.com/NanaAbabioh/testimony-app-backend/internal/ratelimit"
	"github.com/NanaAbabioh/testimony-app-backend/internal/validate"
	"github.com/NanaAbabioh/testimony-app-backend/internal/video"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type ObjectStorage interface {
	clip.ObjectStorage
	video.ObjectStorage
}

type Config struct {
	DB               database.DBTX
	Pinger           Pinger
	Storage          ObjectStorage
	Overrides        *clip.Overrides
	GeoIP            *geoip.Resolver
	JWTSecret        string
	BaseURL          string
	CategoryFetchCap int
	PublicRateLimit  config.RateLimit
	AdminRateLimit   config.RateLimit
	DocsEnabled      bool
}

type Server struct {
	router          chi.Router
	pinger          Pinger
	authHandler     *auth.Handler
	clipHandler     *clip.Handler
	categoryHandler *category.Handler
	videoHandler    *video.Handler
	publicLimiter   *ratelimit.Limiter
	adminLimiter    *ratelimit.Limiter
	docsEnabled     bool
}

func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(httputil.RequestID)
	r.Use(slogMiddleware(cfg.GeoIP))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(SecurityConfig{BaseURL: cfg.BaseURL}))

	defaults := config.Defaults()
	if cfg.PublicRateLimit.RequestsPerSecond <= 0 {
		cfg.PublicRateLimit = defaults.PublicRateLimit
	}
	if cfg.AdminRateLimit.RequestsPerSecond <= 0 {
		cfg.AdminRateLimit = defaults.AdminRateLimit
	}

	s := &Server{
		router:        r,
		pinger:        cfg.Pinger,
		publicLimiter: ratelimit.NewLimiter(cfg.PublicRateLimit.RequestsPerSecond, cfg.PublicRateLimit.Burst),
		adminLimiter:  ratelimit.NewLimiter(cfg.AdminRateLimit.RequestsPerSecond, cfg.AdminRateLimit.Burst),
		docsEnabled:   cfg.DocsEnabled,
	}

	if cfg.DB != nil {
		overrides := cfg.Overrides
		if overrides == nil {
			overrides = clip.NewOverrides(cfg.DB)
		}
		lister := clip.NewLister(cfg.DB, overrides, cfg.CategoryFetchCap)
		s.clipHandler = clip.NewHandler(cfg.DB, lister, overrides, cfg.Storage)
		s.categoryHandler = category.NewHandler(cfg.DB)
		s.videoHandler = video.NewHandler(cfg.DB, cfg.Storage)

		if cfg.JWTSecret != "" {
			s.authHandler = auth.NewHandler(cfg.JWTSecret)
		} else {
			slog.Warn("server: JWT secret not set, admin routes disabled")
		}
	}

	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// StartSweepers evicts idle rate limit clients until ctx is cancelled.
func (s *Server) StartSweepers(ctx context.Context) {
	go s.publicLimiter.Run(ctx)
	go s.adminLimiter.Run(ctx)
}

func (s *Server) routes() {
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusNotFound, "not found")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/limits", s.handleLimits)
	if s.docsEnabled {
		s.router.Get("/api/docs", docs.HandleDocs)
		s.router.Get("/api/docs/openapi.yaml", docs.HandleSpec)
	}

	if s.clipHandler == nil {
		return
	}

	s.router.Group(func(r chi.Router) {
		r.Use(s.publicLimiter.Middleware)
		r.Get("/api/clips", s.clipHandler.List)
		r.Get("/api/clips/{id}", s.clipHandler.Get)
		r.Post("/api/clips/{id}/save", s.clipHandler.Save)
		r.Get("/api/categories", s.categoryHandler.List)
	})

	if s.authHandler == nil {
		return
	}

	s.router.Route("/api/admin", func(r chi.Router) {
		r.Use(s.adminLimiter.Middleware)
		r.Use(s.authHandler.RequireAdmin)

		r.Post("/clips", s.clipHandler.Create)
		r.Post("/clips/import", s.clipHandler.Import)
		r.Get("/clips/flagged", s.clipHandler.Flagged)
		r.Patch("/clips/{id}/status", s.clipHandler.UpdateStatus)
		r.Put("/clips/{id}/override", s.clipHandler.SetOverride)

		r.Post("/categories", s.categoryHandler.Create)
		r.Patch("/categories/{id}", s.categoryHandler.Update)
		r.Delete("/categories/{id}", s.categoryHandler.Delete)

		r.Get("/videos", s.videoHandler.List)
		r.Post("/videos", s.videoHandler.Create)
		r.Post("/videos/{id}/upload-complete", s.videoHandler.CompleteUpload)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			slog.Error("server: health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","error":"database unreachable"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

type limitsResponse struct {
	Fields          map[string]int `json:"fields"`
	DefaultPageSize int            `json:"defaultPageSize"`
	MaxPageSize     int            `json:"maxPageSize"`
	MaxImportBatch  int            `json:"maxImportBatch"`
	MinClipSeconds  int            `json:"minClipDurationSeconds"`
	MaxClipSeconds  int            `json:"maxClipDurationSeconds"`
}

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	httputil.SetPublicCache(w, 3600, 86400)
	httputil.WriteJSON(w, http.StatusOK, limitsResponse{
		Fields:          validate.FieldLimits(),
		DefaultPageSize: clip.DefaultLimit,
		MaxPageSize:     clip.MaxLimit,
		MaxImportBatch:  clip.MaxImportBatch,
		MinClipSeconds:  cliptime.MinManualDuration,
		MaxClipSeconds:  cliptime.MaxClipDuration,
	})
}
