package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NanaAbabioh/testimony-app-backend/internal/clip"
	"github.com/NanaAbabioh/testimony-app-backend/internal/config"
	"github.com/NanaAbabioh/testimony-app-backend/internal/database"
	"github.com/NanaAbabioh/testimony-app-backend/internal/geoip"
	"github.com/NanaAbabioh/testimony-app-backend/internal/notify"
	"github.com/NanaAbabioh/testimony-app-backend/internal/server"
	"github.com/NanaAbabioh/testimony-app-backend/internal/slack"
	"github.com/NanaAbabioh/testimony-app-backend/internal/storage"
	"github.com/NanaAbabioh/testimony-app-backend/internal/video"
	"github.com/NanaAbabioh/testimony-app-backend/internal/webhook"
)

const (
	processingInterval = 5 * time.Second
	titleInterval      = 10 * time.Second
)

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

// titleGenerator returns nil when AI titles are disabled so the worker is
// never started.
func titleGenerator(cfg config.AI) video.TitleGenerator {
	if !cfg.Enabled {
		return nil
	}
	return video.NewAIClient(cfg.BaseURL, cfg.APIKey, cfg.Model)
}

// notifiers registers only the channels that are configured.
func notifiers(cfg config.Notifications, db database.DBTX) *notify.Multi {
	var list []notify.Notifier
	if cfg.WebhookURL != "" {
		list = append(list, webhook.New(db, cfg.WebhookURL, cfg.WebhookSecret))
	}
	if cfg.SlackWebhookURL != "" {
		list = append(list, slack.New(cfg.SlackWebhookURL))
	}
	return notify.NewMulti(list...)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal("config: load failed", err)
	}
	slog.SetDefault(config.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat))
	if err := cfg.Validate(); err != nil {
		fatal("config: invalid", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal("database: connection failed", err)
	}
	defer db.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		fatal("database: migration failed", err)
	}
	slog.Info("database: migrations applied")

	store, err := storage.New(ctx, storage.Config{
		Endpoint:       cfg.S3.Endpoint,
		PublicEndpoint: cfg.S3.PublicEndpoint,
		Bucket:         cfg.S3.Bucket,
		AccessKey:      cfg.S3.AccessKey,
		SecretKey:      cfg.S3.SecretKey,
		Region:         cfg.S3.Region,
		MaxUploadBytes: cfg.S3.MaxUploadBytes,
	})
	if err != nil {
		fatal("storage: initialization failed", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		fatal("storage: bucket check failed", err)
	}
	slog.Info("storage: bucket ready", "bucket", cfg.S3.Bucket)

	geo := geoip.Open(cfg.GeoIPDBPath)
	defer func() { _ = geo.Close() }()

	overrides := clip.NewOverrides(db.Pool)
	if err := overrides.Load(ctx); err != nil {
		slog.Warn("clip: overrides not loaded, listing will retry", "error", err)
	} else {
		slog.Info("clip: overrides loaded", "count", overrides.Len())
	}

	srv := server.New(server.Config{
		DB:               db.Pool,
		Pinger:           db,
		Storage:          store,
		Overrides:        overrides,
		GeoIP:            geo,
		JWTSecret:        cfg.JWTSecret,
		BaseURL:          cfg.BaseURL,
		CategoryFetchCap: cfg.CategoryFetchCap,
		PublicRateLimit:  cfg.PublicRateLimit,
		AdminRateLimit:   cfg.AdminRateLimit,
		DocsEnabled:      cfg.DocsEnabled,
	})

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	srv.StartSweepers(workerCtx)

	alerts := notifiers(cfg.Notifications, db.Pool)
	slog.Info("notify: channels configured", "count", alerts.Len())

	if cfg.ProcessingEnabled {
		video.StartProcessingWorker(workerCtx, db.Pool, store, alerts, processingInterval)
	} else {
		slog.Info("process-worker: disabled")
	}
	if ai := titleGenerator(cfg.AI); ai != nil {
		video.StartTitleWorker(workerCtx, db.Pool, ai, alerts, titleInterval)
		slog.Info("title-worker: AI titles enabled", "model", cfg.AI.Model)
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server: listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server: listen failed", err)
		}
	}()

	<-shutdownCh
	slog.Info("server: shutting down")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fatal("server: shutdown failed", err)
	}
	slog.Info("server: shutdown complete")
}
