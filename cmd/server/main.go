package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tabletop/backend/internal/config"
	"github.com/tabletop/backend/internal/database"
	"github.com/tabletop/backend/internal/db"
	"github.com/tabletop/backend/internal/logging"
	"github.com/tabletop/backend/internal/presence"
	"github.com/tabletop/backend/internal/router"
	"github.com/tabletop/backend/internal/services"
)

func main() {
	// Initialize structured logging (reads LOGGING_LEVEL env var)
	logging.Initialize()

	// Load configuration
	cfg := config.Load()

	// Error reporting is optional; a missing DSN disables it
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.SentryEnvironment,
		}); err != nil {
			slog.Warn("sentry init failed", slog.String("error", err.Error()))
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database
	sqlDB, err := database.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer sqlDB.Close()

	// Run migrations
	if err := database.RunMigrations(sqlDB); err != nil {
		slog.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize queries
	queries := db.New(sqlDB)

	// Presence layer: channel resolution backed by the visibility and
	// authorization services, coordinated process-wide
	authzService := services.NewAuthzService(queries)
	visibilityService := services.NewVisibilityService(queries, authzService)
	resolver := presence.NewResolver(visibilityService, authzService)
	coordinator := presence.NewCoordinator(resolver)

	// Create router
	r := router.New(cfg, sqlDB, queries, coordinator)

	// Start server
	addr := ":" + cfg.Port
	slog.Info("starting server", slog.String("addr", addr))

	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
