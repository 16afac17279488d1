package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daap14/stencil/internal/api"
	"github.com/daap14/stencil/internal/auth"
	"github.com/daap14/stencil/internal/blueprint"
	"github.com/daap14/stencil/internal/config"
	"github.com/daap14/stencil/internal/database"
	"github.com/daap14/stencil/internal/dsl"
	"github.com/daap14/stencil/internal/ingest"
	"github.com/daap14/stencil/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("failed to apply database schema", "error", err)
		os.Exit(1)
	}

	layout := store.NewLayout(cfg.StoreRoot, cfg.StoreBaseURI)
	if err := layout.EnsureDirs(); err != nil {
		slog.Error("failed to prepare store root", "error", err)
		os.Exit(1)
	}

	repo := blueprint.NewPostgresRepository(db.Pool())
	userRepo := auth.NewRepository(db.Pool())
	authService := auth.NewService(userRepo, cfg.BcryptCost)

	if _, err := authService.BootstrapSuperuser(ctx); err != nil {
		slog.Error("failed to bootstrap superuser", "error", err)
		os.Exit(1)
	}

	ingestor := ingest.NewIngestor(layout, &dsl.YAMLParser{Root: cfg.StoreRoot}, repo, ingest.Options{
		FetchTimeout:   time.Duration(cfg.FetchTimeoutSeconds) * time.Second,
		MaxArchiveSize: cfg.MaxArchiveSizeMB << 20,
	})

	router := api.NewRouter(api.RouterDeps{
		Repo:        repo,
		Ingestor:    ingestor,
		Layout:      layout,
		DBPinger:    db,
		AuthService: authService,
		UserRepo:    userRepo,
		Version:     cfg.Version,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting stencil server", "port", cfg.Port, "version", cfg.Version, "storeRoot", cfg.StoreRoot)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
