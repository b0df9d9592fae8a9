package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	analysisadapter "github.com/ericfisherdev/reviewflow/internal/adapter/driven/analysis"
	githubadapter "github.com/ericfisherdev/reviewflow/internal/adapter/driven/github"
	sqliteadapter "github.com/ericfisherdev/reviewflow/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/reviewflow/internal/adapter/driving/http"
	"github.com/ericfisherdev/reviewflow/internal/application"
	"github.com/ericfisherdev/reviewflow/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars; missing
	// credentials are reported per-review by the config validator).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"analysis_url", cfg.AnalysisURL,
		"batch_size", cfg.BatchSize,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire driven adapters.
	runStore := sqliteadapter.NewRunRepo(db)
	reviewClient := githubadapter.NewClient(cfg.GitHubToken)
	analysisClient := analysisadapter.NewClient(cfg.AnalysisURL)
	validator := config.NewValidator(cfg)

	// 6. Assemble the application core. The analysis service has no
	// interactive preview surface, so the gate is nil and approval is
	// decided by the engine's output.
	poster := application.NewThreadPoster(reviewClient, application.PosterConfig{
		BatchSize:  cfg.BatchSize,
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.BaseDelay,
		BatchDelay: cfg.BatchDelay,
	})
	workflow := application.NewWorkflowService(analysisClient, nil, poster, validator, analysisClient, runStore)
	session := application.NewSessionController()

	// 7. HTTP driving adapter.
	apiHandler := httphandler.NewHandler(workflow, session, runStore, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Review requests block until the workflow finishes, which can
		// span many retry backoffs. No write deadline.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("reviewflow started", "listen_addr", cfg.ListenAddr)

	// 8. Wait for shutdown signal, then cancel any in-flight review so the
	// poster stops at the next thread boundary before the server drains.
	<-ctx.Done()
	slog.Info("shutting down")
	session.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
