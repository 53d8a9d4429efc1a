package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventsync/eventsync/internal/auth"
	"github.com/eventsync/eventsync/internal/config"
	"github.com/eventsync/eventsync/internal/extract"
	"github.com/eventsync/eventsync/internal/gcal"
	httpserver "github.com/eventsync/eventsync/internal/http"
	"github.com/eventsync/eventsync/internal/staging"
	"github.com/eventsync/eventsync/internal/store"
)

func main() {
	log.Println("Starting EventSync server...")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry is optional: without a DSN the server runs stateless.
	var telemetry *store.Store
	if cfg.TelemetryEnabled() {
		pool, err := pgxpool.New(ctx, cfg.DB.DSN)
		if err != nil {
			log.Fatalf("failed to create db pool: %v", err)
		}
		defer pool.Close()

		if err := store.ApplyMigrations(ctx, pool); err != nil {
			log.Fatalf("failed to apply migrations: %v", err)
		}
		telemetry = store.New(pool)
	} else {
		log.Println("no database configured, telemetry disabled")
	}

	extractor, err := newExtractor(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize extractor: %v", err)
	}
	if closer, ok := extractor.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	authService := auth.NewService(cfg.GoogleClientID)
	sessions := staging.NewManager(extractor, gcal.NewWriter(), staging.DefaultMaxIdle)

	r := httpserver.NewRouter(cfg, telemetry, authService, extractor, sessions)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func newExtractor(ctx context.Context, cfg *config.Config) (extract.Extractor, error) {
	switch cfg.Extractor.Backend {
	case "openai":
		return extract.NewOpenAIExtractor(cfg.Extractor.OpenAIAPIKey), nil
	default:
		return extract.NewGeminiExtractor(ctx, cfg.Extractor.GeminiAPIKey)
	}
}
