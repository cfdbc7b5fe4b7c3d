// Package main is the entry point for the Planora server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"planora/internal/ai"
	"planora/internal/cache"
	"planora/internal/config"
	"planora/internal/database"
	"planora/internal/handlers"
	"planora/internal/hosting"
	"planora/internal/intake"
	"planora/internal/orchestrator"
	"planora/internal/projects"
	"planora/internal/router"
	"planora/internal/session"
	"planora/internal/storage"
	"planora/internal/store"
)

func main() {
	// Optional .env file for local development.
	_ = godotenv.Load()

	// Structured logging for the whole process.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (Redis-compatible cache + session store).
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	// In non-development environments, mark session cookies as Secure.
	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies)

	// Initialize data stores.
	userStore := store.NewUserStore(db)
	projectStore := store.NewProjectStore(db)
	hostingConfigStore := store.NewHostingConfigStore(db)

	// S3-compatible object storage is optional; without it the pipeline
	// keeps image references inline.
	fileHost, err := storage.New(
		cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey,
		cfg.S3Bucket, cfg.HostingRoot, cfg.S3PublicURL,
	)
	if err != nil {
		slog.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	}
	if fileHost != nil {
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	} else {
		slog.Warn("s3 storage not configured, assets stay inline")
	}

	// Hosting gateway: per-user endpoints with a Valkey fast path.
	kv := cache.NewKV(valkeyClient, cache.DefaultKVTTL)
	var host hosting.FileHost
	if fileHost != nil {
		host = fileHost
	}
	gateway := hosting.NewGateway(host, hostingConfigStore, kv, nil)

	// Initialize the render provider registry.
	registry := ai.NewRegistry(cfg.RenderProvider, map[string]ai.ProviderConfig{
		"gemini": {APIKey: cfg.GeminiKey, Model: cfg.GeminiModel, BaseURL: cfg.GeminiBaseURL},
		"openai": {APIKey: cfg.OpenAIKey, Model: cfg.OpenAIModel, BaseURL: cfg.OpenAIBaseURL},
	})

	slog.Info("render providers initialized",
		"active", registry.ActiveName(),
		"available", registry.Available(),
	)

	// Wire the generation pipeline.
	repo := projects.NewRepository(projectStore, gateway)
	orch := orchestrator.New(repo, registry, nil)

	api := handlers.NewAPI(sessionStore, userStore, repo, orch, intake.New(), gateway, registry)

	// Set up the Chi router with all middleware and routes.
	r := router.New(sessionStore, api)

	// Create the HTTP server with sensible timeouts. WriteTimeout must
	// accommodate render calls that wait on the image provider.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	// Let in-flight generations finish persisting.
	orch.Wait()

	slog.Info("server stopped gracefully")
}
