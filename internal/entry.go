// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/gebo/internal/api"
	"github.com/starford/gebo/internal/graph"
	"github.com/starford/gebo/internal/mcpserver"
	"github.com/starford/gebo/internal/notify"
	"github.com/starford/gebo/internal/reactor"
	"github.com/starford/gebo/internal/storage"
	"github.com/starford/gebo/internal/validate"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger unless one was injected.
	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}

	// Initialize storage.
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Initialize SQLite graph store.
	db, err := graph.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init graph: %w", err)
	}
	defer db.Close()

	// Build validation pipeline.
	orch := validate.NewOrchestrator(db, logger, cfg.Validation.Workers, cfg.Validation.ChunkSize)
	if err := orch.Register(validate.DefaultRules(validate.Options{
		DashboardMaxAge:          cfg.Validation.DashboardMaxAge(),
		AliasCaseSensitive:       cfg.Validation.AliasCaseSensitive,
		AliasPartialMatching:     cfg.Validation.AliasPartialMatching,
		AliasSimilarityThreshold: cfg.Validation.AliasSimilarityThreshold,
	})...); err != nil {
		return fmt.Errorf("register rules: %w", err)
	}
	logger.Info("Validation pipeline ready", slog.Any("rules", orch.Pipeline()))

	// Run initial sync and validate the ingested nodes.
	ingested, err := graph.Sync(db, store, logger)
	if err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	if len(ingested) > 0 {
		orch.ValidateBatch(ctx, ingested)
	}

	// Notification broker.
	broker := notify.NewBroker()
	defer broker.Close()

	// Change reactor.
	rct := reactor.New(db, store, orch, broker, logger,
		cfg.Watcher.Debounce(), cfg.Watcher.AffectedDepth)
	defer rct.Close()

	// Build API service and router.
	svc := api.NewService(db, orch, rct)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher feeding the reactor.
	g.Go(func() error {
		if err := reactor.Watch(gCtx, rct, db, store, cfg.Vault.Path, logger); err != nil {
			return fmt.Errorf("watcher error: %w", err)
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP stdio server over an existing vault and graph
// store. Logs go to stderr so stdout stays clean for the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	db, err := graph.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init graph: %w", err)
	}
	defer db.Close()

	orch := validate.NewOrchestrator(db, logger, cfg.Validation.Workers, cfg.Validation.ChunkSize)
	if err := orch.Register(validate.DefaultRules(validate.Options{
		DashboardMaxAge:          cfg.Validation.DashboardMaxAge(),
		AliasCaseSensitive:       cfg.Validation.AliasCaseSensitive,
		AliasPartialMatching:     cfg.Validation.AliasPartialMatching,
		AliasSimilarityThreshold: cfg.Validation.AliasSimilarityThreshold,
	})...); err != nil {
		return fmt.Errorf("register rules: %w", err)
	}

	if _, err := graph.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	broker := notify.NewBroker()
	defer broker.Close()

	rct := reactor.New(db, store, orch, broker, logger,
		cfg.Watcher.Debounce(), cfg.Watcher.AffectedDepth)
	defer rct.Close()

	srv := mcpserver.New(store, db, orch, rct)
	logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}
