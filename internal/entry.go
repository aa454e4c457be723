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

	"github.com/divanvisagie/para-notes/internal/api"
	"github.com/divanvisagie/para-notes/internal/mcpserver"
	"github.com/divanvisagie/para-notes/internal/notes"
	"github.com/divanvisagie/para-notes/internal/noteservice"
	"github.com/divanvisagie/para-notes/internal/search"
	"github.com/divanvisagie/para-notes/internal/sse"
	"github.com/divanvisagie/para-notes/internal/storage"
	"github.com/divanvisagie/para-notes/internal/syncer"
	"github.com/divanvisagie/para-notes/internal/watcher"
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

	// Initialize structured JSON logger. The MCP transport owns stdout,
	// so logs go to stderr in that mode.
	logOut := os.Stdout
	if app.mcp {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("notes_root", cfg.Notes.Root),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// The notes root must exist and be readable; that is the one fatal
	// startup condition.
	store, err := storage.NewFS(cfg.Notes.Root)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	ignore := watcher.NewMatcher(cfg.Watch.Ignore)
	tree := notes.NewTree()
	docs := notes.NewStore(store)
	engine := search.NewEngine(cfg.Search.MaxResults)
	broker := sse.NewBroker(cfg.Watch.TreeThrottle())
	defer broker.Close()

	coord := syncer.New(store, tree, docs, engine, broker, ignore, logger)
	if err := coord.Bootstrap(); err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}

	// If the OS watch cannot be established, live reload degrades to
	// disabled; explicit saves still update the index synchronously.
	var fw *watcher.Watcher
	fw, err = watcher.New(store.Root(), ignore, cfg.Watch.Debounce(), logger)
	if err != nil {
		logger.Warn("live reload disabled", slog.String("error", err.Error()))
		fw = nil
	}

	svc := noteservice.NewService(store, tree, docs, engine, coord)

	g, gCtx := errgroup.WithContext(ctx)

	if fw != nil {
		g.Go(func() error {
			return fw.Run(gCtx)
		})
		g.Go(func() error {
			return coord.Run(gCtx, fw.Events())
		})
	}

	if app.mcp {
		return runMCP(gCtx, g, svc, logger)
	}

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

	var sseHandler http.Handler
	if fw != nil {
		sseHandler = broker
	}
	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, sseHandler))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

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

// runMCP serves the MCP tools on stdio while the watcher keeps the index
// fresh in the background.
func runMCP(ctx context.Context, g *errgroup.Group, svc *noteservice.Service, logger *slog.Logger) error {
	srv := mcpserver.New(svc)

	g.Go(func() error {
		logger.Info("Starting MCP server on stdio")
		return srv.ServeStdio()
	})
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	return nil
}
