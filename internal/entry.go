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

	"github.com/starford/dagaz/internal/api"
	"github.com/starford/dagaz/internal/chat"
	"github.com/starford/dagaz/internal/mcpserver"
	"github.com/starford/dagaz/internal/proccache"
	"github.com/starford/dagaz/internal/settings"
	"github.com/starford/dagaz/internal/skills"
	"github.com/starford/dagaz/internal/sse"
	"github.com/starford/dagaz/internal/state"
	"github.com/starford/dagaz/internal/sysinfo"
	"github.com/starford/dagaz/internal/taskstore"
	"github.com/starford/dagaz/internal/usage"
	"github.com/starford/dagaz/internal/watch"
	"github.com/starford/dagaz/internal/workspace"
)

// buildDeps wires one store per backing file plus the scanners.
func buildDeps(cfg *Config) (api.Deps, *state.Dir, error) {
	stateDir, err := state.New(cfg.Workspace.StatePath())
	if err != nil {
		return api.Deps{}, nil, fmt.Errorf("init state dir: %w", err)
	}

	scanner, err := workspace.New(cfg.Workspace.Path)
	if err != nil {
		return api.Deps{}, nil, fmt.Errorf("init workspace: %w", err)
	}

	settingsStore := settings.New(stateDir, cfg.Workspace.Path)
	transcript := chat.NewTranscript(stateDir)

	var backend chat.Backend
	if cfg.Chat.GatewayConfigured() {
		backend = &chat.GatewayBackend{
			URL:     cfg.Chat.GatewayURL,
			Token:   cfg.Chat.GatewayToken,
			Model:   cfg.Chat.Model,
			AgentID: cfg.Chat.AgentID,
		}
	} else {
		backend = &chat.CLIBackend{
			Command: cfg.Chat.Command,
			Args:    cfg.Chat.Args,
			Dir:     cfg.Workspace.Path,
		}
	}

	deps := api.Deps{
		Tasks:     taskstore.New(stateDir),
		Workspace: scanner,
		Skills: skills.New(skills.Options{
			CustomPath: cfg.Skills.CustomPath,
			SystemPath: cfg.Skills.SystemPath,
			Packages:   cfg.Skills.Packages,
		}),
		Processes: proccache.New(stateDir),
		Settings:  settingsStore,
		Relay:     chat.NewRelay(backend, transcript),
		Sampler:   sysinfo.New(),
		Usage:     usage.New(cfg.Usage.StatsPath, cfg.Usage.Plan),
	}
	return deps, stateDir, nil
}

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

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("state_dir", cfg.Workspace.StatePath()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure the workspace exists.
	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return fmt.Errorf("create workspace dir: %w", err)
	}

	deps, stateDir, err := buildDeps(cfg)
	if err != nil {
		return err
	}

	// Record startup in the settings file (creates it on first run).
	if _, err := deps.Settings.Get(); err != nil {
		logger.Warn("settings init failed", slog.String("error", err.Error()))
	}

	// SSE broker, fed by state-file changes.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(deps, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	// Watch the state directory: external writes (agent runtime updating
	// the process cache, manual edits) surface as SSE events, and settings
	// edits refresh the in-memory copy.
	g.Go(func() error {
		return watch.Run(gCtx, stateDir, logger, func(resource string) {
			if resource == "settings" {
				if _, err := deps.Settings.Reload(); err != nil {
					logger.Warn("settings reload failed", slog.String("error", err.Error()))
				}
			}
			broker.PublishChange(resource)
		})
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

// RunMCP starts the MCP stdio server over the same stores the HTTP API
// uses. Intended to be launched by the agent runtime as a tool provider.
func RunMCP(cfg *Config) error {
	deps, _, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	srv := mcpserver.New(deps.Tasks, deps.Workspace, deps.Skills, deps.Settings)
	return srv.ServeStdio()
}
