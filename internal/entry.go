// Package internal provides the application initialization and runtime logic.
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

	"github.com/benoitkugler/svgtile/internal/server"
	"github.com/benoitkugler/svgtile/internal/watch"
	"github.com/benoitkugler/svgtile/svgdoc"
	"github.com/benoitkugler/svgtile/svgtile"
)

// Run starts the application with the given options.
// In split mode, an incomplete run returns an error wrapping svgtile.ErrPartial.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{mode: ModeSplit, logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	if app.input == "" {
		return fmt.Errorf("%w: missing input file", svgtile.ErrInvalidConfig)
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("mode", string(app.mode)),
		slog.String("input", app.input),
		slog.Float64("tile_width", cfg.Split.TileWidth),
		slog.Float64("tile_height", cfg.Split.TileHeight),
		slog.Float64("overlap", cfg.Split.Overlap),
		slog.String("log_level", cfg.App.LogLevel.String()))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch app.mode {
	case ModeSplit:
		return runSplit(ctx, cfg, app.input, logger)
	case ModeWatch:
		return runWatch(ctx, cfg, app.input, logger)
	case ModeServe:
		return runServe(ctx, cfg, app.input, logger)
	default:
		return fmt.Errorf("unknown mode %q", app.mode)
	}
}

func runSplit(ctx context.Context, cfg *Config, input string, logger *slog.Logger) error {
	rc, err := cfg.Split.RunConfig(input, logger)
	if err != nil {
		return fmt.Errorf("%w: %s", svgtile.ErrInvalidConfig, err)
	}
	report, err := svgtile.Run(ctx, rc)
	if report != nil {
		logger.Info("Split finished",
			slog.String("run_id", report.RunID),
			slog.Int("tiles", len(report.Tiles)),
			slog.Int("warnings", len(report.Warnings)),
			slog.Int("failures", len(report.Failures)),
			slog.String("output", rc.OutputDir))
	}
	return err
}

func runWatch(ctx context.Context, cfg *Config, input string, logger *slog.Logger) error {
	w, err := watch.New(input, watch.DefaultDebounce, logger)
	if err != nil {
		return fmt.Errorf("init watcher: %w", err)
	}

	// a failing split does not stop the watch: the file may be fixed later
	if err := runSplit(ctx, cfg, input, logger); err != nil {
		if errors.Is(err, svgtile.ErrInvalidConfig) {
			return err
		}
		logger.Warn("Initial split failed", slog.String("error", err.Error()))
	}

	return w.Run(ctx, func(ctx context.Context) error {
		return runSplit(ctx, cfg, input, logger)
	})
}

func runServe(ctx context.Context, cfg *Config, input string, logger *slog.Logger) error {
	rc, err := cfg.Split.RunConfig(input, logger)
	if err != nil {
		return fmt.Errorf("%w: %s", svgtile.ErrInvalidConfig, err)
	}
	doc, err := svgdoc.ReadFile(input, rc.ErrorMode)
	if err != nil {
		return fmt.Errorf("reading %s: %w", input, err)
	}
	tiles, err := server.NewFromDocument(doc, rc.TileWidth, rc.TileHeight, rc.Overlap,
		svgtile.Options{Policy: rc.Policy, Logger: logger}, cfg.App.HTTP.CacheSize)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: newRouter(tiles),
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown.
	g.Go(func() error {
		<-gCtx.Done()
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

func newRouter(tiles *server.Server) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	tiles.Routes(r)
	return r
}
