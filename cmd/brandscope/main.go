// Command brandscope serves the brand-visibility analysis API.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/visiblelabs/brandscope/internal/analysis"
	"github.com/visiblelabs/brandscope/internal/config"
	"github.com/visiblelabs/brandscope/internal/provider"
	"github.com/visiblelabs/brandscope/internal/server"
	"github.com/visiblelabs/brandscope/internal/storage"
	"github.com/visiblelabs/brandscope/internal/storage/sqlite"
	"github.com/visiblelabs/brandscope/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Load .env file if present (ignore errors - it's optional)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("fatal", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	shutdownTracer, err := telemetry.InitTracer("brandscope", logger)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			logger.Warn("tracer shutdown failed", slog.String("error", err.Error()))
		}
	}()

	providers, err := provider.FromConfig(cfg.Providers)
	if err != nil {
		return err
	}
	logger.Info("providers configured",
		slog.Int("count", len(providers)),
		slog.Bool("simulate", cfg.Analysis.Simulate),
	)

	var store storage.AnalysisStore
	if cfg.Storage.Path != "" {
		store, err = sqlite.New(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		logger.Info("storage ready", slog.String("path", cfg.Storage.Path))
	}

	analyzer := analysis.New(cfg.Analysis, providers, logger)

	srv := server.New(cfg.Server.Port, logger)
	handler := server.NewBrandMonitorHandler(analyzer, store, logger)
	handler.RegisterRoutes(srv.Router)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
