package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/config"
	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/core"
	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/logging"
	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/registry"
	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/repository"
	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/storage"
	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()
	repo, err := repository.Open(ctx, cfg.Database.URL, repository.PoolConfig{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	}, slog.Default())
	if err != nil {
		slog.Error("failed to open dataset repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	var store storage.ContentStore
	if cfg.Storage.IPFSURL == "" {
		slog.Warn("IPFS_API_URL not set, keeping dataset content in memory")
		store = storage.NewMemory()
	} else {
		store = storage.NewIPFS(cfg.Storage.IPFSURL, cfg.Storage.Timeout,
			storage.WithGateway(cfg.Storage.GatewayURL),
			storage.WithLogger(slog.Default()),
		)
		slog.Info("using IPFS content store", "api", cfg.Storage.IPFSURL)
	}

	service, err := core.NewService(cfg, repo, store, registry.NewLedger())
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(service, cfg)

	// Cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	if cfg.Publish.Enabled {
		go service.StartPublishScheduler(jobCtx, core.PublishConfig{
			Interval:    cfg.Publish.Interval,
			BatchSize:   cfg.Publish.BatchSize,
			MaxAttempts: cfg.Publish.MaxAttempts,
		})
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.UploadLimiterStatus(); status.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", status.Active)
			if err := service.WaitForUploads(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			} else {
				slog.Info("all uploads completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
