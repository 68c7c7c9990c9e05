package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"formulary/internal/api"
	"formulary/internal/config"
	"formulary/internal/domain"
	"formulary/internal/export"
	"formulary/internal/images"
	"formulary/internal/monitoring"
	"formulary/internal/storage"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("could not load config", zap.Error(err))
	}

	// Initialize Storage Layer
	pgStore, err := storage.NewPostgresStore(cfg.PostgresURL)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pgStore.Close()

	// Initialize Monitoring
	metrics := monitoring.NewMetrics()

	// Initialize Export Pipeline
	pipeline := images.NewPipeline(images.Config{
		Workers:   cfg.FetchWorkers,
		Timeout:   time.Duration(cfg.FetchTimeout) * time.Second,
		MaxWidth:  cfg.ImageMaxWidth,
		MaxHeight: cfg.ImageMaxHeight,
		Quality:   cfg.ImageQuality,
	}, metrics, logger)

	remap := domain.HostRemap{Source: cfg.AssetHostSource, Target: cfg.AssetHostTarget}
	exporter := export.NewService(pgStore, pipeline, remap, metrics, logger)

	// Initialize API Server
	server := api.NewServer(cfg, exporter, pgStore, metrics, logger)

	// Graceful Shutdown
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("could not start server", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("port", cfg.ServerPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
