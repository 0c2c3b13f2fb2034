package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/beanlab/bean-curator/internal/adapter"
	"github.com/beanlab/bean-curator/internal/api/middleware"
	"github.com/beanlab/bean-curator/internal/api/server"
	"github.com/beanlab/bean-curator/internal/api/shared/executor"
	"github.com/beanlab/bean-curator/internal/config"
	"github.com/beanlab/bean-curator/internal/logger"
	"github.com/beanlab/bean-curator/internal/scoring"
	"github.com/beanlab/bean-curator/internal/selection"
	"github.com/beanlab/bean-curator/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "api-server",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting bean curator API")

	// Initialize store
	var dataStore store.Store
	if cfg.Store.Driver == "csv" {
		dataStore, err = store.NewCSVStore(cfg.Store.CSVPath, adapter.NewFileSystem())
		if err != nil {
			logger.FatalCtx(ctx, "Failed to open CSV catalog", zap.Error(err), zap.String("path", cfg.Store.CSVPath))
		}
		logger.InfoCtx(ctx, "Opened CSV catalog", zap.String("path", cfg.Store.CSVPath))
	} else {
		db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), store.GormConfig())
		if err != nil {
			logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
		}

		// Configure connection pool
		if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
			logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
		}
		logger.InfoCtx(ctx, "Connected to database",
			zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
			zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
		)
		dataStore = store.NewPGStore(db)
	}

	// Live scoring uses the same weights and windows as the worker
	scorer := scoring.NewScorer(scoring.Weights{
		Quality:     cfg.Scoring.Weights.Quality,
		Seasonality: cfg.Scoring.Weights.Seasonality,
		Value:       cfg.Scoring.Weights.Value,
		Versatility: cfg.Scoring.Weights.Versatility,
	})
	selector := selection.NewSelector(scorer, selection.Config{
		ShortlistSize:   cfg.Selection.ShortlistSize,
		PicksPerBucket:  cfg.Selection.PicksPerBucket,
		FreshnessWindow: cfg.Selection.FreshnessWindow(),
		CooldownWindow:  cfg.Selection.CooldownWindow(),
	})
	exec := executor.NewExecutor(dataStore, scorer, selector, adapter.NewClock())

	// Create server config
	serverConfig := server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		Auth: middleware.AuthConfig{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			APIKeys:      cfg.Auth.APIKeys,
		},
	}

	// Create and start server
	srv := server.New(serverConfig, exec)

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")

	// Shutdown server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("API server stopped")
}
