package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/beanlab/bean-curator/internal/adapter"
	"github.com/beanlab/bean-curator/internal/config"
	"github.com/beanlab/bean-curator/internal/enrich"
	"github.com/beanlab/bean-curator/internal/inference"
	"github.com/beanlab/bean-curator/internal/logger"
	"github.com/beanlab/bean-curator/internal/ratelimit"
	"github.com/beanlab/bean-curator/internal/report"
	"github.com/beanlab/bean-curator/internal/scoring"
	"github.com/beanlab/bean-curator/internal/selection"
	"github.com/beanlab/bean-curator/internal/source"
	"github.com/beanlab/bean-curator/internal/store"
	"github.com/beanlab/bean-curator/internal/syncer"
	"github.com/beanlab/bean-curator/internal/worker"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
	once       = flag.Bool("once", false, "Run the stages once and exit instead of looping")
	stage      = flag.String("stage", "", "Stage to run with -once (sync, enrich, curate); empty runs all in order")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadCuratorWorkerConfig(*configFile, *envPath)
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
			"service": "curator-worker",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting bean curator worker")

	// Initialize store
	dataStore := openStore(ctx, cfg.Store, cfg.Database)

	// Initialize adapters
	clock := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()
	jcsAdapter := adapter.NewJCS()
	storefrontClient := adapter.NewHTTPClient(cfg.Source.HTTPTimeout)

	// Storefront sources
	limiter, err := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerSecond: cfg.Source.RequestsPerSecond,
		Burst:             cfg.Source.Burst,
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create rate limiter", zap.Error(err))
	}
	sourceRegistry := source.NewRegistry()
	sourceRegistry.Register(source.PlatformShopify, source.NewShopifyAdapter(storefrontClient, limiter))

	filter, err := source.LoadFilter(cfg.Source.FilterPath)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to load product filter",
			zap.Error(err),
			zap.String("path", cfg.Source.FilterPath))
	}
	if cfg.Source.FilterPath == "" {
		logger.WarnCtx(ctx, "Product filter path not configured, using built-in keywords")
	}
	fetcher := source.NewFetcher(sourceRegistry, filter, cfg.Source.Worker.WorkerPoolSize, cfg.Source.Worker.WorkerQueueSize)

	shops := make([]source.Shop, 0, len(cfg.Source.Shops))
	for _, s := range cfg.Source.Shops {
		shops = append(shops, source.Shop{
			Name:     s.Name,
			Platform: s.Platform,
			BaseURL:  s.BaseURL,
			Currency: s.Currency,
		})
	}

	// Enrichment
	enrichCompleter := inference.NewAnthropicCompleter(adapter.NewHTTPClient(cfg.Enrich.Model.Timeout), jsonAdapter, clientConfig(cfg.Enrich.Model))
	inferencer := inference.NewInferencer(enrichCompleter, jsonAdapter, jcsAdapter)
	engine := enrich.NewEngine(dataStore, inferencer, clock, enrich.Config{
		MaxAttempts:       cfg.Enrich.MaxAttempts,
		RateLimitCooldown: cfg.Enrich.RateLimitCooldown,
		Pacing:            cfg.Enrich.Pacing,
		BatchSize:         cfg.Enrich.BatchSize,
	})

	// Scoring and selection
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

	// Report generation and publishing
	renderer, err := report.NewTemplateRenderer(cfg.Report.FallbackTemplate)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to load fallback template",
			zap.Error(err),
			zap.String("path", cfg.Report.FallbackTemplate))
	}
	reportCompleter := inference.NewAnthropicCompleter(adapter.NewHTTPClient(cfg.Report.Model.Timeout), jsonAdapter, clientConfig(cfg.Report.Model))
	generator := report.NewGenerator(reportCompleter, jsonAdapter, renderer, report.GeneratorConfig{
		Languages:       cfg.Report.Languages,
		BreakerFailures: cfg.Report.BreakerFailures,
		BreakerOpenTime: cfg.Report.BreakerOpenTime,
	})

	publisher, err := report.NewNATSPublisher(ctx, report.PublisherConfig{
		URL:            cfg.NATS.URL,
		StreamName:     cfg.NATS.StreamName,
		SubjectPrefix:  cfg.NATS.SubjectPrefix,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		ConnectionName: cfg.NATS.ConnectionName,
	}, adapter.NewNatsJetStream(), jsonAdapter, jcsAdapter)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create report publisher", zap.Error(err))
	}
	defer publisher.Close()
	logger.InfoCtx(ctx, "Connected to NATS", zap.String("url", cfg.NATS.URL), zap.String("stream", cfg.NATS.StreamName))

	curator := report.NewCurator(dataStore, selector, generator, publisher, clock, cfg.Selection.Mode)

	runner := worker.NewRunner(worker.Config{
		Shops:          shops,
		SyncInterval:   cfg.Schedule.SyncInterval,
		EnrichInterval: cfg.Schedule.EnrichInterval,
		CurateInterval: cfg.Schedule.CurateInterval,
	}, fetcher, syncer.NewSyncer(dataStore, clock), engine, curator, clock)

	if *once {
		if err := runOnce(ctx, runner, *stage); err != nil {
			logger.ErrorCtx(ctx, err, zap.String("component", runner.Name()))
			logger.Flush(2 * time.Second)
			os.Exit(1)
		}
		logger.InfoCtx(ctx, "Worker finished single run")
		return
	}

	// Expose metrics
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddress,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.InfoCtx(ctx, "Serving metrics", zap.String("address", cfg.MetricsAddress))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	// Start the scheduler loop in a goroutine
	go func() {
		if err := runner.Start(ctx); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the worker
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "worker"))
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := runner.Stop(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err, zap.String("component", runner.Name()))
	}
	cancel()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err, zap.String("component", "metrics"))
	}

	logger.Info("Curator worker stopped")
}

// runOnce runs a single stage, or every stage in order when name is empty
func runOnce(ctx context.Context, runner *worker.Runner, name string) error {
	if name != "" {
		s, err := worker.ParseStage(name)
		if err != nil {
			return err
		}
		return runner.RunOnce(ctx, s)
	}

	for _, s := range worker.Stages {
		if err := runner.RunOnce(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// openStore builds the catalog store selected by the configured driver
func openStore(ctx context.Context, storeCfg config.StoreConfig, dbCfg config.DatabaseConfig) store.Store {
	if storeCfg.Driver == "csv" {
		st, err := store.NewCSVStore(storeCfg.CSVPath, adapter.NewFileSystem())
		if err != nil {
			logger.FatalCtx(ctx, "Failed to open CSV catalog", zap.Error(err), zap.String("path", storeCfg.CSVPath))
		}
		logger.InfoCtx(ctx, "Opened CSV catalog", zap.String("path", storeCfg.CSVPath))
		return st
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(dbCfg.DSN()), store.GormConfig())
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("host", dbCfg.Host))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, dbCfg.MaxOpenConns, dbCfg.MaxIdleConns, dbCfg.ConnMaxLifetime, dbCfg.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", dbCfg.MaxOpenConns),
		zap.Int("max_idle_conns", dbCfg.MaxIdleConns),
	)

	return store.NewPGStore(db)
}

func clientConfig(m config.ModelConfig) inference.ClientConfig {
	return inference.ClientConfig{
		Endpoint:   m.Endpoint,
		Model:      m.Model,
		APIKey:     m.APIKey,
		APIVersion: m.APIVersion,
		MaxTokens:  m.MaxTokens,
	}
}
