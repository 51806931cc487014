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
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pricewatch/catalog-aggregator/internal/adapter"
	"github.com/pricewatch/catalog-aggregator/internal/aggregator"
	"github.com/pricewatch/catalog-aggregator/internal/changes"
	"github.com/pricewatch/catalog-aggregator/internal/config"
	"github.com/pricewatch/catalog-aggregator/internal/cron"
	"github.com/pricewatch/catalog-aggregator/internal/feed"
	"github.com/pricewatch/catalog-aggregator/internal/logger"
	"github.com/pricewatch/catalog-aggregator/internal/providers"
	"github.com/pricewatch/catalog-aggregator/internal/providers/jetstream"
	"github.com/pricewatch/catalog-aggregator/internal/providers/vendors/ecommerce"
	"github.com/pricewatch/catalog-aggregator/internal/providers/vendors/events"
	"github.com/pricewatch/catalog-aggregator/internal/providers/vendors/ticketing"
	"github.com/pricewatch/catalog-aggregator/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAggregatorConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "aggregator",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting aggregator")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Initialize store
	dataStore := store.NewPGStore(db)

	// Initialize adapters
	httpClient := adapter.NewHTTPClient(cfg.HTTPTimeout)
	jsonAdapter := adapter.NewJSON()
	clock := adapter.NewClock()

	// Register provider adapters
	registry := providers.NewRegistry()
	registry.Register(ecommerce.PROVIDER_NAME, ecommerce.NewFactory(httpClient, jsonAdapter))
	registry.Register(ticketing.PROVIDER_NAME, ticketing.NewFactory(httpClient, jsonAdapter))
	registry.Register(events.PROVIDER_NAME, events.NewFactory(httpClient, jsonAdapter))

	// Initialize aggregation engine and job runner
	engine := aggregator.NewEngine(dataStore, registry, cfg.Worker.PoolSize)
	runner := cron.NewRunner(dataStore, engine, jsonAdapter, clock, cfg.Cron.Cadence)
	scheduler := cron.NewScheduler(runner, clock, cfg.Cron.Cadence)

	// Start the scheduler in a goroutine
	errChan := make(chan error, 2)
	go func() {
		if err := scheduler.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	// Publish the change feed to JetStream when NATS is configured
	if cfg.NATS.URL != "" {
		sink, err := jetstream.NewSink(jetstream.Config{
			URL:            cfg.NATS.URL,
			SubjectPrefix:  cfg.NATS.SubjectPrefix,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		}, adapter.NewNatsJetStream(), jsonAdapter)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to connect to NATS", zap.Error(err), zap.String("url", cfg.NATS.URL))
		}
		defer sink.Close()

		publisher := feed.NewPublisher(changes.NewQuery(dataStore), clock, feed.Config{
			PollInterval: cfg.Feed.PollInterval,
			Window:       cfg.Feed.Window,
			Limit:        cfg.Feed.Limit,
		})
		go func() {
			if err := publisher.Run(ctx, sink); err != nil {
				errChan <- err
			}
		}()
		logger.InfoCtx(ctx, "Publishing change feed to JetStream",
			zap.String("url", cfg.NATS.URL),
			zap.String("subject_prefix", cfg.NATS.SubjectPrefix),
		)
	}

	// Wait for interrupt signal or error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		logger.ErrorCtx(ctx, err)
	}

	// Cancel context to stop the feed loop
	cancel()

	// Give the scheduler time to shut down gracefully
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.ErrorCtx(ctx, err)
	}

	logger.InfoCtx(ctx, "Aggregator stopped")
}
