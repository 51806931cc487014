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
	"github.com/pricewatch/catalog-aggregator/internal/api/middleware"
	"github.com/pricewatch/catalog-aggregator/internal/api/server"
	"github.com/pricewatch/catalog-aggregator/internal/config"
	"github.com/pricewatch/catalog-aggregator/internal/feed"
	"github.com/pricewatch/catalog-aggregator/internal/logger"
	"github.com/pricewatch/catalog-aggregator/internal/providers"
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
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "api",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting API server")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}

	dataStore := store.NewPGStore(db)

	// Provider adapters back the health probes behind /providers/health
	httpClient := adapter.NewHTTPClient(10 * time.Second)
	jsonAdapter := adapter.NewJSON()
	registry := providers.NewRegistry()
	registry.Register(ecommerce.PROVIDER_NAME, ecommerce.NewFactory(httpClient, jsonAdapter))
	registry.Register(ticketing.PROVIDER_NAME, ticketing.NewFactory(httpClient, jsonAdapter))
	registry.Register(events.PROVIDER_NAME, events.NewFactory(httpClient, jsonAdapter))
	engine := aggregator.NewEngine(dataStore, registry, 0)

	srv := server.New(server.Config{
		Debug:       cfg.Debug,
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		IdleTimeout: time.Duration(cfg.Server.IdleTimeout) * time.Second,
		Auth: middleware.AuthConfig{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			APIKeys:      cfg.Auth.APIKeys,
		},
		StaleThreshold: cfg.StaleThreshold,
		Feed: feed.Config{
			PollInterval: cfg.Feed.PollInterval,
			Window:       cfg.Feed.Window,
			Limit:        cfg.Feed.Limit,
		},
	}, dataStore, engine)

	// Start the server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		logger.ErrorCtx(ctx, err)
	}

	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCtx(ctx, err)
	}

	logger.InfoCtx(ctx, "API server stopped")
}
