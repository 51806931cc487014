package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pricewatch/catalog-aggregator/internal/config"
	"github.com/pricewatch/catalog-aggregator/internal/logger"
	"github.com/pricewatch/catalog-aggregator/internal/providers/vendors/ecommerce"
	"github.com/pricewatch/catalog-aggregator/internal/providers/vendors/events"
	"github.com/pricewatch/catalog-aggregator/internal/providers/vendors/ticketing"
	"github.com/pricewatch/catalog-aggregator/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
	seed       = flag.Bool("seed", true, "Seed the bootstrap provider rows after migrating")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadMigrateConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx := context.Background()

	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "migrate",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}

	// Apply schema
	if err := store.Migrate(db); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate schema", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Schema migrated")

	if !*seed {
		return
	}

	// Seed the bootstrap providers
	dataStore := store.NewPGStore(db)
	seeds := []store.SeedProvider{
		{Name: ecommerce.PROVIDER_NAME, BaseURL: cfg.Providers.Ecommerce.BaseURL, APIKey: cfg.Providers.Ecommerce.APIKey},
		{Name: ticketing.PROVIDER_NAME, BaseURL: cfg.Providers.Ticketing.BaseURL, APIKey: cfg.Providers.Ticketing.APIKey},
		{Name: events.PROVIDER_NAME, BaseURL: cfg.Providers.Events.BaseURL, APIKey: cfg.Providers.Events.APIKey},
	}
	if err := store.SeedProviders(ctx, dataStore, seeds); err != nil {
		logger.FatalCtx(ctx, "Failed to seed providers", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Providers seeded", zap.Int("count", len(seeds)))
}
