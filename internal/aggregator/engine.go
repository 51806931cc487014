// Package aggregator implements the core fan-out run: fetch every active
// provider concurrently, normalize, validate and persist each record, and
// append price history on creation and on observed price changes.
package aggregator

import (
	"context"
	"errors"
	"fmt"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/pricewatch/catalog-aggregator/internal/domain"
	"github.com/pricewatch/catalog-aggregator/internal/logger"
	"github.com/pricewatch/catalog-aggregator/internal/providers"
	"github.com/pricewatch/catalog-aggregator/internal/store"
	"github.com/pricewatch/catalog-aggregator/internal/store/schema"
)

// Engine drives one aggregation pass over all active providers. Provider
// failures are isolated: one broken upstream never fails the run.
type Engine struct {
	store    store.Store
	registry *providers.Registry
	workers  int
}

// ProviderStatus is one entry of a liveness sweep over active providers.
type ProviderStatus struct {
	ProviderID   string `json:"provider_id"`
	ProviderName string `json:"provider_name"`
	Healthy      bool   `json:"healthy"`
}

type providerResult struct {
	provider string
	fetched  int
	stored   int
	updated  int
	skipped  int
	err      error
}

// NewEngine creates an aggregation engine backed by the given store and
// adapter registry. workers bounds provider-level concurrency.
func NewEngine(s store.Store, registry *providers.Registry, workers int) *Engine {
	if workers <= 0 {
		workers = 3
	}
	return &Engine{
		store:    s,
		registry: registry,
		workers:  workers,
	}
}

// AggregateAll runs one aggregation pass. It returns an error only when the
// provider list itself cannot be read; everything below that level is
// logged and absorbed.
func (e *Engine) AggregateAll(ctx context.Context) error {
	activeProviders, err := e.store.GetActiveProviders(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to load active providers: %w", domain.ErrAggregation, err)
	}
	if len(activeProviders) == 0 {
		logger.WarnCtx(ctx, "No active providers, nothing to aggregate")
		return nil
	}

	pool := pond.NewPool(e.workers)
	results := make([]providerResult, len(activeProviders))
	for i, provider := range activeProviders {
		i, provider := i, provider
		pool.Submit(func() {
			results[i] = e.aggregateProvider(ctx, provider)
		})
	}
	pool.StopAndWait()

	var failed int
	for _, r := range results {
		if r.err != nil {
			failed++
		}
	}
	logger.InfoCtx(ctx, "Aggregation run finished",
		zap.Int("providers", len(activeProviders)),
		zap.Int("failed_providers", failed),
	)
	return nil
}

// Health probes every active provider through its adapter and reports one
// status per provider. Providers without a registered adapter report
// unhealthy.
func (e *Engine) Health(ctx context.Context) ([]ProviderStatus, error) {
	activeProviders, err := e.store.GetActiveProviders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active providers: %w", err)
	}

	statuses := make([]ProviderStatus, 0, len(activeProviders))
	for _, provider := range activeProviders {
		status := ProviderStatus{
			ProviderID:   provider.ID,
			ProviderName: provider.Name,
		}
		if adapter, ok := e.registry.Resolve(provider); ok {
			status.Healthy = adapter.HealthCheck(ctx)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func (e *Engine) aggregateProvider(ctx context.Context, provider *schema.Provider) providerResult {
	result := providerResult{provider: provider.Name}

	adapter, ok := e.registry.Resolve(provider)
	if !ok {
		logger.WarnCtx(ctx, "No adapter registered for provider, skipping",
			zap.String("provider", provider.Name),
		)
		return result
	}

	records, err := adapter.Fetch(ctx)
	if err != nil {
		logger.ErrorCtx(ctx, err, zap.String("provider", provider.Name))
		result.err = err
		return result
	}
	result.fetched = len(records)

	for _, record := range records {
		if err := record.Validate(); err != nil {
			logger.WarnCtx(ctx, "Skipping invalid record",
				zap.String("provider", provider.Name),
				zap.String("external_id", record.ExternalID),
				zap.Error(err),
			)
			result.skipped++
			continue
		}

		created, err := e.storeProduct(ctx, record)
		if err != nil {
			logger.ErrorCtx(ctx, err,
				zap.String("provider", provider.Name),
				zap.String("external_id", record.ExternalID),
			)
			result.skipped++
			continue
		}
		if created {
			result.stored++
		} else {
			result.updated++
		}
	}

	logger.InfoCtx(ctx, "Provider aggregated",
		zap.String("provider", provider.Name),
		zap.Int("fetched", result.fetched),
		zap.Int("created", result.stored),
		zap.Int("updated", result.updated),
		zap.Int("skipped", result.skipped),
	)
	return result
}

// storeProduct upserts one normalized record. New products get an initial
// price history row; existing products get one only when the price moved.
func (e *Engine) storeProduct(ctx context.Context, record domain.NormalizedProduct) (bool, error) {
	existing, err := e.store.GetProductByExternalID(ctx, record.ExternalID, record.ProviderID)
	if err != nil {
		return false, fmt.Errorf("failed to look up product %q: %w", record.ExternalID, err)
	}

	if existing == nil {
		product, err := e.store.CreateProduct(ctx, store.CreateProductInput{
			ExternalID:   record.ExternalID,
			ProviderID:   record.ProviderID,
			Name:         record.Name,
			Description:  record.Description,
			Price:        record.Price,
			Currency:     record.Currency,
			Availability: record.Availability,
			LastUpdated:  record.LastUpdated,
		})
		if err != nil {
			return false, fmt.Errorf("failed to create product %q: %w", record.ExternalID, err)
		}
		if err := e.store.CreatePriceHistory(ctx, store.CreatePriceHistoryInput{
			ProductID: product.ID,
			Price:     record.Price,
			Currency:  record.Currency,
			Timestamp: record.LastUpdated,
		}); err != nil {
			return false, fmt.Errorf("failed to record initial price for %q: %w", record.ExternalID, err)
		}
		return true, nil
	}

	// only price and availability movement counts as a change; metadata
	// drift alone does not trigger a write
	priceChanged := !existing.Price.Equal(record.Price)
	if !priceChanged && existing.Availability == record.Availability {
		return false, nil
	}

	rows, err := e.store.UpdateProduct(ctx, existing.ID, store.UpdateProductInput{
		Name:         record.Name,
		Description:  record.Description,
		Price:        record.Price,
		Currency:     record.Currency,
		Availability: record.Availability,
		LastUpdated:  record.LastUpdated,
	})
	if err != nil {
		return false, fmt.Errorf("failed to update product %q: %w", record.ExternalID, err)
	}
	if rows == 0 {
		return false, errors.New("product vanished during update: " + existing.ID)
	}

	if priceChanged {
		if err := e.store.CreatePriceHistory(ctx, store.CreatePriceHistoryInput{
			ProductID: existing.ID,
			Price:     record.Price,
			Currency:  record.Currency,
			Timestamp: record.LastUpdated,
		}); err != nil {
			return false, fmt.Errorf("failed to record price change for %q: %w", record.ExternalID, err)
		}
	}
	return false, nil
}
