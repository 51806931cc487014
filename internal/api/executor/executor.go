// Package executor holds the read-path business logic behind the REST
// handlers.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/pricewatch/catalog-aggregator/internal/aggregator"
	"github.com/pricewatch/catalog-aggregator/internal/api/dto"
	"github.com/pricewatch/catalog-aggregator/internal/changes"
	"github.com/pricewatch/catalog-aggregator/internal/domain"
	"github.com/pricewatch/catalog-aggregator/internal/store"
)

// HealthChecker probes the upstream providers.
type HealthChecker interface {
	Health(ctx context.Context) ([]aggregator.ProviderStatus, error)
}

// Executor is the interface for the API executor
//
//go:generate mockgen -source=executor.go -destination=../../mocks/api_executor.go -package=mocks -mock_names=Executor=MockAPIExecutor
type Executor interface {
	// GetProduct retrieves a single product by its internal id
	GetProduct(ctx context.Context, id string) (*dto.ProductResponse, error)

	// ListProducts retrieves products with optional filters
	ListProducts(ctx context.Context, filter store.ProductFilter) (*dto.ProductListResponse, error)

	// GetPriceHistory retrieves the price history of a product, newest first
	GetPriceHistory(ctx context.Context, productID string, limit int) (*dto.PriceHistoryResponse, error)

	// GetChanges derives price change events for a time window
	GetChanges(ctx context.Context, start, end time.Time, limit int) (*dto.ChangeListResponse, error)

	// GetStatistics summarizes the catalog
	GetStatistics(ctx context.Context) (*dto.StatisticsResponse, error)

	// ListStaleProducts lists products not refreshed since the threshold
	ListStaleProducts(ctx context.Context, olderThan time.Time, limit int) ([]dto.ProductResponse, error)

	// ListCronLogs lists job executions with optional status filter
	ListCronLogs(ctx context.Context, filter store.CronLogFilter) (*dto.CronLogListResponse, error)

	// ProviderHealth probes every active provider
	ProviderHealth(ctx context.Context) ([]aggregator.ProviderStatus, error)
}

type executorImpl struct {
	store   store.Store
	changes *changes.Query
	health  HealthChecker
}

// NewExecutor creates the API executor.
func NewExecutor(s store.Store, changeQuery *changes.Query, health HealthChecker) Executor {
	return &executorImpl{
		store:   s,
		changes: changeQuery,
		health:  health,
	}
}

func (e *executorImpl) GetProduct(ctx context.Context, id string) (*dto.ProductResponse, error) {
	product, err := e.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, nil
	}

	response := dto.MapProductToDTO(product, e.providerName(ctx, product.ProviderID, nil))
	return &response, nil
}

func (e *executorImpl) ListProducts(ctx context.Context, filter store.ProductFilter) (*dto.ProductListResponse, error) {
	products, total, err := e.store.ListProducts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	providerNames := make(map[string]string)
	items := make([]dto.ProductResponse, 0, len(products))
	for _, product := range products {
		items = append(items, dto.MapProductToDTO(product, e.providerName(ctx, product.ProviderID, providerNames)))
	}

	return &dto.ProductListResponse{
		Products: items,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}, nil
}

func (e *executorImpl) GetPriceHistory(ctx context.Context, productID string, limit int) (*dto.PriceHistoryResponse, error) {
	product, err := e.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, nil
	}

	rows, err := e.store.ListPriceHistoryByProduct(ctx, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list price history: %w", err)
	}

	history := make([]dto.PricePointResponse, 0, len(rows))
	for _, row := range rows {
		history = append(history, dto.PricePointResponse{
			Price:     row.Price,
			Currency:  row.Currency,
			Timestamp: row.Timestamp,
		})
	}

	return &dto.PriceHistoryResponse{
		ProductID: productID,
		History:   history,
	}, nil
}

func (e *executorImpl) GetChanges(ctx context.Context, start, end time.Time, limit int) (*dto.ChangeListResponse, error) {
	events, err := e.changes.ProductChanges(ctx, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to derive price changes: %w", err)
	}
	if events == nil {
		events = []domain.PriceChange{}
	}
	return &dto.ChangeListResponse{
		Changes: events,
		Start:   start,
		End:     end,
	}, nil
}

func (e *executorImpl) GetStatistics(ctx context.Context) (*dto.StatisticsResponse, error) {
	total, err := e.store.CountProducts(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	available := true
	availableCount, err := e.store.CountProducts(ctx, &available)
	if err != nil {
		return nil, fmt.Errorf("failed to count available products: %w", err)
	}

	providerCount, err := e.store.CountProviders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count providers: %w", err)
	}

	aggregates, err := e.store.GetPriceAggregates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute price aggregates: %w", err)
	}

	return &dto.StatisticsResponse{
		TotalProviders:      providerCount,
		TotalProducts:       total,
		AvailableProducts:   availableCount,
		UnavailableProducts: total - availableCount,
		MinPrice:            aggregates.Min,
		MaxPrice:            aggregates.Max,
		AvgPrice:            aggregates.Avg,
	}, nil
}

func (e *executorImpl) ListStaleProducts(ctx context.Context, olderThan time.Time, limit int) ([]dto.ProductResponse, error) {
	products, err := e.store.ListStaleProducts(ctx, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale products: %w", err)
	}

	providerNames := make(map[string]string)
	items := make([]dto.ProductResponse, 0, len(products))
	for _, product := range products {
		items = append(items, dto.MapProductToDTO(product, e.providerName(ctx, product.ProviderID, providerNames)))
	}
	return items, nil
}

func (e *executorImpl) ListCronLogs(ctx context.Context, filter store.CronLogFilter) (*dto.CronLogListResponse, error) {
	logs, total, err := e.store.ListCronLogs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list cron logs: %w", err)
	}

	items := make([]dto.CronLogResponse, 0, len(logs))
	for _, log := range logs {
		items = append(items, dto.MapCronLogToDTO(log))
	}

	return &dto.CronLogListResponse{
		Logs:   items,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

func (e *executorImpl) ProviderHealth(ctx context.Context) ([]aggregator.ProviderStatus, error) {
	return e.health.Health(ctx)
}

// providerName resolves a provider's display name, caching per call when a
// cache map is supplied. Lookup failures degrade to an empty name.
func (e *executorImpl) providerName(ctx context.Context, providerID string, cache map[string]string) string {
	if cache != nil {
		if name, ok := cache[providerID]; ok {
			return name
		}
	}

	var name string
	provider, err := e.store.GetProviderByID(ctx, providerID)
	if err == nil && provider != nil {
		name = provider.Name
	}
	if cache != nil {
		cache[providerID] = name
	}
	return name
}
