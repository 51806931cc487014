package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pricewatch/catalog-aggregator/internal/domain"
	"github.com/pricewatch/catalog-aggregator/internal/store/schema"
)

// CreateProviderInput holds data for seeding a provider
type CreateProviderInput struct {
	Name     string
	BaseURL  string
	APIKey   string
	IsActive bool
}

// CreateProductInput holds data for creating a product
type CreateProductInput struct {
	ExternalID   string
	ProviderID   string
	Name         string
	Description  string
	Price        decimal.Decimal
	Currency     string
	Availability bool
	LastUpdated  time.Time
}

// UpdateProductInput holds the full normalized field set written on every
// update, changed or not.
type UpdateProductInput struct {
	Name         string
	Description  string
	Price        decimal.Decimal
	Currency     string
	Availability bool
	LastUpdated  time.Time
}

// CreatePriceHistoryInput holds data for appending a price history row
type CreatePriceHistoryInput struct {
	ProductID string
	Price     decimal.Decimal
	Currency  string
	Timestamp time.Time
}

// ProductFilter holds filters and pagination for product listing
type ProductFilter struct {
	// Name filters by case-insensitive substring match
	Name         string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Availability *bool
	ProviderID   string
	Currency     string
	Limit        int
	Offset       int
}

// CronLogFilter holds filters and pagination for cron log listing
type CronLogFilter struct {
	Type     domain.JobType
	Status   domain.JobStatus
	Limit    int
	Offset   int
	OrderAsc bool
}

// PriceAggregates holds SQL-side price statistics over all products
type PriceAggregates struct {
	Min decimal.Decimal
	Max decimal.Decimal
	Avg decimal.Decimal
}

// Store is the persistence contract consumed by the aggregation core, the
// job runner and the read paths. Every operation is context-aware and each
// write is its own atomic unit; no transaction spans multiple entities.
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// Providers
	GetActiveProviders(ctx context.Context) ([]*schema.Provider, error)
	GetProviderByID(ctx context.Context, id string) (*schema.Provider, error)
	GetProviderByName(ctx context.Context, name string) (*schema.Provider, error)
	CreateProvider(ctx context.Context, input CreateProviderInput) (*schema.Provider, error)
	CountProviders(ctx context.Context) (int64, error)

	// Products
	GetProductByID(ctx context.Context, id string) (*schema.Product, error)
	GetProductByExternalID(ctx context.Context, externalID, providerID string) (*schema.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]*schema.Product, int64, error)
	ListStaleProducts(ctx context.Context, olderThan time.Time, limit int) ([]*schema.Product, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*schema.Product, error)
	UpdateProduct(ctx context.Context, id string, input UpdateProductInput) (int64, error)
	CountProducts(ctx context.Context, availability *bool) (int64, error)
	GetPriceAggregates(ctx context.Context) (*PriceAggregates, error)

	// Price history
	CreatePriceHistory(ctx context.Context, input CreatePriceHistoryInput) error
	ListPriceHistoryInRange(ctx context.Context, start, end time.Time) ([]*schema.PriceHistory, error)
	ListPriceHistoryByProduct(ctx context.Context, productID string, limit int) ([]*schema.PriceHistory, error)

	// Cron logs
	GetCronLog(ctx context.Context, id string) (*schema.CronLog, error)
	SaveCronLog(ctx context.Context, log *schema.CronLog) error
	ListCronLogs(ctx context.Context, filter CronLogFilter) ([]*schema.CronLog, int64, error)
}
