package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pricewatch/catalog-aggregator/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to reasonable defaults:
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access underlying sql.DB: %w", err)
	}

	if maxOpenConns <= 0 {
		maxOpenConns = 20
	}
	if maxIdleConns <= 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime <= 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime <= 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// Migrate applies the schema for all catalog tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.Provider{},
		&schema.Product{},
		&schema.PriceHistory{},
		&schema.CronLog{},
	)
}

// GetActiveProviders retrieves all providers taking part in aggregation
func (s *pgStore) GetActiveProviders(ctx context.Context) ([]*schema.Provider, error) {
	var providers []*schema.Provider
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&providers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get active providers: %w", err)
	}
	return providers, nil
}

// GetProviderByID retrieves a provider by its internal ID
func (s *pgStore) GetProviderByID(ctx context.Context, id string) (*schema.Provider, error) {
	var provider schema.Provider
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&provider).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	return &provider, nil
}

// GetProviderByName retrieves a provider by its unique dispatch name
func (s *pgStore) GetProviderByName(ctx context.Context, name string) (*schema.Provider, error) {
	var provider schema.Provider
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&provider).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get provider by name: %w", err)
	}
	return &provider, nil
}

// CreateProvider creates a provider, leaving an existing row with the same
// name untouched (seeding is idempotent).
func (s *pgStore) CreateProvider(ctx context.Context, input CreateProviderInput) (*schema.Provider, error) {
	provider := schema.Provider{
		ID:       uuid.NewString(),
		Name:     input.Name,
		BaseURL:  input.BaseURL,
		APIKey:   input.APIKey,
		IsActive: input.IsActive,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&provider).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	// Re-read so the caller always sees the persisted row, conflict or not.
	return s.GetProviderByName(ctx, input.Name)
}

// CountProviders returns the total number of providers
func (s *pgStore) CountProviders(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&schema.Provider{}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count providers: %w", err)
	}
	return count, nil
}

// GetProductByID retrieves a product by its internal ID
func (s *pgStore) GetProductByID(ctx context.Context, id string) (*schema.Product, error) {
	var product schema.Product
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// GetProductByExternalID retrieves a product by its logical identity pair
func (s *pgStore) GetProductByExternalID(ctx context.Context, externalID, providerID string) (*schema.Product, error) {
	var product schema.Product
	err := s.db.WithContext(ctx).
		Where("external_id = ? AND provider_id = ?", externalID, providerID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product by external id: %w", err)
	}
	return &product, nil
}

// ListProducts retrieves products matching the filter with a total count
func (s *pgStore) ListProducts(ctx context.Context, filter ProductFilter) ([]*schema.Product, int64, error) {
	query := s.db.WithContext(ctx).Model(&schema.Product{})

	if filter.Name != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Name+"%")
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}
	if filter.Availability != nil {
		query = query.Where("availability = ?", *filter.Availability)
	}
	if filter.ProviderID != "" {
		query = query.Where("provider_id = ?", filter.ProviderID)
	}
	if filter.Currency != "" {
		query = query.Where("currency = ?", filter.Currency)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	var products []*schema.Product
	err := query.
		Order("last_updated DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	return products, total, nil
}

// ListStaleProducts retrieves products not updated since olderThan
func (s *pgStore) ListStaleProducts(ctx context.Context, olderThan time.Time, limit int) ([]*schema.Product, error) {
	if limit <= 0 {
		limit = 1000
	}

	var products []*schema.Product
	err := s.db.WithContext(ctx).
		Where("last_updated < ?", olderThan).
		Order("last_updated ASC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale products: %w", err)
	}
	return products, nil
}

// CreateProduct creates a product. If a concurrent run already created the
// same (external_id, provider_id) pair, the conflict falls back to an
// update of the normalized fields instead of failing.
func (s *pgStore) CreateProduct(ctx context.Context, input CreateProductInput) (*schema.Product, error) {
	product := schema.Product{
		ID:           uuid.NewString(),
		ExternalID:   input.ExternalID,
		ProviderID:   input.ProviderID,
		Name:         input.Name,
		Description:  input.Description,
		Price:        input.Price,
		Currency:     input.Currency,
		Availability: input.Availability,
		LastUpdated:  input.LastUpdated,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}, {Name: "provider_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "price", "currency", "availability", "last_updated", "updated_at"}),
	}).Clauses(clause.Returning{}).Create(&product).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return &product, nil
}

// UpdateProduct writes the full normalized field set and returns the number
// of affected rows
func (s *pgStore) UpdateProduct(ctx context.Context, id string, input UpdateProductInput) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&schema.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"name":         input.Name,
			"description":  input.Description,
			"price":        input.Price,
			"currency":     input.Currency,
			"availability": input.Availability,
			"last_updated": input.LastUpdated,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update product: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// CountProducts counts products, optionally split by availability
func (s *pgStore) CountProducts(ctx context.Context, availability *bool) (int64, error) {
	query := s.db.WithContext(ctx).Model(&schema.Product{})
	if availability != nil {
		query = query.Where("availability = ?", *availability)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// GetPriceAggregates computes min/max/avg price across all products
func (s *pgStore) GetPriceAggregates(ctx context.Context) (*PriceAggregates, error) {
	var agg PriceAggregates
	err := s.db.WithContext(ctx).
		Model(&schema.Product{}).
		Select("COALESCE(MIN(price), 0) AS min, COALESCE(MAX(price), 0) AS max, COALESCE(ROUND(AVG(price), 2), 0) AS avg").
		Scan(&agg).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute price aggregates: %w", err)
	}
	return &agg, nil
}

// CreatePriceHistory appends one price history row. History is append-only;
// no update or delete path exists.
func (s *pgStore) CreatePriceHistory(ctx context.Context, input CreatePriceHistoryInput) error {
	row := schema.PriceHistory{
		ProductID: input.ProductID,
		Price:     input.Price,
		Currency:  input.Currency,
		Timestamp: input.Timestamp,
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create price history: %w", err)
	}
	return nil
}

// ListPriceHistoryInRange retrieves all history rows inside the inclusive
// window, ordered by timestamp so readers never depend on insertion order
func (s *pgStore) ListPriceHistoryInRange(ctx context.Context, start, end time.Time) ([]*schema.PriceHistory, error) {
	var rows []*schema.PriceHistory
	err := s.db.WithContext(ctx).
		Where("timestamp >= ? AND timestamp <= ?", start, end).
		Order("timestamp DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list price history in range: %w", err)
	}
	return rows, nil
}

// ListPriceHistoryByProduct retrieves the most recent history rows of one product
func (s *pgStore) ListPriceHistoryByProduct(ctx context.Context, productID string, limit int) ([]*schema.PriceHistory, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []*schema.PriceHistory
	err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list price history: %w", err)
	}
	return rows, nil
}

// GetCronLog retrieves a cron log by its logical ID
func (s *pgStore) GetCronLog(ctx context.Context, id string) (*schema.CronLog, error) {
	var log schema.CronLog
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&log).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cron log: %w", err)
	}
	return &log, nil
}

// SaveCronLog upserts a cron log on its logical ID: the first attempt
// creates the row, every later attempt mutates status, retry count, result
// and error in place.
func (s *pgStore) SaveCronLog(ctx context.Context, log *schema.CronLog) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "start_time", "end_time", "retry_count", "result", "error", "updated_at"}),
	}).Create(log).Error
	if err != nil {
		return fmt.Errorf("failed to save cron log: %w", err)
	}
	return nil
}

// ListCronLogs retrieves cron logs matching the filter with a total count
func (s *pgStore) ListCronLogs(ctx context.Context, filter CronLogFilter) ([]*schema.CronLog, int64, error) {
	query := s.db.WithContext(ctx).Model(&schema.CronLog{})

	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count cron logs: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	order := "created_at DESC"
	if filter.OrderAsc {
		order = "created_at ASC"
	}

	var logs []*schema.CronLog
	err := query.
		Order(order).
		Limit(limit).
		Offset(filter.Offset).
		Find(&logs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cron logs: %w", err)
	}

	return logs, total, nil
}
