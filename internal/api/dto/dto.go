// Package dto defines the JSON shapes returned by the REST API.
package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pricewatch/catalog-aggregator/internal/domain"
	"github.com/pricewatch/catalog-aggregator/internal/store/schema"
)

// ProductResponse is the API representation of a product
type ProductResponse struct {
	ID           string          `json:"id"`
	ExternalID   string          `json:"external_id"`
	ProviderID   string          `json:"provider_id"`
	ProviderName string          `json:"provider_name,omitempty"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	Availability bool            `json:"availability"`
	LastUpdated  time.Time       `json:"last_updated"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ProductListResponse is a paginated product list
type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int64             `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// PricePointResponse is one price history row
type PricePointResponse struct {
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	Timestamp time.Time       `json:"timestamp"`
}

// PriceHistoryResponse is the history of one product, newest first
type PriceHistoryResponse struct {
	ProductID string               `json:"product_id"`
	History   []PricePointResponse `json:"history"`
}

// ChangeListResponse is the derived price change list for a window
type ChangeListResponse struct {
	Changes []domain.PriceChange `json:"changes"`
	Start   time.Time            `json:"start"`
	End     time.Time            `json:"end"`
}

// StatisticsResponse summarizes the catalog
type StatisticsResponse struct {
	TotalProviders      int64           `json:"total_providers"`
	TotalProducts       int64           `json:"total_products"`
	AvailableProducts   int64           `json:"available_products"`
	UnavailableProducts int64           `json:"unavailable_products"`
	MinPrice            decimal.Decimal `json:"min_price"`
	MaxPrice            decimal.Decimal `json:"max_price"`
	AvgPrice            decimal.Decimal `json:"avg_price"`
}

// CronLogResponse is the API representation of a job execution
type CronLogResponse struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	RetryCount int       `json:"retry_count"`
	Error      *string   `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// CronLogListResponse is a paginated job execution list
type CronLogListResponse struct {
	Logs   []CronLogResponse `json:"logs"`
	Total  int64             `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// MapProductToDTO maps a product row onto its API shape
func MapProductToDTO(product *schema.Product, providerName string) ProductResponse {
	return ProductResponse{
		ID:           product.ID,
		ExternalID:   product.ExternalID,
		ProviderID:   product.ProviderID,
		ProviderName: providerName,
		Name:         product.Name,
		Description:  product.Description,
		Price:        product.Price,
		Currency:     product.Currency,
		Availability: product.Availability,
		LastUpdated:  product.LastUpdated,
		CreatedAt:    product.CreatedAt,
		UpdatedAt:    product.UpdatedAt,
	}
}

// MapCronLogToDTO maps a cron log row onto its API shape
func MapCronLogToDTO(log *schema.CronLog) CronLogResponse {
	return CronLogResponse{
		ID:         log.ID,
		Type:       string(log.Type),
		Status:     string(log.Status),
		StartTime:  log.StartTime,
		EndTime:    log.EndTime,
		RetryCount: log.RetryCount,
		Error:      log.Error,
		CreatedAt:  log.CreatedAt,
	}
}
