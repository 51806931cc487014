package ecommerce

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pricewatch/catalog-aggregator/internal/adapter"
	"github.com/pricewatch/catalog-aggregator/internal/domain"
	"github.com/pricewatch/catalog-aggregator/internal/logger"
	"github.com/pricewatch/catalog-aggregator/internal/providers"
	"github.com/pricewatch/catalog-aggregator/internal/store/schema"
)

const PROVIDER_NAME = "ecommerce"

// CatalogProduct represents one record from the e-commerce provider API
type CatalogProduct struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	Availability bool            `json:"availability"`
	LastUpdated  string          `json:"lastUpdated"`
	Category     string          `json:"category"`
	Brand        string          `json:"brand"`
	Stock        int             `json:"stock"`
}

// Client implements the e-commerce provider adapter
type Client struct {
	httpClient adapter.HTTPClient
	json       adapter.JSON
	provider   *schema.Provider
}

// NewFactory returns a factory building e-commerce adapters bound to a
// provider row
func NewFactory(httpClient adapter.HTTPClient, json adapter.JSON) providers.Factory {
	return func(provider *schema.Provider) providers.Adapter {
		return &Client{
			httpClient: httpClient,
			json:       json,
			provider:   provider,
		}
	}
}

// Name returns the dispatch name of the adapter
func (c *Client) Name() string {
	return PROVIDER_NAME
}

// Fetch retrieves the provider catalog and maps every record into the
// canonical product shape
func (c *Client) Fetch(ctx context.Context) ([]domain.NormalizedProduct, error) {
	url := strings.TrimRight(c.provider.BaseURL, "/") + "/products"
	headers := map[string]string{
		"X-API-KEY": c.provider.APIKey,
	}

	respBody, err := c.httpClient.GetBytes(ctx, url, headers)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}

	var records []CatalogProduct
	if err := c.json.Unmarshal(respBody, &records); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal e-commerce response: %w", domain.ErrProviderUnavailable, err)
	}

	normalized := make([]domain.NormalizedProduct, 0, len(records))
	for _, record := range records {
		product, err := normalize(record, c.provider.ID)
		if err != nil {
			logger.WarnCtx(ctx, "Skipping malformed e-commerce record",
				zap.String("external_id", record.ID),
				zap.Error(err),
			)
			continue
		}
		normalized = append(normalized, product)
	}

	return normalized, nil
}

// HealthCheck reports whether the provider API currently answers
func (c *Client) HealthCheck(ctx context.Context) bool {
	url := strings.TrimRight(c.provider.BaseURL, "/") + "/health"
	status, err := c.httpClient.Head(ctx, url, map[string]string{"X-API-KEY": c.provider.APIKey})
	return err == nil && status == http.StatusOK
}

// normalize maps one e-commerce record into the canonical shape. The price
// is copied as-is; any rounding happened upstream.
func normalize(record CatalogProduct, providerID string) (domain.NormalizedProduct, error) {
	lastUpdated, err := time.Parse(time.RFC3339, record.LastUpdated)
	if err != nil {
		return domain.NormalizedProduct{}, fmt.Errorf("invalid lastUpdated %q: %w", record.LastUpdated, err)
	}

	return domain.NormalizedProduct{
		ExternalID:   record.ID,
		Name:         record.Name,
		Description:  record.Description,
		Price:        record.Price,
		Currency:     record.Currency,
		Availability: record.Availability,
		LastUpdated:  lastUpdated,
		ProviderID:   providerID,
	}, nil
}
