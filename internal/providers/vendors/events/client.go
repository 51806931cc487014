package events

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

const PROVIDER_NAME = "events"

// Event represents one record from the events provider API
type Event struct {
	EventID          string          `json:"eventId"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price"`
	Currency         string          `json:"currency"`
	Available        bool            `json:"available"`
	UpdatedAt        string          `json:"updatedAt"`
	Location         string          `json:"location"`
	StartDate        string          `json:"startDate"`
	EndDate          string          `json:"endDate"`
	Category         string          `json:"category"`
	MaxAttendees     int             `json:"maxAttendees"`
	CurrentAttendees int             `json:"currentAttendees"`
}

// Client implements the events provider adapter
type Client struct {
	httpClient adapter.HTTPClient
	json       adapter.JSON
	provider   *schema.Provider
}

// NewFactory returns a factory building events adapters bound to a
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

// Fetch retrieves the event listing and maps every record into the
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

	var records []Event
	if err := c.json.Unmarshal(respBody, &records); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal events response: %w", domain.ErrProviderUnavailable, err)
	}

	normalized := make([]domain.NormalizedProduct, 0, len(records))
	for _, record := range records {
		product, err := normalize(record, c.provider.ID)
		if err != nil {
			logger.WarnCtx(ctx, "Skipping malformed events record",
				zap.String("external_id", record.EventID),
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

// normalize maps one event record into the canonical shape
func normalize(record Event, providerID string) (domain.NormalizedProduct, error) {
	updatedAt, err := time.Parse(time.RFC3339, record.UpdatedAt)
	if err != nil {
		return domain.NormalizedProduct{}, fmt.Errorf("invalid updatedAt %q: %w", record.UpdatedAt, err)
	}

	return domain.NormalizedProduct{
		ExternalID:   record.EventID,
		Name:         record.Title,
		Description:  record.Description,
		Price:        record.Price,
		Currency:     record.Currency,
		Availability: record.Available,
		LastUpdated:  updatedAt,
		ProviderID:   providerID,
	}, nil
}
