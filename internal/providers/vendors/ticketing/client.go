package ticketing

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

const PROVIDER_NAME = "ticketing"

// Ticket represents one record from the ticketing provider API
type Ticket struct {
	TicketID         string          `json:"ticketId"`
	EventName        string          `json:"eventName"`
	EventDescription string          `json:"eventDescription"`
	TicketPrice      decimal.Decimal `json:"ticketPrice"`
	Currency         string          `json:"currency"`
	IsAvailable      bool            `json:"isAvailable"`
	LastModified     string          `json:"lastModified"`
	Venue            string          `json:"venue"`
	EventDate        string          `json:"eventDate"`
	TicketType       string          `json:"ticketType"`
	RemainingTickets int             `json:"remainingTickets"`
}

// Client implements the ticketing provider adapter
type Client struct {
	httpClient adapter.HTTPClient
	json       adapter.JSON
	provider   *schema.Provider
}

// NewFactory returns a factory building ticketing adapters bound to a
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

// Fetch retrieves the ticket inventory and maps every record into the
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

	var records []Ticket
	if err := c.json.Unmarshal(respBody, &records); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal ticketing response: %w", domain.ErrProviderUnavailable, err)
	}

	normalized := make([]domain.NormalizedProduct, 0, len(records))
	for _, record := range records {
		product, err := normalize(record, c.provider.ID)
		if err != nil {
			logger.WarnCtx(ctx, "Skipping malformed ticketing record",
				zap.String("external_id", record.TicketID),
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

// normalize maps one ticket record into the canonical shape
func normalize(record Ticket, providerID string) (domain.NormalizedProduct, error) {
	lastModified, err := time.Parse(time.RFC3339, record.LastModified)
	if err != nil {
		return domain.NormalizedProduct{}, fmt.Errorf("invalid lastModified %q: %w", record.LastModified, err)
	}

	return domain.NormalizedProduct{
		ExternalID:   record.TicketID,
		Name:         record.EventName,
		Description:  record.EventDescription,
		Price:        record.TicketPrice,
		Currency:     record.Currency,
		Availability: record.IsAvailable,
		LastUpdated:  lastModified,
		ProviderID:   providerID,
	}, nil
}
