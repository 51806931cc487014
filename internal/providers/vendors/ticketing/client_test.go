package ticketing

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/catalog-aggregator/internal/adapter"
	"github.com/pricewatch/catalog-aggregator/internal/adapter/adaptertest"
	"github.com/pricewatch/catalog-aggregator/internal/domain"
	"github.com/pricewatch/catalog-aggregator/internal/store/schema"
)

func testProvider() *schema.Provider {
	return &schema.Provider{
		ID:      "prov-tix",
		Name:    PROVIDER_NAME,
		BaseURL: "http://ticketing.local",
		APIKey:  "secret-2",
	}
}

func TestFetchNormalizesTicketFields(t *testing.T) {
	httpClient := &adaptertest.HTTPClient{
		GetBytesFunc: func(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
			assert.Equal(t, "http://ticketing.local/products", url)
			return []byte(`[
				{"ticketId":"tkt-9","eventName":"Jazz Night","eventDescription":"Live jazz","ticketPrice":45.00,"currency":"EUR","isAvailable":true,"lastModified":"2026-08-29T18:00:00Z","venue":"Blue Hall","eventDate":"2026-09-15T20:00:00Z","ticketType":"standard","remainingTickets":40}
			]`), nil
		},
	}

	client := NewFactory(httpClient, adapter.NewJSON())(testProvider())
	products, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, "tkt-9", p.ExternalID)
	assert.Equal(t, "Jazz Night", p.Name)
	assert.Equal(t, "Live jazz", p.Description)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("45")))
	assert.Equal(t, "EUR", p.Currency)
	assert.True(t, p.Availability)
	assert.Equal(t, "prov-tix", p.ProviderID)
}

func TestFetchReportsProviderUnavailable(t *testing.T) {
	httpClient := &adaptertest.HTTPClient{
		GetBytesFunc: func(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
			return nil, errors.New("503 service unavailable")
		},
	}

	client := NewFactory(httpClient, adapter.NewJSON())(testProvider())
	_, err := client.Fetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}
