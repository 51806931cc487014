package events

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/catalog-aggregator/internal/adapter"
	"github.com/pricewatch/catalog-aggregator/internal/adapter/adaptertest"
	"github.com/pricewatch/catalog-aggregator/internal/store/schema"
)

func TestFetchNormalizesEventFields(t *testing.T) {
	httpClient := &adaptertest.HTTPClient{
		GetBytesFunc: func(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
			assert.Equal(t, "http://events.local/products", url)
			assert.Equal(t, "secret-3", headers["X-API-KEY"])
			return []byte(`[
				{"eventId":"evt-1","title":"Go Conference","description":"Two days of talks","price":120.50,"currency":"USD","available":false,"updatedAt":"2026-08-28T09:00:00Z","location":"Berlin","startDate":"2026-10-01T09:00:00Z","endDate":"2026-10-02T18:00:00Z","category":"conference","maxAttendees":500,"currentAttendees":500}
			]`), nil
		},
	}

	provider := &schema.Provider{
		ID:      "prov-events",
		Name:    PROVIDER_NAME,
		BaseURL: "http://events.local",
		APIKey:  "secret-3",
	}

	client := NewFactory(httpClient, adapter.NewJSON())(provider)
	products, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, "evt-1", p.ExternalID)
	assert.Equal(t, "Go Conference", p.Name)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("120.5")))
	assert.False(t, p.Availability)
	assert.Equal(t, "prov-events", p.ProviderID)
}
