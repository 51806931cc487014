package ecommerce

import (
	"context"
	"errors"
	"net/http"
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
		ID:      "prov-ecom",
		Name:    PROVIDER_NAME,
		BaseURL: "http://ecommerce.local/",
		APIKey:  "secret-1",
	}
}

func TestFetchNormalizesRecords(t *testing.T) {
	httpClient := &adaptertest.HTTPClient{
		GetBytesFunc: func(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
			assert.Equal(t, "http://ecommerce.local/products", url)
			assert.Equal(t, "secret-1", headers["X-API-KEY"])
			return []byte(`[
				{"id":"sku-1","name":"Laptop","description":"A laptop","price":999.99,"currency":"USD","availability":true,"lastUpdated":"2026-08-30T10:00:00Z","category":"electronics","brand":"Acme","stock":12},
				{"id":"sku-2","name":"Mouse","description":"A mouse","price":19.5,"currency":"USD","availability":false,"lastUpdated":"2026-08-30T11:30:00Z","category":"electronics","brand":"Acme","stock":0}
			]`), nil
		},
	}

	client := NewFactory(httpClient, adapter.NewJSON())(testProvider())
	products, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "sku-1", products[0].ExternalID)
	assert.Equal(t, "Laptop", products[0].Name)
	assert.Equal(t, "prov-ecom", products[0].ProviderID)
	assert.True(t, products[0].Price.Equal(decimal.RequireFromString("999.99")))
	assert.True(t, products[0].Availability)
	assert.Equal(t, "2026-08-30T10:00:00Z", products[0].LastUpdated.Format("2006-01-02T15:04:05Z07:00"))

	assert.Equal(t, "sku-2", products[1].ExternalID)
	assert.False(t, products[1].Availability)
}

func TestFetchSkipsMalformedTimestamp(t *testing.T) {
	httpClient := &adaptertest.HTTPClient{
		GetBytesFunc: func(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
			return []byte(`[
				{"id":"sku-1","name":"Laptop","price":10,"currency":"USD","availability":true,"lastUpdated":"not-a-date"},
				{"id":"sku-2","name":"Mouse","price":20,"currency":"USD","availability":true,"lastUpdated":"2026-08-30T11:30:00Z"}
			]`), nil
		},
	}

	client := NewFactory(httpClient, adapter.NewJSON())(testProvider())
	products, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "sku-2", products[0].ExternalID)
}

func TestFetchWrapsTransportError(t *testing.T) {
	httpClient := &adaptertest.HTTPClient{
		GetBytesFunc: func(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
			return nil, errors.New("connection refused")
		},
	}

	client := NewFactory(httpClient, adapter.NewJSON())(testProvider())
	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestFetchWrapsBadPayload(t *testing.T) {
	httpClient := &adaptertest.HTTPClient{
		GetBytesFunc: func(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
			return []byte(`{"error":"internal"}`), nil
		},
	}

	client := NewFactory(httpClient, adapter.NewJSON())(testProvider())
	_, err := client.Fetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestHealthCheck(t *testing.T) {
	httpClient := &adaptertest.HTTPClient{
		HeadFunc: func(ctx context.Context, url string, headers map[string]string) (int, error) {
			assert.Equal(t, "http://ecommerce.local/health", url)
			return http.StatusOK, nil
		},
	}
	client := NewFactory(httpClient, adapter.NewJSON())(testProvider())
	assert.True(t, client.HealthCheck(context.Background()))

	httpClient.HeadFunc = func(ctx context.Context, url string, headers map[string]string) (int, error) {
		return 0, errors.New("timeout")
	}
	assert.False(t, client.HealthCheck(context.Background()))
}
