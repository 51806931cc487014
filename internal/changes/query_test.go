package changes

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/catalog-aggregator/internal/store"
	"github.com/pricewatch/catalog-aggregator/internal/store/storetest"
)

var windowStart = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func seedProduct(t *testing.T, mem *storetest.MemoryStore, providerName, externalID, name string) string {
	t.Helper()
	ctx := context.Background()
	provider, err := mem.CreateProvider(ctx, store.CreateProviderInput{
		Name:     providerName,
		BaseURL:  "http://" + providerName + ".local",
		APIKey:   "k",
		IsActive: true,
	})
	require.NoError(t, err)
	product, err := mem.CreateProduct(ctx, store.CreateProductInput{
		ExternalID:   externalID,
		ProviderID:   provider.ID,
		Name:         name,
		Price:        decimal.New(1, 0),
		Currency:     "USD",
		Availability: true,
		LastUpdated:  windowStart,
	})
	require.NoError(t, err)
	return product.ID
}

func appendHistory(t *testing.T, mem *storetest.MemoryStore, productID, price string, at time.Time) {
	t.Helper()
	require.NoError(t, mem.CreatePriceHistory(context.Background(), store.CreatePriceHistoryInput{
		ProductID: productID,
		Price:     decimal.RequireFromString(price),
		Currency:  "USD",
		Timestamp: at,
	}))
}

func TestProductChangesAdjacentPair(t *testing.T) {
	mem := storetest.NewMemoryStore()
	productID := seedProduct(t, mem, "ecommerce", "sku-1", "Laptop")

	appendHistory(t, mem, productID, "99.99", windowStart.Add(1*time.Second))
	appendHistory(t, mem, productID, "109.99", windowStart.Add(10*time.Second))

	events, err := NewQuery(mem).ProductChanges(context.Background(), windowStart, windowStart.Add(30*time.Second), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.Equal(t, "Laptop", e.ProductName)
	assert.Equal(t, "ecommerce", e.ProviderName)
	assert.True(t, e.OldPrice.Equal(decimal.RequireFromString("99.99")))
	assert.True(t, e.NewPrice.Equal(decimal.RequireFromString("109.99")))
	assert.Equal(t, "10", e.ChangePercentage.String())
	assert.True(t, e.Timestamp.Equal(windowStart.Add(10*time.Second)))
}

func TestProductChangesPercentageRounding(t *testing.T) {
	mem := storetest.NewMemoryStore()
	productID := seedProduct(t, mem, "ecommerce", "sku-1", "Widget")

	appendHistory(t, mem, productID, "3.00", windowStart.Add(1*time.Second))
	appendHistory(t, mem, productID, "4.00", windowStart.Add(2*time.Second))

	events, err := NewQuery(mem).ProductChanges(context.Background(), windowStart, windowStart.Add(time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	// (4-3)/3*100 = 33.333... rounds to 33.33
	assert.Equal(t, "33.33", events[0].ChangePercentage.String())
}

func TestProductChangesMultipleTransitionsNewestFirst(t *testing.T) {
	mem := storetest.NewMemoryStore()
	productID := seedProduct(t, mem, "ecommerce", "sku-1", "Widget")

	appendHistory(t, mem, productID, "10.00", windowStart.Add(1*time.Second))
	appendHistory(t, mem, productID, "20.00", windowStart.Add(2*time.Second))
	appendHistory(t, mem, productID, "15.00", windowStart.Add(3*time.Second))

	events, err := NewQuery(mem).ProductChanges(context.Background(), windowStart, windowStart.Add(time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.True(t, events[0].NewPrice.Equal(decimal.RequireFromString("15")))
	assert.True(t, events[0].OldPrice.Equal(decimal.RequireFromString("20")))
	assert.Equal(t, "-25", events[0].ChangePercentage.String())

	assert.True(t, events[1].NewPrice.Equal(decimal.RequireFromString("20")))
	assert.True(t, events[1].OldPrice.Equal(decimal.RequireFromString("10")))
	assert.Equal(t, "100", events[1].ChangePercentage.String())
}

func TestProductChangesSkipsEqualAdjacentPrices(t *testing.T) {
	mem := storetest.NewMemoryStore()
	productID := seedProduct(t, mem, "ecommerce", "sku-1", "Widget")

	// the repeated price is not a transition
	appendHistory(t, mem, productID, "10.00", windowStart.Add(1*time.Second))
	appendHistory(t, mem, productID, "12.00", windowStart.Add(2*time.Second))
	appendHistory(t, mem, productID, "12.00", windowStart.Add(3*time.Second))

	events, err := NewQuery(mem).ProductChanges(context.Background(), windowStart, windowStart.Add(time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].OldPrice.Equal(decimal.RequireFromString("10")))
	assert.True(t, events[0].NewPrice.Equal(decimal.RequireFromString("12")))
	assert.Equal(t, "20", events[0].ChangePercentage.String())
}

func TestProductChangesSingleRowProducesNothing(t *testing.T) {
	mem := storetest.NewMemoryStore()
	productID := seedProduct(t, mem, "ecommerce", "sku-1", "Widget")
	appendHistory(t, mem, productID, "10.00", windowStart.Add(1*time.Second))

	events, err := NewQuery(mem).ProductChanges(context.Background(), windowStart, windowStart.Add(time.Minute), 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestProductChangesRespectsWindow(t *testing.T) {
	mem := storetest.NewMemoryStore()
	productID := seedProduct(t, mem, "ecommerce", "sku-1", "Widget")

	// the first row falls outside the queried window
	appendHistory(t, mem, productID, "10.00", windowStart.Add(-time.Hour))
	appendHistory(t, mem, productID, "20.00", windowStart.Add(1*time.Second))

	events, err := NewQuery(mem).ProductChanges(context.Background(), windowStart, windowStart.Add(time.Minute), 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestProductChangesSkipsZeroBaseline(t *testing.T) {
	mem := storetest.NewMemoryStore()
	productID := seedProduct(t, mem, "ecommerce", "sku-1", "Freebie")

	appendHistory(t, mem, productID, "0", windowStart.Add(1*time.Second))
	appendHistory(t, mem, productID, "5.00", windowStart.Add(2*time.Second))

	events, err := NewQuery(mem).ProductChanges(context.Background(), windowStart, windowStart.Add(time.Minute), 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestProductChangesUnknownProductFallback(t *testing.T) {
	mem := storetest.NewMemoryStore()

	// history rows reference a product that no longer exists
	appendHistory(t, mem, "ghost-product", "10.00", windowStart.Add(1*time.Second))
	appendHistory(t, mem, "ghost-product", "12.00", windowStart.Add(2*time.Second))

	events, err := NewQuery(mem).ProductChanges(context.Background(), windowStart, windowStart.Add(time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Unknown Product", events[0].ProductName)
	assert.Equal(t, "Unknown Provider", events[0].ProviderName)
}

func TestProductChangesLimit(t *testing.T) {
	mem := storetest.NewMemoryStore()
	productID := seedProduct(t, mem, "ecommerce", "sku-1", "Widget")

	for i := 0; i < 5; i++ {
		appendHistory(t, mem, productID, decimal.NewFromInt(int64(10+i)).String(), windowStart.Add(time.Duration(i)*time.Second))
	}

	events, err := NewQuery(mem).ProductChanges(context.Background(), windowStart, windowStart.Add(time.Minute), 2)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
