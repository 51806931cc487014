// Package changes reconstructs price change events from the append-only
// price history at read time. Nothing here is stored; the journal is the
// single source of truth.
package changes

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pricewatch/catalog-aggregator/internal/domain"
	"github.com/pricewatch/catalog-aggregator/internal/store"
	"github.com/pricewatch/catalog-aggregator/internal/store/schema"
)

const (
	unknownProduct  = "Unknown Product"
	unknownProvider = "Unknown Provider"
)

// Query derives price change events from stored history rows.
type Query struct {
	store store.Store
}

// NewQuery creates a change query over the given store.
func NewQuery(s store.Store) *Query {
	return &Query{store: s}
}

// ProductChanges returns the price transitions observed in [start, end],
// newest first, capped at limit when limit > 0. A transition is an adjacent
// pair of history rows of the same product; products with a single row in
// the window produce no event.
func (q *Query) ProductChanges(ctx context.Context, start, end time.Time, limit int) ([]domain.PriceChange, error) {
	history, err := q.store.ListPriceHistoryInRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}
	if len(history) == 0 {
		return nil, nil
	}

	byProduct := make(map[string][]*schema.PriceHistory)
	for _, row := range history {
		byProduct[row.ProductID] = append(byProduct[row.ProductID], row)
	}

	products := make(map[string]*schema.Product)
	providers := make(map[string]*schema.Provider)

	var events []domain.PriceChange
	for productID, rows := range byProduct {
		if len(rows) < 2 {
			continue
		}
		sort.Slice(rows, func(i, j int) bool {
			return rows[i].Timestamp.After(rows[j].Timestamp)
		})

		productName, providerName := q.lookupNames(ctx, productID, products, providers)

		// rows are newest first; rows[i+1] is the state before rows[i]
		for i := 0; i < len(rows)-1; i++ {
			current, previous := rows[i], rows[i+1]
			if previous.Price.IsZero() || current.Price.Equal(previous.Price) {
				continue
			}
			events = append(events, domain.PriceChange{
				ProductID:        productID,
				ProductName:      productName,
				ProviderName:     providerName,
				OldPrice:         previous.Price,
				NewPrice:         current.Price,
				Currency:         current.Currency,
				ChangePercentage: domain.ChangePercentage(previous.Price, current.Price),
				Timestamp:        current.Timestamp,
			})
		}
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// lookupNames resolves display names with per-call caching. Lookup failures
// fall back to placeholder names; a missing row never hides the event.
func (q *Query) lookupNames(
	ctx context.Context,
	productID string,
	products map[string]*schema.Product,
	providers map[string]*schema.Provider,
) (string, string) {
	product, ok := products[productID]
	if !ok {
		product, _ = q.store.GetProductByID(ctx, productID)
		products[productID] = product
	}
	if product == nil {
		return unknownProduct, unknownProvider
	}

	provider, ok := providers[product.ProviderID]
	if !ok {
		provider, _ = q.store.GetProviderByID(ctx, product.ProviderID)
		providers[product.ProviderID] = provider
	}
	if provider == nil {
		return product.Name, unknownProvider
	}
	return product.Name, provider.Name
}
