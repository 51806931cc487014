// Package storetest provides an in-memory Store implementation for unit
// tests of the layers above persistence.
package storetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pricewatch/catalog-aggregator/internal/store"
	"github.com/pricewatch/catalog-aggregator/internal/store/schema"
)

// MemoryStore keeps all records in maps guarded by one mutex. Behavior
// mirrors the postgres store: lookups return (nil, nil) on miss and
// SaveCronLog is an upsert on the logical id.
type MemoryStore struct {
	mu sync.Mutex

	providers    map[string]*schema.Provider
	products     map[string]*schema.Product
	priceHistory []*schema.PriceHistory
	cronLogs     map[string]*schema.CronLog

	nextHistoryID int64

	// Err, when set, is returned by every operation. Tests use it to
	// simulate a broken database.
	Err error
}

var _ store.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		providers: make(map[string]*schema.Provider),
		products:  make(map[string]*schema.Product),
		cronLogs:  make(map[string]*schema.CronLog),
	}
}

func (m *MemoryStore) GetActiveProviders(ctx context.Context) ([]*schema.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*schema.Provider
	for _, p := range m.providers {
		if p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) GetProviderByID(ctx context.Context, id string) (*schema.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.providers[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) GetProviderByName(ctx context.Context, name string) (*schema.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, p := range m.providers {
		if p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) CreateProvider(ctx context.Context, input store.CreateProviderInput) (*schema.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, p := range m.providers {
		if p.Name == input.Name {
			cp := *p
			return &cp, nil
		}
	}
	now := time.Now()
	p := &schema.Provider{
		ID:        uuid.NewString(),
		Name:      input.Name,
		BaseURL:   input.BaseURL,
		APIKey:    input.APIKey,
		IsActive:  input.IsActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.providers[p.ID] = p
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) CountProviders(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return int64(len(m.providers)), nil
}

func (m *MemoryStore) GetProductByID(ctx context.Context, id string) (*schema.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) GetProductByExternalID(ctx context.Context, externalID, providerID string) (*schema.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, p := range m.products {
		if p.ExternalID == externalID && p.ProviderID == providerID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListProducts(ctx context.Context, filter store.ProductFilter) ([]*schema.Product, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, 0, m.Err
	}
	var matched []*schema.Product
	for _, p := range m.products {
		if filter.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Name)) {
			continue
		}
		if filter.MinPrice != nil && p.Price.LessThan(*filter.MinPrice) {
			continue
		}
		if filter.MaxPrice != nil && p.Price.GreaterThan(*filter.MaxPrice) {
			continue
		}
		if filter.Availability != nil && p.Availability != *filter.Availability {
			continue
		}
		if filter.ProviderID != "" && p.ProviderID != filter.ProviderID {
			continue
		}
		if filter.Currency != "" && p.Currency != filter.Currency {
			continue
		}
		cp := *p
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	total := int64(len(matched))
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (m *MemoryStore) ListStaleProducts(ctx context.Context, olderThan time.Time, limit int) ([]*schema.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*schema.Product
	for _, p := range m.products {
		if p.LastUpdated.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated.Before(out[j].LastUpdated) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) CreateProduct(ctx context.Context, input store.CreateProductInput) (*schema.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	now := time.Now()
	for _, p := range m.products {
		if p.ExternalID == input.ExternalID && p.ProviderID == input.ProviderID {
			// conflict-as-update, like the ON CONFLICT clause in postgres
			p.Name = input.Name
			p.Description = input.Description
			p.Price = input.Price
			p.Currency = input.Currency
			p.Availability = input.Availability
			p.LastUpdated = input.LastUpdated
			p.UpdatedAt = now
			cp := *p
			return &cp, nil
		}
	}
	p := &schema.Product{
		ID:           uuid.NewString(),
		ExternalID:   input.ExternalID,
		ProviderID:   input.ProviderID,
		Name:         input.Name,
		Description:  input.Description,
		Price:        input.Price,
		Currency:     input.Currency,
		Availability: input.Availability,
		LastUpdated:  input.LastUpdated,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.products[p.ID] = p
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) UpdateProduct(ctx context.Context, id string, input store.UpdateProductInput) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	p, ok := m.products[id]
	if !ok {
		return 0, nil
	}
	p.Name = input.Name
	p.Description = input.Description
	p.Price = input.Price
	p.Currency = input.Currency
	p.Availability = input.Availability
	p.LastUpdated = input.LastUpdated
	p.UpdatedAt = time.Now()
	return 1, nil
}

func (m *MemoryStore) CountProducts(ctx context.Context, availability *bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	var n int64
	for _, p := range m.products {
		if availability == nil || p.Availability == *availability {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) GetPriceAggregates(ctx context.Context) (*store.PriceAggregates, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	agg := &store.PriceAggregates{}
	if len(m.products) == 0 {
		return agg, nil
	}
	first := true
	sum := decimal.Zero
	for _, p := range m.products {
		if first {
			agg.Min = p.Price
			agg.Max = p.Price
			first = false
		} else {
			if p.Price.LessThan(agg.Min) {
				agg.Min = p.Price
			}
			if p.Price.GreaterThan(agg.Max) {
				agg.Max = p.Price
			}
		}
		sum = sum.Add(p.Price)
	}
	agg.Avg = sum.Div(decimal.NewFromInt(int64(len(m.products)))).Round(2)
	return agg, nil
}

func (m *MemoryStore) CreatePriceHistory(ctx context.Context, input store.CreatePriceHistoryInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.nextHistoryID++
	m.priceHistory = append(m.priceHistory, &schema.PriceHistory{
		ID:        m.nextHistoryID,
		ProductID: input.ProductID,
		Price:     input.Price,
		Currency:  input.Currency,
		Timestamp: input.Timestamp,
		CreatedAt: time.Now(),
	})
	return nil
}

func (m *MemoryStore) ListPriceHistoryInRange(ctx context.Context, start, end time.Time) ([]*schema.PriceHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*schema.PriceHistory
	for _, h := range m.priceHistory {
		if h.Timestamp.Before(start) || h.Timestamp.After(end) {
			continue
		}
		cp := *h
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *MemoryStore) ListPriceHistoryByProduct(ctx context.Context, productID string, limit int) ([]*schema.PriceHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*schema.PriceHistory
	for _, h := range m.priceHistory {
		if h.ProductID == productID {
			cp := *h
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) GetCronLog(ctx context.Context, id string) (*schema.CronLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	l, ok := m.cronLogs[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (m *MemoryStore) SaveCronLog(ctx context.Context, log *schema.CronLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	cp := *log
	now := time.Now()
	if existing, ok := m.cronLogs[log.ID]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	m.cronLogs[log.ID] = &cp
	return nil
}

func (m *MemoryStore) ListCronLogs(ctx context.Context, filter store.CronLogFilter) ([]*schema.CronLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, 0, m.Err
	}
	var matched []*schema.CronLog
	for _, l := range m.cronLogs {
		if filter.Type != "" && l.Type != filter.Type {
			continue
		}
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		cp := *l
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		if filter.OrderAsc {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

// ProductCount reports how many products are stored, bypassing filters.
func (m *MemoryStore) ProductCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.products)
}

// HistoryCount reports how many price history rows are stored.
func (m *MemoryStore) HistoryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.priceHistory)
}
