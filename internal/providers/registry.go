// Package providers defines the adapter contract every upstream catalog
// source implements and the registry used to resolve one by provider name.
package providers

import (
	"context"
	"strings"

	"github.com/pricewatch/catalog-aggregator/internal/domain"
	"github.com/pricewatch/catalog-aggregator/internal/store/schema"
)

// Adapter is the two-operation capability of one upstream source. Fetch
// returns normalized records or fails with domain.ErrProviderUnavailable;
// HealthCheck never fails, it only reports.
type Adapter interface {
	// Name returns the dispatch name of the adapter
	Name() string

	// Fetch retrieves and normalizes the provider's current catalog
	Fetch(ctx context.Context) ([]domain.NormalizedProduct, error)

	// HealthCheck reports whether the upstream currently answers
	HealthCheck(ctx context.Context) bool
}

// Factory builds an adapter bound to one provider row. The row carries the
// base URL and API key; credentials never live in code.
type Factory func(provider *schema.Provider) Adapter

// Registry maps lowercase provider names to adapter factories. Variants are
// registered once at startup; providers stored without a registered adapter
// are skipped by the engine, not treated as errors.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds a factory to a provider name. Names are case-insensitive.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[strings.ToLower(name)] = factory
}

// Resolve returns an adapter for the provider row, or false when no variant
// is registered under its name.
func (r *Registry) Resolve(provider *schema.Provider) (Adapter, bool) {
	factory, ok := r.factories[strings.ToLower(provider.Name)]
	if !ok {
		return nil, false
	}
	return factory(provider), true
}

// Names returns all registered adapter names
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}
