package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pricewatch/catalog-aggregator/internal/logger"
)

// SeedProvider describes one bootstrap provider row
type SeedProvider struct {
	Name    string
	BaseURL string
	APIKey  string
}

// SeedProviders creates the bootstrap provider rows. Seeding is idempotent:
// providers that already exist are left untouched.
func SeedProviders(ctx context.Context, s Store, seeds []SeedProvider) error {
	for _, seed := range seeds {
		provider, err := s.CreateProvider(ctx, CreateProviderInput{
			Name:     seed.Name,
			BaseURL:  seed.BaseURL,
			APIKey:   seed.APIKey,
			IsActive: true,
		})
		if err != nil {
			return fmt.Errorf("failed to seed provider %q: %w", seed.Name, err)
		}

		logger.InfoCtx(ctx, "Seeded provider",
			zap.String("name", provider.Name),
			zap.String("id", provider.ID),
		)
	}

	return nil
}
