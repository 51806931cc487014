package schema

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents the products table. The pair (external_id, provider_id)
// identifies one logical product; the unique index backs the
// conflict-as-update fallback for concurrent creates.
type Product struct {
	// ID is the internal database primary key
	ID string `gorm:"column:id;type:uuid;primaryKey"`
	// ExternalID is the provider-side identifier of the product
	ExternalID string `gorm:"column:external_id;not null;uniqueIndex:idx_products_external_provider,priority:1"`
	// ProviderID references the provider that owns this product
	ProviderID string `gorm:"column:provider_id;type:uuid;not null;uniqueIndex:idx_products_external_provider,priority:2"`
	// Name is the product display name
	Name string `gorm:"column:name;not null"`
	// Description is the product description
	Description string `gorm:"column:description"`
	// Price is the current price
	Price decimal.Decimal `gorm:"column:price;not null;type:decimal(12,2)"`
	// Currency is the ISO currency code of the price
	Currency string `gorm:"column:currency;not null"`
	// Availability marks whether the product is currently purchasable
	Availability bool `gorm:"column:availability;not null"`
	// LastUpdated is the upstream modification timestamp of the last fetch
	LastUpdated time.Time `gorm:"column:last_updated;not null;type:timestamptz"`
	// CreatedAt is the timestamp when this product was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this product was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	Provider Provider `gorm:"foreignKey:ProviderID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}
