package schema

import (
	"time"
)

// Provider represents the providers table - one row per upstream catalog
// source. Rows are created by bootstrap seeding and are read-only to the
// aggregation core at runtime.
type Provider struct {
	// ID is the internal database primary key
	ID string `gorm:"column:id;type:uuid;primaryKey"`
	// Name is the unique lowercase key used for adapter dispatch
	Name string `gorm:"column:name;not null;uniqueIndex"`
	// BaseURL is the root endpoint of the provider API
	BaseURL string `gorm:"column:base_url;not null"`
	// APIKey is the credential sent with every fetch
	APIKey string `gorm:"column:api_key;not null"`
	// IsActive marks whether the provider takes part in aggregation runs
	IsActive bool `gorm:"column:is_active;not null;default:true"`
	// CreatedAt is the timestamp when this provider was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this provider was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Provider model
func (Provider) TableName() string {
	return "providers"
}
