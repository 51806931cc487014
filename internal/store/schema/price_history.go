package schema

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceHistory represents the price_history table. Rows are append-only:
// one on product creation and one per observed price change. Timestamp is
// the normalized last-updated time of the triggering fetch, not the write
// time.
type PriceHistory struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// ProductID references the product this price point belongs to
	ProductID string `gorm:"column:product_id;type:uuid;not null;index:idx_price_history_product_time,priority:1"`
	// Price is the observed price
	Price decimal.Decimal `gorm:"column:price;not null;type:decimal(12,2)"`
	// Currency is the ISO currency code of the price
	Currency string `gorm:"column:currency;not null"`
	// Timestamp is when the upstream reported this price
	Timestamp time.Time `gorm:"column:timestamp;not null;index:idx_price_history_product_time,priority:2;type:timestamptz"`
	// CreatedAt is the timestamp when this row was written
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`

	// Associations
	Product Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the PriceHistory model
func (PriceHistory) TableName() string {
	return "price_history"
}
