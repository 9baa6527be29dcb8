package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Product represents a catalog listing available for purchase.
type Product struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Name        string         `gorm:"column:name;not null;uniqueIndex"`
	Slug        string         `gorm:"column:slug;not null;uniqueIndex"`
	Description string         `gorm:"column:description;not null"`
	SKU         *string        `gorm:"column:sku"`
	ImageURLs   pq.StringArray `gorm:"column:image_urls;type:text[]"`
	PriceCents  int            `gorm:"column:price_cents;not null"`
	StockQty    int            `gorm:"column:stock_qty;not null;default:0"`
	IsAvailable bool           `gorm:"column:is_available;not null;default:true"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
