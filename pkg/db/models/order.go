package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order is the immutable record produced by a successful checkout.
type Order struct {
	ID            uuid.UUID   `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID   `gorm:"column:user_id;type:uuid;not null;index"`
	InvoiceNumber string      `gorm:"column:invoice_number;not null;uniqueIndex"`
	TotalCents    int         `gorm:"column:total_cents;not null"`
	Items         []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
