package payloads

import (
	"time"

	"github.com/google/uuid"
)

// OrderCreatedLine is a single purchased line inside an OrderCreatedEvent.
type OrderCreatedLine struct {
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	UnitPriceCents int       `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
}

// OrderCreatedEvent signals a completed checkout.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID          `json:"order_id"`
	UserID        uuid.UUID          `json:"user_id"`
	InvoiceNumber string             `json:"invoice_number"`
	TotalCents    int                `json:"total_cents"`
	Lines         []OrderCreatedLine `json:"lines"`
	PlacedAt      time.Time          `json:"placed_at"`
}

// ProductChangedEvent is emitted on catalog create, update, and delete.
type ProductChangedEvent struct {
	ProductID uuid.UUID `json:"product_id"`
	Slug      string    `json:"slug"`
	Change    string    `json:"change"`
}

// UserRegisteredEvent is emitted once a signup commits.
type UserRegisteredEvent struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}
