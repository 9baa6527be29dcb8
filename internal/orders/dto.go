package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/amertacoffee/amerta-backend/pkg/db/models"
	"github.com/amertacoffee/amerta-backend/pkg/pagination"
)

// OrderItemDTO is a frozen order line. Name and unit price are the values
// captured at checkout, not the product's current ones.
type OrderItemDTO struct {
	ID                uuid.UUID `json:"id"`
	ProductID         uuid.UUID `json:"product_id"`
	ProductName       string    `json:"product_name"`
	UnitPriceCents    int       `json:"unit_price_cents"`
	Quantity          int       `json:"quantity"`
	LineSubtotalCents int       `json:"line_subtotal_cents"`
}

// OrderDTO is the full order detail returned to its owner.
type OrderDTO struct {
	ID            uuid.UUID      `json:"id"`
	UserID        uuid.UUID      `json:"user_id"`
	InvoiceNumber string         `json:"invoice_number"`
	TotalCents    int            `json:"total_cents"`
	Items         []OrderItemDTO `json:"items"`
	PlacedAt      time.Time      `json:"placed_at"`
}

// OrderSummary is the compact row shown in the order history list.
type OrderSummary struct {
	ID            uuid.UUID `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	TotalCents    int       `json:"total_cents"`
	TotalItems    int       `json:"total_items"`
	PlacedAt      time.Time `json:"placed_at"`
}

// OrderListResult wraps one history page with pagination metadata.
type OrderListResult struct {
	Orders []OrderSummary  `json:"orders"`
	Meta   pagination.Meta `json:"meta"`
}

// NewOrderDTO maps the model onto the detail view.
func NewOrderDTO(order *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:            order.ID,
		UserID:        order.UserID,
		InvoiceNumber: order.InvoiceNumber,
		TotalCents:    order.TotalCents,
		Items:         make([]OrderItemDTO, 0, len(order.Items)),
		PlacedAt:      order.CreatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:                item.ID,
			ProductID:         item.ProductID,
			ProductName:       item.ProductName,
			UnitPriceCents:    item.UnitPriceCents,
			Quantity:          item.Quantity,
			LineSubtotalCents: item.UnitPriceCents * item.Quantity,
		})
	}
	return dto
}

// NewOrderSummary maps the model onto the history row.
func NewOrderSummary(order *models.Order) OrderSummary {
	totalItems := 0
	for _, item := range order.Items {
		totalItems += item.Quantity
	}
	return OrderSummary{
		ID:            order.ID,
		InvoiceNumber: order.InvoiceNumber,
		TotalCents:    order.TotalCents,
		TotalItems:    totalItems,
		PlacedAt:      order.CreatedAt,
	}
}
