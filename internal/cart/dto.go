package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/amertacoffee/amerta-backend/pkg/db/models"
)

// CartItemDTO is a single cart line with its product snapshot and subtotal.
type CartItemDTO struct {
	ID                uuid.UUID `json:"id"`
	ProductID         uuid.UUID `json:"product_id"`
	ProductName       string    `json:"product_name"`
	ProductSlug       string    `json:"product_slug"`
	UnitPriceCents    int       `json:"unit_price_cents"`
	Quantity          int       `json:"quantity"`
	LineSubtotalCents int       `json:"line_subtotal_cents"`
	IsAvailable       bool      `json:"is_available"`
	StockQty          int       `json:"stock_qty"`
}

// CartDTO is the API-facing view of a cart with computed totals.
type CartDTO struct {
	ID         uuid.UUID     `json:"id"`
	UserID     uuid.UUID     `json:"user_id"`
	Items      []CartItemDTO `json:"items"`
	TotalCents int           `json:"total_cents"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// NewCartDTO builds the view from the model, pricing lines at the product's
// current price. Prices are only frozen at checkout.
func NewCartDTO(cart *models.Cart) CartDTO {
	dto := CartDTO{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Items:     make([]CartItemDTO, 0, len(cart.Items)),
		UpdatedAt: cart.UpdatedAt,
	}
	for _, item := range cart.Items {
		line := CartItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
		if item.Product != nil {
			line.ProductName = item.Product.Name
			line.ProductSlug = item.Product.Slug
			line.UnitPriceCents = item.Product.PriceCents
			line.IsAvailable = item.Product.IsAvailable
			line.StockQty = item.Product.StockQty
			line.LineSubtotalCents = item.Product.PriceCents * item.Quantity
		}
		dto.TotalCents += line.LineSubtotalCents
		dto.Items = append(dto.Items, line)
	}
	return dto
}
