package product

import (
	"time"

	"github.com/google/uuid"

	"github.com/amertacoffee/amerta-backend/pkg/db/models"
	"github.com/amertacoffee/amerta-backend/pkg/pagination"
)

// ProductDTO represents the catalog payload returned to clients.
type ProductDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	SKU         *string   `json:"sku,omitempty"`
	ImageURLs   []string  `json:"image_urls"`
	PriceCents  int       `json:"price_cents"`
	StockQty    int       `json:"stock_qty"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductListResult bundles one catalog page with its pagination metadata.
type ProductListResult struct {
	Products []ProductDTO    `json:"products"`
	Meta     pagination.Meta `json:"meta"`
}

// NewProductDTO builds a DTO from the persisted model.
func NewProductDTO(product *models.Product) *ProductDTO {
	return &ProductDTO{
		ID:          product.ID,
		Name:        product.Name,
		Slug:        product.Slug,
		Description: product.Description,
		SKU:         product.SKU,
		ImageURLs:   append([]string{}, product.ImageURLs...),
		PriceCents:  product.PriceCents,
		StockQty:    product.StockQty,
		IsAvailable: product.IsAvailable,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
}
