package product

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amertacoffee/amerta-backend/pkg/db/models"
	"github.com/amertacoffee/amerta-backend/pkg/pagination"
)

// ListFilters narrows the public catalog listing.
type ListFilters struct {
	Search        string
	AvailableOnly bool
}

// Repository wires together product persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads the product by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySlug loads the product by its URL identifier.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Create inserts a new product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Update persists the full product row.
func (r *Repository) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes a product by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{}).Error
}

// CountOrderReferences reports how many order lines reference the product.
func (r *Repository) CountOrderReferences(ctx context.Context, id uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("product_id = ?", id).
		Count(&n).Error
	return n, err
}

// RemoveFromCarts drops every cart line holding the product.
func (r *Repository) RemoveFromCarts(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("product_id = ?", id).Delete(&models.CartItem{}).Error
}

// List returns one catalog page plus the total row count for the filters.
func (r *Repository) List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Product, int64, error) {
	params = pagination.Normalize(params)

	qb := r.db.WithContext(ctx).Model(&models.Product{})
	if filters.AvailableOnly {
		qb = qb.Where("is_available = ?", true)
	}
	if filters.Search != "" {
		qb = qb.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filters.Search)+"%")
	}

	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Product
	err := qb.
		Order("created_at DESC").
		Order("id DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&rows).Error
	return rows, total, err
}

// DecrementStock atomically reduces stock for a product, refusing to go below
// zero. A product drained to zero is delisted in the same statement so readers
// never observe stock 0 with the availability flag still set. It reports
// whether a row was actually updated.
func (r *Repository) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock_qty >= ?", productID, qty).
		Updates(map[string]any{
			"stock_qty":    gorm.Expr("stock_qty - ?", qty),
			"is_available": gorm.Expr("CASE WHEN stock_qty - ? <= 0 THEN ? ELSE is_available END", qty, false),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
