package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amertacoffee/amerta-backend/pkg/db"
	"github.com/amertacoffee/amerta-backend/pkg/db/models"
	"github.com/amertacoffee/amerta-backend/pkg/enums"
	pkgerrors "github.com/amertacoffee/amerta-backend/pkg/errors"
	"github.com/amertacoffee/amerta-backend/pkg/outbox"
	"github.com/amertacoffee/amerta-backend/pkg/outbox/payloads"
	"github.com/amertacoffee/amerta-backend/pkg/pagination"
)

// Service exposes catalog browse and admin management operations.
type Service interface {
	ListProducts(ctx context.Context, params pagination.Params, filters ListFilters) (*ProductListResult, error)
	GetProductBySlug(ctx context.Context, slug string) (*ProductDTO, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	CreateProduct(ctx context.Context, actorID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, actorID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, actorID, productID uuid.UUID) error
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string
	Description string
	SKU         *string
	ImageURLs   []string
	PriceCents  int
	StockQty    int
	IsAvailable bool
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name        *string
	Description *string
	SKU         *string
	ImageURLs   *[]string
	PriceCents  *int
	StockQty    *int
	IsAvailable *bool
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// service implements the product service.
type service struct {
	repo     *Repository
	dbClient *db.Client
	events   eventEmitter
}

// NewService constructs a product service instance.
func NewService(repo *Repository, dbClient *db.Client, events eventEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{repo: repo, dbClient: dbClient, events: events}, nil
}

// ListProducts returns one public catalog page.
func (s *service) ListProducts(ctx context.Context, params pagination.Params, filters ListFilters) (*ProductListResult, error) {
	rows, total, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	result := &ProductListResult{
		Products: make([]ProductDTO, 0, len(rows)),
		Meta:     pagination.MetaFor(params, total),
	}
	for i := range rows {
		result.Products = append(result.Products, *NewProductDTO(&rows[i]))
	}
	return result, nil
}

// GetProductBySlug loads a single product for its public detail page.
func (s *service) GetProductBySlug(ctx context.Context, slug string) (*ProductDTO, error) {
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	row, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product by slug")
	}
	return NewProductDTO(row), nil
}

// GetProductByID loads a single product by primary key.
func (s *service) GetProductByID(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return NewProductDTO(row), nil
}

// CreateProduct inserts a catalog listing with a derived slug.
func (s *service) CreateProduct(ctx context.Context, actorID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	row := &models.Product{
		Name:        input.Name,
		Slug:        Slugify(input.Name),
		Description: input.Description,
		SKU:         input.SKU,
		ImageURLs:   input.ImageURLs,
		PriceCents:  input.PriceCents,
		StockQty:    input.StockQty,
		IsAvailable: input.IsAvailable && input.StockQty > 0,
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.Create(ctx, row); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "product name already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert product")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductCreated,
			AggregateType: enums.AggregateProduct,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{UserID: actorID, Role: enums.RoleAdmin.String()},
			Data:          payloads.ProductChangedEvent{ProductID: row.ID, Slug: row.Slug, Change: "created"},
			Version:       1,
		})
	}); err != nil {
		return nil, err
	}

	return NewProductDTO(row), nil
}

// UpdateProduct applies partial changes and refreshes the slug on rename.
func (s *service) UpdateProduct(ctx context.Context, actorID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	var updated *models.Product

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		row, err := txRepo.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		applyUpdate(row, input)
		if err := validateProductRow(row); err != nil {
			return err
		}

		if _, err := txRepo.Update(ctx, row); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "product name already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
		}
		updated = row
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductUpdated,
			AggregateType: enums.AggregateProduct,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{UserID: actorID, Role: enums.RoleAdmin.String()},
			Data:          payloads.ProductChangedEvent{ProductID: row.ID, Slug: row.Slug, Change: "updated"},
			Version:       1,
		})
	}); err != nil {
		return nil, err
	}

	return NewProductDTO(updated), nil
}

// DeleteProduct removes a catalog listing. A product that appears on any
// order is kept so the order history stays referentially intact; carted
// lines do not block deletion and are dropped with the product.
func (s *service) DeleteProduct(ctx context.Context, actorID, productID uuid.UUID) error {
	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		row, err := txRepo.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		sold, err := txRepo.CountOrderReferences(ctx, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count order references")
		}
		if sold > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "product appears on existing orders").
				WithDetails(map[string]any{"product_id": productID})
		}

		if err := txRepo.RemoveFromCarts(ctx, productID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove product from carts")
		}
		if err := txRepo.Delete(ctx, productID); err != nil {
			if db.IsForeignKeyViolation(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "product appears on existing orders").
					WithDetails(map[string]any{"product_id": productID})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductDeleted,
			AggregateType: enums.AggregateProduct,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{UserID: actorID, Role: enums.RoleAdmin.String()},
			Data:          payloads.ProductChangedEvent{ProductID: row.ID, Slug: row.Slug, Change: "deleted"},
			Version:       1,
		})
	})
}

func validateCreateInput(input CreateProductInput) error {
	if input.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if Slugify(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name must contain letters or digits")
	}
	if input.PriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price_cents cannot be negative")
	}
	if input.StockQty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock_qty cannot be negative")
	}
	return nil
}

func validateProductRow(row *models.Product) error {
	if row.Name == "" || row.Slug == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if row.PriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price_cents cannot be negative")
	}
	if row.StockQty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock_qty cannot be negative")
	}
	return nil
}

func applyUpdate(row *models.Product, input UpdateProductInput) {
	if input.Name != nil {
		row.Name = *input.Name
		row.Slug = Slugify(*input.Name)
	}
	if input.Description != nil {
		row.Description = *input.Description
	}
	if input.SKU != nil {
		row.SKU = input.SKU
	}
	if input.ImageURLs != nil {
		row.ImageURLs = *input.ImageURLs
	}
	if input.PriceCents != nil {
		row.PriceCents = *input.PriceCents
	}
	if input.StockQty != nil {
		row.StockQty = *input.StockQty
	}
	if input.IsAvailable != nil {
		row.IsAvailable = *input.IsAvailable
	}
	// Zero stock always delists, whatever the flag said.
	if row.StockQty <= 0 {
		row.IsAvailable = false
	}
}
