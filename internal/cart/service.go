package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	product "github.com/amertacoffee/amerta-backend/internal/products"
	"github.com/amertacoffee/amerta-backend/pkg/db"
	"github.com/amertacoffee/amerta-backend/pkg/db/models"
	pkgerrors "github.com/amertacoffee/amerta-backend/pkg/errors"
)

// MaxLineQuantity caps how many units a single cart line may hold.
const MaxLineQuantity = 99

// AddItemInput carries the payload for adding a product to the cart.
type AddItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gte=1"`
}

// UpdateItemInput carries the replacement quantity for a cart line.
type UpdateItemInput struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// Service exposes cart operations scoped to the authenticated user.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, input UpdateItemInput) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error)
}

type service struct {
	repo     *Repository
	products *product.Repository
	dbClient *db.Client
}

// NewService wires the cart service with its dependencies.
func NewService(repo *Repository, products *product.Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, errors.New("cart repository is required")
	}
	if products == nil {
		return nil, errors.New("product repository is required")
	}
	if dbClient == nil {
		return nil, errors.New("db client is required")
	}
	return &service{repo: repo, products: products, dbClient: dbClient}, nil
}

// GetCart returns the user's cart, creating an empty one on first access.
func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.findOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	dto := NewCartDTO(cart)
	return &dto, nil
}

// AddItem puts a product into the cart. Adding a product already in the
// cart merges quantities onto the existing line. The product read, the
// stock check and the line write run inside one transaction.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	if err := validateQuantity(input.Quantity); err != nil {
		return nil, err
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}

	cart, err := s.findOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		txProducts := s.products.WithTx(tx)

		row, err := txProducts.FindByID(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if !row.IsAvailable || row.StockQty <= 0 {
			return pkgerrors.New(pkgerrors.CodeUnavailable, "product is not available").
				WithDetails(map[string]any{"product_id": row.ID})
		}

		existing, err := txRepo.FindItemByProduct(ctx, cart.ID, row.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}

		merged := input.Quantity
		if existing != nil {
			merged += existing.Quantity
		}
		if err := checkLineCap(merged); err != nil {
			return err
		}
		if err := checkStockBound(row, merged); err != nil {
			return err
		}

		if existing != nil {
			return s.setLineQuantity(ctx, txRepo, txProducts, existing.ID, row.ID, merged)
		}

		item := &models.CartItem{CartID: cart.ID, ProductID: row.ID, Quantity: merged}
		if err := txRepo.CreateItem(ctx, item); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "cart line already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert cart line")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return s.GetCart(ctx, userID)
}

// UpdateItem replaces the quantity on a cart line. The quantity is not
// additive; callers send the final amount they want. Lookup, validation
// and the write share one transaction.
func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, input UpdateItemInput) (*CartDTO, error) {
	if err := validateQuantity(input.Quantity); err != nil {
		return nil, err
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		txProducts := s.products.WithTx(tx)

		item, err := txRepo.FindItem(ctx, itemID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}

		row, err := txProducts.FindByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if !row.IsAvailable || row.StockQty <= 0 {
			return pkgerrors.New(pkgerrors.CodeUnavailable, "product is not available").
				WithDetails(map[string]any{"product_id": row.ID})
		}
		if err := checkStockBound(row, input.Quantity); err != nil {
			return err
		}

		return s.setLineQuantity(ctx, txRepo, txProducts, item.ID, row.ID, input.Quantity)
	}); err != nil {
		return nil, err
	}

	return s.GetCart(ctx, userID)
}

// RemoveItem deletes a cart line owned by the user.
func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error) {
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		item, err := txRepo.FindItem(ctx, itemID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}

		if err := txRepo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return s.GetCart(ctx, userID)
}

// setLineQuantity writes the quantity through the stock-checked update. A
// refused write means stock moved under us, so it re-reads the product and
// reports the live shortage.
func (s *service) setLineQuantity(ctx context.Context, repo *Repository, products *product.Repository, itemID, productID uuid.UUID, quantity int) error {
	ok, err := repo.SetItemQuantity(ctx, itemID, quantity)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
	}
	if ok {
		return nil
	}

	fresh, err := products.FindByID(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return pkgerrors.New(pkgerrors.CodeOutOfStock, "requested quantity exceeds available stock").
		WithDetails(map[string]any{
			"product_id": productID,
			"requested":  quantity,
			"available":  fresh.StockQty,
		})
}

func (s *service) findOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	created, err := s.repo.Create(ctx, &models.Cart{UserID: userID})
	if err != nil {
		// Another request may have created the cart concurrently.
		if db.IsUniqueViolation(err, "") {
			return s.repo.FindByUser(ctx, userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	created.Items = []models.CartItem{}
	return created, nil
}

func validateQuantity(quantity int) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	return checkLineCap(quantity)
}

func checkLineCap(quantity int) error {
	if quantity > MaxLineQuantity {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the per-line limit").
			WithDetails(map[string]any{"max_quantity": MaxLineQuantity})
	}
	return nil
}

func checkStockBound(product *models.Product, requested int) error {
	if requested > product.StockQty {
		return pkgerrors.New(pkgerrors.CodeOutOfStock, "requested quantity exceeds available stock").
			WithDetails(map[string]any{
				"product_id": product.ID,
				"requested":  requested,
				"available":  product.StockQty,
			})
	}
	return nil
}
