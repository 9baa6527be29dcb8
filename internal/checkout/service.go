package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amertacoffee/amerta-backend/internal/cart"
	"github.com/amertacoffee/amerta-backend/internal/orders"
	product "github.com/amertacoffee/amerta-backend/internal/products"
	"github.com/amertacoffee/amerta-backend/pkg/db"
	"github.com/amertacoffee/amerta-backend/pkg/db/models"
	"github.com/amertacoffee/amerta-backend/pkg/enums"
	pkgerrors "github.com/amertacoffee/amerta-backend/pkg/errors"
	"github.com/amertacoffee/amerta-backend/pkg/outbox"
	"github.com/amertacoffee/amerta-backend/pkg/outbox/payloads"
)

// invoiceAttempts bounds how many times checkout retries after an invoice
// number collision. Each retry reruns the whole transaction.
const invoiceAttempts = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service converts the user's cart into a placed order.
type Service interface {
	Execute(ctx context.Context, userID uuid.UUID) (*orders.OrderDTO, error)
}

type service struct {
	tx          txRunner
	cartRepo    *cart.Repository
	productRepo *product.Repository
	ordersRepo  orders.Repository
	outbox      outboxPublisher
	now         func() time.Time
	invoice     func(time.Time) (string, error)
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	cartRepo *cart.Repository,
	productRepo *product.Repository,
	ordersRepo orders.Repository,
	publisher outboxPublisher,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:          tx,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		ordersRepo:  ordersRepo,
		outbox:      publisher,
		now:         time.Now,
		invoice:     GenerateInvoiceNumber,
	}, nil
}

// Execute runs checkout as a single transaction: it re-validates every
// cart line against live stock, freezes names and prices into order
// lines, decrements inventory and clears the cart. Any failure rolls the
// whole attempt back, leaving cart and stock untouched.
func (s *service) Execute(ctx context.Context, userID uuid.UUID) (*orders.OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	var placed *models.Order
	var err error
	for attempt := 0; attempt < invoiceAttempts; attempt++ {
		placed, err = s.execute(ctx, userID)
		if err == nil {
			return orders.NewOrderDTO(placed), nil
		}
		// An invoice suffix collision aborts the transaction, so the
		// whole checkout reruns with a fresh number.
		if !db.IsUniqueViolation(err, "") {
			return nil, err
		}
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "allocate invoice number")
}

func (s *service) execute(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	var placed *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		record, err := cartRepo.FindByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(record.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}

		lines := make([]models.OrderItem, 0, len(record.Items))
		total := 0
		for _, item := range record.Items {
			row, err := productRepo.FindByID(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeUnavailable, "product is no longer available").
						WithDetails(map[string]any{"product_id": item.ProductID})
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
			}
			if !row.IsAvailable || row.StockQty <= 0 {
				return pkgerrors.New(pkgerrors.CodeUnavailable, "product is no longer available").
					WithDetails(map[string]any{"product_id": row.ID})
			}

			decremented, err := productRepo.DecrementStock(ctx, row.ID, item.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if !decremented {
				return pkgerrors.New(pkgerrors.CodeOutOfStock, "requested quantity exceeds available stock").
					WithDetails(map[string]any{
						"product_id": row.ID,
						"requested":  item.Quantity,
						"available":  row.StockQty,
					})
			}

			lines = append(lines, models.OrderItem{
				ProductID:      row.ID,
				ProductName:    row.Name,
				UnitPriceCents: row.PriceCents,
				Quantity:       item.Quantity,
			})
			total += row.PriceCents * item.Quantity
		}

		invoice, err := s.invoice(s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate invoice number")
		}

		placed, err = ordersRepo.Create(ctx, &models.Order{
			UserID:        userID,
			InvoiceNumber: invoice,
			TotalCents:    total,
			Items:         lines,
		})
		if err != nil {
			return err
		}

		if err := cartRepo.Delete(ctx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
		}

		eventLines := make([]payloads.OrderCreatedLine, 0, len(placed.Items))
		for _, line := range placed.Items {
			eventLines = append(eventLines, payloads.OrderCreatedLine{
				ProductID:      line.ProductID,
				ProductName:    line.ProductName,
				UnitPriceCents: line.UnitPriceCents,
				Quantity:       line.Quantity,
			})
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   placed.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: enums.RoleCustomer.String()},
			Data: payloads.OrderCreatedEvent{
				OrderID:       placed.ID,
				UserID:        userID,
				InvoiceNumber: placed.InvoiceNumber,
				TotalCents:    placed.TotalCents,
				Lines:         eventLines,
				PlacedAt:      placed.CreatedAt,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}
