package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/amertacoffee/amerta-backend/pkg/errors"
	"github.com/amertacoffee/amerta-backend/pkg/pagination"
)

// Service exposes order history reads scoped to the authenticated user.
type Service interface {
	ListOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderListResult, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
}

type service struct {
	repo Repository
}

// NewService builds the orders service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

// ListOrders returns one page of the user's order history, newest first.
func (s *service) ListOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderListResult, error) {
	params = pagination.Normalize(params)

	rows, total, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	result := &OrderListResult{
		Orders: make([]OrderSummary, 0, len(rows)),
		Meta:   pagination.MetaFor(params, total),
	}
	for i := range rows {
		result.Orders = append(result.Orders, NewOrderSummary(&rows[i]))
	}
	return result, nil
}

// GetOrder loads a single order. Orders belonging to other users surface
// as not found rather than forbidden.
func (s *service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	row, err := s.repo.FindByIDAndUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return NewOrderDTO(row), nil
}
