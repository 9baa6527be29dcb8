package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/amertacoffee/amerta-backend/api/middleware"
	cartsvc "github.com/amertacoffee/amerta-backend/internal/cart"
	"github.com/amertacoffee/amerta-backend/pkg/logger"
)

func TestCartUpdateItem(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	userID := uuid.New()
	itemID := uuid.New()

	makeRequest := func(ctx context.Context, itemParam, body string, svc *stubCartService) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/cart/items/"+itemParam, strings.NewReader(body))
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("itemID", itemParam)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		CartUpdateItem(svc, logg).ServeHTTP(rec, req)
		return rec
	}

	t.Run("missing user", func(t *testing.T) {
		rec := makeRequest(context.Background(), itemID.String(), `{"quantity":2}`, &stubCartService{})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 when user missing, got %d", rec.Code)
		}
	})

	t.Run("invalid item id", func(t *testing.T) {
		ctx := middleware.WithUserID(context.Background(), userID.String())
		rec := makeRequest(ctx, "not-a-uuid", `{"quantity":2}`, &stubCartService{})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for invalid id, got %d", rec.Code)
		}
	})

	t.Run("zero quantity rejected", func(t *testing.T) {
		ctx := middleware.WithUserID(context.Background(), userID.String())
		stub := &stubCartService{}
		rec := makeRequest(ctx, itemID.String(), `{"quantity":0}`, stub)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for zero quantity, got %d", rec.Code)
		}
		if stub.updateCalled {
			t.Fatalf("service should not be invoked on validation failure")
		}
	})

	t.Run("success", func(t *testing.T) {
		ctx := middleware.WithUserID(context.Background(), userID.String())
		stub := &stubCartService{}
		rec := makeRequest(ctx, itemID.String(), `{"quantity":3}`, stub)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 on success, got %d", rec.Code)
		}
		if !stub.updateCalled {
			t.Fatalf("expected UpdateItem to be invoked")
		}
		if stub.lastItemID != itemID {
			t.Fatalf("update called with wrong item id")
		}
		if stub.lastQuantity != 3 {
			t.Fatalf("update called with quantity %d", stub.lastQuantity)
		}
	})
}

func TestCartAddItemRejectsUnknownFields(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	ctx := middleware.WithUserID(context.Background(), uuid.NewString())

	body := `{"product_id":"` + uuid.NewString() + `","quantity":1,"price_cents":1}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	CartAddItem(&stubCartService{}, logg).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}

type stubCartService struct {
	updateCalled bool
	lastItemID   uuid.UUID
	lastQuantity int
}

func (s *stubCartService) GetCart(ctx context.Context, userID uuid.UUID) (*cartsvc.CartDTO, error) {
	return &cartsvc.CartDTO{UserID: userID}, nil
}

func (s *stubCartService) AddItem(ctx context.Context, userID uuid.UUID, input cartsvc.AddItemInput) (*cartsvc.CartDTO, error) {
	return &cartsvc.CartDTO{UserID: userID}, nil
}

func (s *stubCartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, input cartsvc.UpdateItemInput) (*cartsvc.CartDTO, error) {
	s.updateCalled = true
	s.lastItemID = itemID
	s.lastQuantity = input.Quantity
	return &cartsvc.CartDTO{UserID: userID}, nil
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*cartsvc.CartDTO, error) {
	return &cartsvc.CartDTO{UserID: userID}, nil
}
