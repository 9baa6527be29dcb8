package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/amertacoffee/amerta-backend/pkg/db/models"
	pkgerrors "github.com/amertacoffee/amerta-backend/pkg/errors"
	"github.com/amertacoffee/amerta-backend/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func seedOrder(t *testing.T, repo Repository, userID uuid.UUID, invoice string, lines ...models.OrderItem) *models.Order {
	t.Helper()
	total := 0
	for _, line := range lines {
		total += line.UnitPriceCents * line.Quantity
	}
	order, err := repo.Create(context.Background(), &models.Order{
		UserID:        userID,
		InvoiceNumber: invoice,
		TotalCents:    total,
		Items:         lines,
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func TestGetOrderReturnsFrozenLines(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	userID := uuid.New()

	seeded := seedOrder(t, repo, userID, "INV-010925-123456",
		models.OrderItem{ProductID: uuid.New(), ProductName: "Gayo Arabica Beans", UnitPriceCents: 15900, Quantity: 2},
		models.OrderItem{ProductID: uuid.New(), ProductName: "Drip Bag Sampler", UnitPriceCents: 4500, Quantity: 1},
	)

	dto, err := svc.GetOrder(context.Background(), userID, seeded.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if dto.InvoiceNumber != "INV-010925-123456" {
		t.Fatalf("invoice = %q", dto.InvoiceNumber)
	}
	if dto.TotalCents != 36300 {
		t.Fatalf("total = %d", dto.TotalCents)
	}
	if len(dto.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(dto.Items))
	}
	if dto.Items[0].LineSubtotalCents != 31800 {
		t.Fatalf("first line subtotal = %d", dto.Items[0].LineSubtotalCents)
	}
}

func TestGetOrderHidesForeignOrders(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	owner := uuid.New()
	seeded := seedOrder(t, repo, owner, "INV-010925-222222",
		models.OrderItem{ProductID: uuid.New(), ProductName: "House Blend", UnitPriceCents: 8000, Quantity: 1},
	)

	_, err = svc.GetOrder(context.Background(), uuid.New(), seeded.ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for foreign order, got %v", err)
	}
}

func TestListOrdersPaginatesNewestFirst(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	userID := uuid.New()

	invoices := []string{"INV-010925-000001", "INV-010925-000002", "INV-010925-000003"}
	for i, invoice := range invoices {
		order := seedOrder(t, repo, userID, invoice,
			models.OrderItem{ProductID: uuid.New(), ProductName: "Beans", UnitPriceCents: 1000, Quantity: i + 1},
		)
		// Spread created_at so ordering is deterministic.
		createdAt := time.Now().Add(time.Duration(i) * time.Second)
		if err := conn.Model(&models.Order{}).Where("id = ?", order.ID).Update("created_at", createdAt).Error; err != nil {
			t.Fatalf("backdate order: %v", err)
		}
	}
	// An unrelated user's order must never leak into the page.
	seedOrder(t, repo, uuid.New(), "INV-010925-999999",
		models.OrderItem{ProductID: uuid.New(), ProductName: "Beans", UnitPriceCents: 1000, Quantity: 1},
	)

	page, err := svc.ListOrders(context.Background(), userID, pagination.Params{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(page.Orders) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(page.Orders))
	}
	if page.Orders[0].InvoiceNumber != "INV-010925-000003" {
		t.Fatalf("expected newest first, got %q", page.Orders[0].InvoiceNumber)
	}
	if page.Meta.Total != 3 || page.Meta.TotalPages != 2 {
		t.Fatalf("meta = %+v", page.Meta)
	}
	if page.Orders[0].TotalItems != 3 {
		t.Fatalf("total items = %d", page.Orders[0].TotalItems)
	}

	second, err := svc.ListOrders(context.Background(), userID, pagination.Params{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	if len(second.Orders) != 1 {
		t.Fatalf("expected 1 row on page 2, got %d", len(second.Orders))
	}
}
