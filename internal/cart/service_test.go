package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	product "github.com/amertacoffee/amerta-backend/internal/products"
	dbpkg "github.com/amertacoffee/amerta-backend/pkg/db"
	"github.com/amertacoffee/amerta-backend/pkg/db/models"
	pkgerrors "github.com/amertacoffee/amerta-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Product{}, &models.Cart{}, &models.CartItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := newTestDB(t)
	svc, err := NewService(NewRepository(conn), product.NewRepository(conn), dbpkg.NewWithConn(conn))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func seedProduct(t *testing.T, conn *gorm.DB, name string, priceCents, stock int, available bool) *models.Product {
	t.Helper()
	row := &models.Product{
		Name:        name,
		Slug:        product.Slugify(name),
		Description: "d",
		PriceCents:  priceCents,
		StockQty:    stock,
		IsAvailable: available,
	}
	if err := conn.Create(row).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return row
}

func TestGetCartCreatesEmptyCartOnFirstAccess(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	dto, err := svc.GetCart(ctx, userID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if dto.UserID != userID {
		t.Fatalf("cart owner mismatch: %s", dto.UserID)
	}
	if len(dto.Items) != 0 || dto.TotalCents != 0 {
		t.Fatalf("expected empty cart, got %d items total %d", len(dto.Items), dto.TotalCents)
	}

	again, err := svc.GetCart(ctx, userID)
	if err != nil {
		t.Fatalf("get cart again: %v", err)
	}
	if again.ID != dto.ID {
		t.Fatalf("expected the same cart, got %s and %s", dto.ID, again.ID)
	}

	var carts int64
	if err := conn.Model(&models.Cart{}).Count(&carts).Error; err != nil {
		t.Fatalf("count carts: %v", err)
	}
	if carts != 1 {
		t.Fatalf("expected 1 cart row, got %d", carts)
	}
}

func TestAddItemComputesLineSubtotalsAndTotal(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	beans := seedProduct(t, conn, "Gayo Arabica Beans", 15900, 10, true)
	drip := seedProduct(t, conn, "Drip Bag Sampler", 4500, 10, true)

	if _, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: beans.ID, Quantity: 2}); err != nil {
		t.Fatalf("add beans: %v", err)
	}
	dto, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: drip.ID, Quantity: 3})
	if err != nil {
		t.Fatalf("add drip bags: %v", err)
	}

	if len(dto.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(dto.Items))
	}
	if dto.Items[0].LineSubtotalCents != 31800 {
		t.Fatalf("beans subtotal = %d", dto.Items[0].LineSubtotalCents)
	}
	if dto.Items[1].LineSubtotalCents != 13500 {
		t.Fatalf("drip subtotal = %d", dto.Items[1].LineSubtotalCents)
	}
	if dto.TotalCents != 45300 {
		t.Fatalf("cart total = %d", dto.TotalCents)
	}
}

func TestAddItemMergesQuantitiesOntoExistingLine(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	beans := seedProduct(t, conn, "Toraja Robusta", 12000, 5, true)

	if _, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: beans.ID, Quantity: 2}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	dto, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: beans.ID, Quantity: 3})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}

	if len(dto.Items) != 1 {
		t.Fatalf("expected a single merged line, got %d", len(dto.Items))
	}
	if dto.Items[0].Quantity != 5 {
		t.Fatalf("merged quantity = %d", dto.Items[0].Quantity)
	}
}

func TestAddItemRejectsQuantityBeyondStock(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	beans := seedProduct(t, conn, "Kintamani Natural", 18000, 4, true)

	if _, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: beans.ID, Quantity: 3}); err != nil {
		t.Fatalf("first add: %v", err)
	}

	_, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: beans.ID, Quantity: 2})
	if !pkgerrors.HasCode(err, pkgerrors.CodeOutOfStock) {
		t.Fatalf("expected out of stock, got %v", err)
	}

	details, ok := pkgerrors.As(err).Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", pkgerrors.As(err).Details())
	}
	if details["requested"] != 5 || details["available"] != 4 {
		t.Fatalf("unexpected details %v", details)
	}

	dto, err := svc.GetCart(ctx, userID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if dto.Items[0].Quantity != 3 {
		t.Fatalf("rejected add must not change the line, got quantity %d", dto.Items[0].Quantity)
	}
}

func TestAddItemRejectsUnavailableAndUnknownProducts(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	hidden := seedProduct(t, conn, "Seasonal Blend", 9900, 10, false)

	_, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: hidden.ID, Quantity: 1})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}

	_, err = svc.AddItem(ctx, userID, AddItemInput{ProductID: uuid.New(), Quantity: 1})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddItemValidation(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	beans := seedProduct(t, conn, "House Blend", 8000, 200, true)

	cases := []struct {
		name  string
		input AddItemInput
	}{
		{name: "zero quantity", input: AddItemInput{ProductID: beans.ID, Quantity: 0}},
		{name: "negative quantity", input: AddItemInput{ProductID: beans.ID, Quantity: -2}},
		{name: "over per-line limit", input: AddItemInput{ProductID: beans.ID, Quantity: MaxLineQuantity + 1}},
		{name: "missing product", input: AddItemInput{Quantity: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddItem(ctx, uuid.New(), tc.input)
			if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUpdateItemReplacesQuantity(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	beans := seedProduct(t, conn, "Flores Bajawa", 14000, 10, true)

	dto, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: beans.ID, Quantity: 6})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	updated, err := svc.UpdateItem(ctx, userID, dto.Items[0].ID, UpdateItemInput{Quantity: 2})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Items[0].Quantity != 2 {
		t.Fatalf("quantity must be replaced not merged, got %d", updated.Items[0].Quantity)
	}

	_, err = svc.UpdateItem(ctx, userID, dto.Items[0].ID, UpdateItemInput{Quantity: 11})
	if !pkgerrors.HasCode(err, pkgerrors.CodeOutOfStock) {
		t.Fatalf("expected out of stock, got %v", err)
	}
}

func TestRemoveItemDeletesLine(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	beans := seedProduct(t, conn, "Java Preanger", 13000, 10, true)

	dto, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: beans.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	after, err := svc.RemoveItem(ctx, userID, dto.Items[0].ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(after.Items) != 0 {
		t.Fatalf("expected empty cart after removal, got %d lines", len(after.Items))
	}

	_, err = svc.RemoveItem(ctx, userID, dto.Items[0].ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found on second removal, got %v", err)
	}
}

func TestCartLinesAreScopedToTheirOwner(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	intruder := uuid.New()

	beans := seedProduct(t, conn, "Mandheling Grade 1", 16000, 10, true)

	dto, err := svc.AddItem(ctx, owner, AddItemInput{ProductID: beans.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	_, err = svc.UpdateItem(ctx, intruder, dto.Items[0].ID, UpdateItemInput{Quantity: 1})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for foreign update, got %v", err)
	}
	_, err = svc.RemoveItem(ctx, intruder, dto.Items[0].ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for foreign removal, got %v", err)
	}

	ownerCart, err := svc.GetCart(ctx, owner)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(ownerCart.Items) != 1 || ownerCart.Items[0].Quantity != 2 {
		t.Fatalf("owner cart must be untouched, got %+v", ownerCart.Items)
	}
}

func TestSetItemQuantityEnforcesStockAtWriteTime(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	beans := seedProduct(t, conn, "Lintong Peaberry", 17000, 5, true)

	dto, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: beans.ID, Quantity: 3})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	itemID := dto.Items[0].ID

	// A checkout drains the stock after the line was validated. The write
	// itself must refuse a quantity the remaining stock cannot cover.
	if err := conn.Model(&models.Product{}).
		Where("id = ?", beans.ID).
		Update("stock_qty", 0).Error; err != nil {
		t.Fatalf("drain stock: %v", err)
	}

	repo := NewRepository(conn)
	ok, err := repo.SetItemQuantity(ctx, itemID, 5)
	if err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if ok {
		t.Fatalf("write must be refused once stock is gone")
	}

	var line models.CartItem
	if err := conn.First(&line, "id = ?", itemID).Error; err != nil {
		t.Fatalf("load line: %v", err)
	}
	if line.Quantity != 3 {
		t.Fatalf("refused write must leave the line untouched, got quantity %d", line.Quantity)
	}

	// Restock and the same write goes through.
	if err := conn.Model(&models.Product{}).
		Where("id = ?", beans.ID).
		Update("stock_qty", 5).Error; err != nil {
		t.Fatalf("restock: %v", err)
	}
	ok, err = repo.SetItemQuantity(ctx, itemID, 5)
	if err != nil {
		t.Fatalf("set quantity after restock: %v", err)
	}
	if !ok {
		t.Fatalf("write must succeed when stock covers it")
	}
}

func TestAddItemCapsMergedLineQuantity(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	beans := seedProduct(t, conn, "Warehouse Lot 7", 9000, 500, true)

	if _, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: beans.ID, Quantity: 60}); err != nil {
		t.Fatalf("first add: %v", err)
	}

	_, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: beans.ID, Quantity: 50})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error at the line cap, got %v", err)
	}

	dto, err := svc.GetCart(ctx, userID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if dto.Items[0].Quantity != 60 {
		t.Fatalf("rejected merge must not change the line, got quantity %d", dto.Items[0].Quantity)
	}
}
