package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"apteka/internal/domain"
	"apteka/internal/repository"
)

const seedDate = "2024-01-01"

func setup(t *testing.T) (*InventoryService, *OrderService, *SimulationService) {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := repository.NewSQLStore(db)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := store.Seed(ctx, seedDate); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ordersRepo := repository.NewSQLOrders(store)
	itemsRepo := repository.NewSQLItems(store)

	is := NewInventoryService(store)
	os := NewOrderService(store, ordersRepo, itemsRepo, store, store)
	ss := NewSimulationService(store, ordersRepo, itemsRepo, store, store, func() int { return 0 })
	return is, os, ss
}

func stockOf(t *testing.T, is *InventoryService, drugID string) int {
	t.Helper()
	d, err := is.GetByID(context.Background(), drugID)
	if err != nil {
		t.Fatalf("get drug %s: %v", drugID, err)
	}
	return d.Stock
}

func itemsOf(t *testing.T, os *OrderService, orderID string) []domain.OrderItem {
	t.Helper()
	orders, err := os.List(context.Background())
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	for _, o := range orders {
		if o.ID == orderID {
			return o.Items
		}
	}
	t.Fatalf("order %s not found", orderID)
	return nil
}

func TestCreateOrderValidation(t *testing.T) {
	ctx := context.Background()
	_, os, _ := setup(t)

	if _, err := os.CreateOrder(ctx, "", "", "2024-01-05", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty customer: expected ErrInvalidInput, got %v", err)
	}
	if _, err := os.CreateOrder(ctx, "", "Иванов", "05.01.2024", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad date format: expected ErrInvalidInput, got %v", err)
	}
	// без нулей слева дата ломает лексикографическое сравнение
	if _, err := os.CreateOrder(ctx, "", "Иванов", "2024-1-5", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("non-padded date: expected ErrInvalidInput, got %v", err)
	}
	// дата раньше симулируемой текущей
	if _, err := os.CreateOrder(ctx, "", "Иванов", "2023-12-31", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("past date: expected ErrInvalidInput, got %v", err)
	}

	o, err := os.CreateOrder(ctx, "", "Иванов", seedDate, []string{"d2", "d2", "", "d4"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.ID == "" {
		t.Fatal("expected generated id")
	}
	if len(o.PrescriptionForDrugIDs) != 2 {
		t.Fatalf("duplicates not collapsed: %+v", o.PrescriptionForDrugIDs)
	}
}

// Сценарий: рецептурный препарат d2 (остаток 20)
func TestPrescriptionDrugScenario(t *testing.T) {
	ctx := context.Background()
	is, os, _ := setup(t)

	o1, err := os.CreateOrder(ctx, "o1", "Иванов", "2024-01-10", []string{"d2"})
	if err != nil {
		t.Fatalf("create o1: %v", err)
	}

	// больше остатка — отказ, остаток не тронут
	if err := os.AddItem(ctx, o1.ID, "d2", 25); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if got := stockOf(t, is, "d2"); got != 20 {
		t.Fatalf("stock changed on failure: %d", got)
	}

	if err := os.AddItem(ctx, o1.ID, "d2", 5); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if got := stockOf(t, is, "d2"); got != 15 {
		t.Fatalf("expected stock 15, got %d", got)
	}
	items := itemsOf(t, os, o1.ID)
	if len(items) != 1 || items[0].Quantity != 5 {
		t.Fatalf("expected one item quantity 5: %+v", items)
	}

	// перенос в заказ без рецепта запрещён и ничего не меняет
	o2, err := os.CreateOrder(ctx, "o2", "Петров", "2024-01-10", nil)
	if err != nil {
		t.Fatalf("create o2: %v", err)
	}
	if err := os.MoveItem(ctx, items[0].ID, o1.ID, o2.ID); !errors.Is(err, ErrPrescriptionRequired) {
		t.Fatalf("expected ErrPrescriptionRequired, got %v", err)
	}
	if got := stockOf(t, is, "d2"); got != 15 {
		t.Fatalf("stock changed on denied move: %d", got)
	}
	if items := itemsOf(t, os, o1.ID); len(items) != 1 {
		t.Fatalf("item left source order: %+v", items)
	}
	if items := itemsOf(t, os, o2.ID); len(items) != 0 {
		t.Fatalf("item appeared in target order: %+v", items)
	}
}

func TestAddItemMergesSameDrug(t *testing.T) {
	ctx := context.Background()
	is, os, _ := setup(t)

	o, _ := os.CreateOrder(ctx, "o1", "Иванов", "2024-01-10", nil)
	if err := os.AddItem(ctx, o.ID, "d1", 3); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := os.AddItem(ctx, o.ID, "d1", 4); err != nil {
		t.Fatalf("second add: %v", err)
	}

	items := itemsOf(t, os, o.ID)
	if len(items) != 1 || items[0].Quantity != 7 {
		t.Fatalf("expected merged item quantity 7: %+v", items)
	}
	if got := stockOf(t, is, "d1"); got != 93 {
		t.Fatalf("expected stock 93, got %d", got)
	}
}

func TestAddItemErrors(t *testing.T) {
	ctx := context.Background()
	is, os, _ := setup(t)
	o, _ := os.CreateOrder(ctx, "o1", "Иванов", "2024-01-10", nil)

	if err := os.AddItem(ctx, o.ID, "d1", 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero quantity: %v", err)
	}
	if err := os.AddItem(ctx, "missing", "d1", 1); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing order: %v", err)
	}
	if err := os.AddItem(ctx, o.ID, "missing", 1); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing drug: %v", err)
	}
	// d2 рецептурный, рецепта в заказе нет
	if err := os.AddItem(ctx, o.ID, "d2", 1); !errors.Is(err, ErrPrescriptionRequired) {
		t.Fatalf("expected ErrPrescriptionRequired, got %v", err)
	}
	if got := stockOf(t, is, "d2"); got != 20 {
		t.Fatalf("stock changed on denied add: %d", got)
	}
}

func TestUpdateQuantity(t *testing.T) {
	ctx := context.Background()
	is, os, _ := setup(t)
	o, _ := os.CreateOrder(ctx, "o1", "Иванов", "2024-01-10", []string{"d2"})
	if err := os.AddItem(ctx, o.ID, "d2", 5); err != nil {
		t.Fatalf("add: %v", err)
	}
	itemID := itemsOf(t, os, o.ID)[0].ID

	if err := os.UpdateQuantity(ctx, o.ID, itemID, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero delta: %v", err)
	}
	if err := os.UpdateQuantity(ctx, o.ID, "missing", 1); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing item: %v", err)
	}
	if err := os.UpdateQuantity(ctx, o.ID, itemID, 100); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	if err := os.UpdateQuantity(ctx, o.ID, itemID, 3); err != nil {
		t.Fatalf("increase: %v", err)
	}
	if got := stockOf(t, is, "d2"); got != 12 {
		t.Fatalf("expected stock 12, got %d", got)
	}
	if items := itemsOf(t, os, o.ID); items[0].Quantity != 8 {
		t.Fatalf("expected quantity 8: %+v", items)
	}

	if err := os.UpdateQuantity(ctx, o.ID, itemID, -2); err != nil {
		t.Fatalf("decrease: %v", err)
	}
	if got := stockOf(t, is, "d2"); got != 14 {
		t.Fatalf("expected stock 14, got %d", got)
	}
	if items := itemsOf(t, os, o.ID); items[0].Quantity != 6 {
		t.Fatalf("expected quantity 6: %+v", items)
	}
}

// Дельта больше количества: позиция удаляется, на склад возвращается |delta|
// целиком — закон сохранения, а не потолок исходного остатка.
func TestUpdateQuantityBelowZeroDeletesItem(t *testing.T) {
	ctx := context.Background()
	is, os, _ := setup(t)
	o, _ := os.CreateOrder(ctx, "o1", "Иванов", "2024-01-10", []string{"d2"})
	if err := os.AddItem(ctx, o.ID, "d2", 5); err != nil {
		t.Fatalf("add: %v", err)
	}
	itemID := itemsOf(t, os, o.ID)[0].ID

	if err := os.UpdateQuantity(ctx, o.ID, itemID, -10); err != nil {
		t.Fatalf("decrease: %v", err)
	}
	if items := itemsOf(t, os, o.ID); len(items) != 0 {
		t.Fatalf("item not deleted: %+v", items)
	}
	if got := stockOf(t, is, "d2"); got != 25 {
		t.Fatalf("expected stock 25, got %d", got)
	}
}

func TestRemoveItem(t *testing.T) {
	ctx := context.Background()
	is, os, _ := setup(t)
	o, _ := os.CreateOrder(ctx, "o1", "Иванов", "2024-01-10", nil)
	if err := os.AddItem(ctx, o.ID, "d3", 7); err != nil {
		t.Fatalf("add: %v", err)
	}
	itemID := itemsOf(t, os, o.ID)[0].ID

	if err := os.RemoveItem(ctx, o.ID, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing item: %v", err)
	}
	if err := os.RemoveItem(ctx, o.ID, itemID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := stockOf(t, is, "d3"); got != 50 {
		t.Fatalf("stock not restored: %d", got)
	}
	if items := itemsOf(t, os, o.ID); len(items) != 0 {
		t.Fatalf("item still present: %+v", items)
	}
}

func TestDeleteOrderReturnsAllStock(t *testing.T) {
	ctx := context.Background()
	is, os, _ := setup(t)
	o, _ := os.CreateOrder(ctx, "o1", "Иванов", "2024-01-10", []string{"d2"})
	if err := os.AddItem(ctx, o.ID, "d1", 10); err != nil {
		t.Fatalf("add d1: %v", err)
	}
	if err := os.AddItem(ctx, o.ID, "d2", 5); err != nil {
		t.Fatalf("add d2: %v", err)
	}

	if err := os.DeleteOrder(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing order: %v", err)
	}
	if err := os.DeleteOrder(ctx, o.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := stockOf(t, is, "d1"); got != 100 {
		t.Fatalf("d1 stock not restored: %d", got)
	}
	if got := stockOf(t, is, "d2"); got != 20 {
		t.Fatalf("d2 stock not restored: %d", got)
	}
	orders, _ := os.List(ctx)
	if len(orders) != 0 {
		t.Fatalf("order still present: %+v", orders)
	}
}

func TestMoveItemReparentsAndMerges(t *testing.T) {
	ctx := context.Background()
	is, os, _ := setup(t)
	o1, _ := os.CreateOrder(ctx, "o1", "Иванов", "2024-01-10", nil)
	o2, _ := os.CreateOrder(ctx, "o2", "Петров", "2024-01-10", nil)

	if err := os.AddItem(ctx, o1.ID, "d1", 4); err != nil {
		t.Fatalf("add: %v", err)
	}
	itemID := itemsOf(t, os, o1.ID)[0].ID

	if err := os.MoveItem(ctx, itemID, o1.ID, o1.ID); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("same order: %v", err)
	}
	if err := os.MoveItem(ctx, itemID, o1.ID, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing target: %v", err)
	}
	if err := os.MoveItem(ctx, "missing", o1.ID, o2.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing item: %v", err)
	}

	// простой перенос
	if err := os.MoveItem(ctx, itemID, o1.ID, o2.ID); err != nil {
		t.Fatalf("move: %v", err)
	}
	if items := itemsOf(t, os, o1.ID); len(items) != 0 {
		t.Fatalf("item still in source: %+v", items)
	}
	moved := itemsOf(t, os, o2.ID)
	if len(moved) != 1 || moved[0].ID != itemID || moved[0].Quantity != 4 {
		t.Fatalf("item not reparented: %+v", moved)
	}

	// слияние с одноимённой позицией цели
	if err := os.AddItem(ctx, o1.ID, "d1", 2); err != nil {
		t.Fatalf("add second: %v", err)
	}
	secondID := itemsOf(t, os, o1.ID)[0].ID
	if err := os.MoveItem(ctx, secondID, o1.ID, o2.ID); err != nil {
		t.Fatalf("merge move: %v", err)
	}
	merged := itemsOf(t, os, o2.ID)
	if len(merged) != 1 || merged[0].Quantity != 6 {
		t.Fatalf("quantities not merged: %+v", merged)
	}

	// остаток не менялся с момента резервирования 4+2
	if got := stockOf(t, is, "d1"); got != 94 {
		t.Fatalf("move touched stock: %d", got)
	}
}
