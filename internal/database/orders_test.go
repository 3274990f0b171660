package database_test

import (
	"database/sql"
	"errors"
	"testing"

	"git.sr.ht/~jakintosh/storefront/internal/service"
	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

func TestCreateOrderFromCart(t *testing.T) {
	t.Parallel()
	store := setupStore(t)

	// setup env
	alice := insertUser(t, store, "alice")
	lamp := insertProduct(t, store, "Desk Lamp", 1999)
	shade := insertProduct(t, store, "Shade", 500)
	if _, err := store.InsertCartItem(alice.ID, lamp.ID, 2); err != nil {
		t.Fatalf("InsertCartItem failed: %v", err)
	}
	if _, err := store.InsertCartItem(alice.ID, shade.ID, 1); err != nil {
		t.Fatalf("InsertCartItem failed: %v", err)
	}

	order, err := store.CreateOrderFromCart(alice.ID, "1 Main St")
	if err != nil {
		t.Fatalf("CreateOrderFromCart failed: %v", err)
	}

	// the total is computed from the catalog
	if order.Total != 2*1999+500 {
		t.Errorf("total = %d", order.Total)
	}
	if order.Status != api.OrderPending || order.User != alice.ID || order.Address != "1 Main St" {
		t.Errorf("unexpected order: %+v", order)
	}
	if len(order.Items) != 2 || order.Items[0].Product.Name != "Desk Lamp" || order.Items[0].Quantity != 2 {
		t.Errorf("unexpected items: %+v", order.Items)
	}

	// the cart is consumed
	items, _ := store.ListCart(alice.ID)
	if len(items) != 0 {
		t.Errorf("cart still holds %d items", len(items))
	}
}

func TestCreateOrder_Lines(t *testing.T) {
	t.Parallel()
	store := setupStore(t)

	// setup env
	alice := insertUser(t, store, "alice")
	lamp := insertProduct(t, store, "Desk Lamp", 1999)
	shade := insertProduct(t, store, "Shade", 500)
	if _, err := store.InsertCartItem(alice.ID, shade.ID, 4); err != nil {
		t.Fatalf("InsertCartItem failed: %v", err)
	}

	order, err := store.CreateOrder(alice.ID, "1 Main St", []api.OrderLine{{Product: lamp.ID, Quantity: 2}})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if order.Total != 2*1999 {
		t.Errorf("total = %d", order.Total)
	}
	if len(order.Items) != 1 || order.Items[0].Product.Name != "Desk Lamp" || order.Items[0].Quantity != 2 {
		t.Errorf("unexpected items: %+v", order.Items)
	}

	// the cart is not consumed
	items, _ := store.ListCart(alice.ID)
	if len(items) != 1 || items[0].Quantity != 4 {
		t.Errorf("cart changed: %+v", items)
	}

	// an unknown product fails the whole order
	if _, err := store.CreateOrder(alice.ID, "1 Main St", []api.OrderLine{{Product: lamp.ID, Quantity: 1}, {Product: 9999, Quantity: 1}}); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
	orders, _ := store.ListOrders(alice.ID)
	if len(orders) != 1 {
		t.Errorf("expected 1 order, got %d", len(orders))
	}
}

func TestCreateOrderFromCart_Empty(t *testing.T) {
	t.Parallel()
	store := setupStore(t)

	// setup env
	alice := insertUser(t, store, "alice")

	_, err := store.CreateOrderFromCart(alice.ID, "1 Main St")
	if !errors.Is(err, service.ErrCartEmpty) {
		t.Fatalf("expected ErrCartEmpty, got %v", err)
	}
}

func TestOrderItems_KeepSnapshot(t *testing.T) {
	t.Parallel()
	store := setupStore(t)

	// setup env
	alice := insertUser(t, store, "alice")
	lamp := insertProduct(t, store, "Desk Lamp", 1999)
	if _, err := store.InsertCartItem(alice.ID, lamp.ID, 1); err != nil {
		t.Fatalf("InsertCartItem failed: %v", err)
	}
	order, err := store.CreateOrderFromCart(alice.ID, "1 Main St")
	if err != nil {
		t.Fatalf("CreateOrderFromCart failed: %v", err)
	}

	// later catalog changes do not rewrite history
	lamp.Price = 9999
	if err := store.UpdateProduct(lamp); err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}
	got, err := store.GetOrder(order.ID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if got.Items[0].Product.Price != 1999 {
		t.Errorf("line price = %d, want 1999", got.Items[0].Product.Price)
	}
}

func TestListOrders(t *testing.T) {
	t.Parallel()
	store := setupStore(t)

	// setup env
	alice := insertUser(t, store, "alice")
	bob := insertUser(t, store, "bob")
	lamp := insertProduct(t, store, "Desk Lamp", 1999)
	for _, user := range []*api.User{alice, bob} {
		if _, err := store.InsertCartItem(user.ID, lamp.ID, 1); err != nil {
			t.Fatalf("InsertCartItem failed: %v", err)
		}
		if _, err := store.CreateOrderFromCart(user.ID, "somewhere"); err != nil {
			t.Fatalf("CreateOrderFromCart failed: %v", err)
		}
	}

	mine, err := store.ListOrders(alice.ID)
	if err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}
	if len(mine) != 1 || mine[0].User != alice.ID || len(mine[0].Items) != 1 {
		t.Errorf("unexpected orders: %+v", mine)
	}

	all, err := store.ListAllOrders()
	if err != nil {
		t.Fatalf("ListAllOrders failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 orders, got %d", len(all))
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	t.Parallel()
	store := setupStore(t)

	// setup env
	alice := insertUser(t, store, "alice")
	lamp := insertProduct(t, store, "Desk Lamp", 1999)
	if _, err := store.InsertCartItem(alice.ID, lamp.ID, 1); err != nil {
		t.Fatalf("InsertCartItem failed: %v", err)
	}
	order, _ := store.CreateOrderFromCart(alice.ID, "1 Main St")

	updated, err := store.UpdateOrderStatus(order.ID, api.OrderCancelled)
	if err != nil || !updated {
		t.Fatalf("UpdateOrderStatus = %v, %v", updated, err)
	}
	got, _ := store.GetOrder(order.ID)
	if got.Status != api.OrderCancelled {
		t.Errorf("status = %q", got.Status)
	}

	if updated, _ := store.UpdateOrderStatus(999, api.OrderShipped); updated {
		t.Error("missing order should not update")
	}
}
