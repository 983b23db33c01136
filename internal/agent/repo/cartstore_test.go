package repo

import (
	"context"
	"fmt"
	"testing"

	"github.com/aroundyou/commerce-agent/internal/agent/model"
)

type fakeLookup struct {
	items map[string]map[string]model.Item // shopID -> itemID -> item
}

func (f *fakeLookup) LookupItem(ctx context.Context, shopID, itemID string) (*model.Item, error) {
	item, ok := f.items[shopID][itemID]
	if !ok {
		return nil, fmt.Errorf("item %s not found in shop %s", itemID, shopID)
	}
	return &item, nil
}

func newTestCartStore() *MemoryCartStore {
	return NewMemoryCartStore(&fakeLookup{items: map[string]map[string]model.Item{
		"shop-a": {
			"oreo": {ID: "oreo", ShopID: "shop-a", Name: "Oreo Mini", Price: 70, InStock: true},
			"rio":  {ID: "rio", ShopID: "shop-a", Name: "Rio Biscuit", Price: 50, InStock: true},
			"gone": {ID: "gone", ShopID: "shop-a", Name: "Sold Out Snack", Price: 10, InStock: false},
		},
		"shop-b": {
			"milk": {ID: "milk", ShopID: "shop-b", Name: "Milk 1L", Price: 290, InStock: true},
		},
	}})
}

func TestAddItemAccumulatesQuantity(t *testing.T) {
	ctx := context.Background()
	s := newTestCartStore()

	cart, err := s.AddItem(ctx, "shop-a", "oreo", 2)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if cart.TotalItems != 2 {
		t.Errorf("total items: %d", cart.TotalItems)
	}

	cart, err = s.AddItem(ctx, "shop-a", "oreo", 3)
	if err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if len(cart.Lines) != 1 || cart.Lines[0].Quantity != 5 {
		t.Errorf("expected one line with quantity 5, got %+v", cart.Lines)
	}
	if cart.TotalPrice != 5*70 {
		t.Errorf("total price: %v", cart.TotalPrice)
	}
}

func TestAddItemValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestCartStore()

	if _, err := s.AddItem(ctx, "shop-a", "oreo", 0); err == nil {
		t.Error("expected error for zero quantity")
	}
	if _, err := s.AddItem(ctx, "shop-a", "missing", 1); err == nil {
		t.Error("expected error for unknown item")
	}
	if _, err := s.AddItem(ctx, "shop-a", "gone", 1); err == nil {
		t.Error("expected error for out-of-stock item")
	}
	if s.HasCart("shop-a") {
		t.Error("failed adds must not create a cart")
	}
}

func TestCartsAreIsolatedPerShop(t *testing.T) {
	ctx := context.Background()
	s := newTestCartStore()

	if _, err := s.AddItem(ctx, "shop-a", "oreo", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddItem(ctx, "shop-b", "milk", 2); err != nil {
		t.Fatal(err)
	}

	cartA, _ := s.GetCart(ctx, "shop-a")
	cartB, _ := s.GetCart(ctx, "shop-b")
	if cartA.TotalItems != 1 || cartB.TotalItems != 2 {
		t.Errorf("carts bled into each other: a=%d b=%d", cartA.TotalItems, cartB.TotalItems)
	}

	all, err := s.GetAllCarts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 carts, got %d", len(all))
	}
}

func TestRemoveItemPartialAndFull(t *testing.T) {
	ctx := context.Background()
	s := newTestCartStore()
	if _, err := s.AddItem(ctx, "shop-a", "oreo", 5); err != nil {
		t.Fatal(err)
	}

	cart, err := s.RemoveItem(ctx, "shop-a", "oreo", 2)
	if err != nil {
		t.Fatal(err)
	}
	if cart.Lines[0].Quantity != 3 {
		t.Errorf("expected 3 left, got %d", cart.Lines[0].Quantity)
	}

	// Zero quantity removes the whole line, and the now-empty cart goes away.
	cart, err = s.RemoveItem(ctx, "shop-a", "oreo", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(cart.Lines) != 0 {
		t.Errorf("line should be gone: %+v", cart.Lines)
	}
	if s.HasCart("shop-a") {
		t.Error("empty cart should be removed entirely")
	}
}

func TestRemoveItemErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestCartStore()
	if _, err := s.RemoveItem(ctx, "shop-a", "oreo", 1); err == nil {
		t.Error("expected error removing from nonexistent cart")
	}
	if _, err := s.AddItem(ctx, "shop-a", "oreo", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RemoveItem(ctx, "shop-a", "rio", 1); err == nil {
		t.Error("expected error removing item not in cart")
	}
}

func TestUpdateQuantity(t *testing.T) {
	ctx := context.Background()
	s := newTestCartStore()
	if _, err := s.AddItem(ctx, "shop-a", "oreo", 1); err != nil {
		t.Fatal(err)
	}

	cart, err := s.UpdateQuantity(ctx, "shop-a", "oreo", 7)
	if err != nil {
		t.Fatal(err)
	}
	if cart.Lines[0].Quantity != 7 {
		t.Errorf("expected 7, got %d", cart.Lines[0].Quantity)
	}

	if _, err := s.UpdateQuantity(ctx, "shop-a", "oreo", -1); err == nil {
		t.Error("expected error for negative quantity")
	}

	// Setting 0 drops the line and the empty cart with it.
	if _, err := s.UpdateQuantity(ctx, "shop-a", "oreo", 0); err != nil {
		t.Fatal(err)
	}
	if s.HasCart("shop-a") {
		t.Error("empty cart should be removed after zeroing the last line")
	}
}

func TestGetCartNeverFailsForUnknownShop(t *testing.T) {
	s := newTestCartStore()
	cart, err := s.GetCart(context.Background(), "shop-unknown")
	if err != nil {
		t.Fatalf("reading an absent cart should not fail: %v", err)
	}
	if len(cart.Lines) != 0 || cart.TotalItems != 0 {
		t.Errorf("expected empty cart, got %+v", cart)
	}
}
