package repo

import (
	"context"
	"testing"

	"github.com/aroundyou/commerce-agent/internal/agent/model"
)

func newTestOrderPlacer(t *testing.T) (*MemoryOrderPlacer, *MemoryCartStore) {
	t.Helper()
	carts := newTestCartStore()
	placer := NewMemoryOrderPlacer(carts, []model.Address{
		{ID: "addr-home", Street: "14-B Khayaban-e-Ittehad", City: "Karachi", Landmark: "next to Sunday Bazaar gate"},
		{ID: "addr-office", Street: "Plot 7, Shahrah-e-Faisal", City: "Karachi"},
	}, "addr-home")
	return placer, carts
}

func TestPlaceOrderSuccessClearsCart(t *testing.T) {
	ctx := context.Background()
	placer, carts := newTestOrderPlacer(t)
	if _, err := carts.AddItem(ctx, "shop-a", "oreo", 2); err != nil {
		t.Fatal(err)
	}

	outcome, err := placer.PlaceOrder(ctx, model.OrderRequest{ShopID: "shop-a"})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("expected success, got reason %q", outcome.Reason)
	}
	if outcome.Order == nil || outcome.Order.ID == "" {
		t.Fatal("successful outcome must carry an order with an ID")
	}
	if outcome.Order.TotalPrice != 2*70 {
		t.Errorf("order total: %v", outcome.Order.TotalPrice)
	}
	if outcome.Order.AddressID != "addr-home" {
		t.Errorf("default address not applied: %q", outcome.Order.AddressID)
	}
	if carts.HasCart("shop-a") {
		t.Error("cart should be cleared after a successful order")
	}
	if len(placer.Orders()) != 1 {
		t.Errorf("expected 1 recorded order, got %d", len(placer.Orders()))
	}
}

func TestPlaceOrderLandmarkRequired(t *testing.T) {
	ctx := context.Background()
	placer, carts := newTestOrderPlacer(t)
	if _, err := carts.AddItem(ctx, "shop-a", "oreo", 1); err != nil {
		t.Fatal(err)
	}

	outcome, err := placer.PlaceOrder(ctx, model.OrderRequest{ShopID: "shop-a", AddressID: "addr-office"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Success {
		t.Fatal("order against a landmark-less address must be rejected")
	}
	if !outcome.LandmarkRequired() {
		t.Errorf("rejection reason should be inspectable as landmark_required: %q", outcome.Reason)
	}
	if !carts.HasCart("shop-a") {
		t.Error("rejected order must leave the cart untouched")
	}
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	placer, _ := newTestOrderPlacer(t)
	outcome, err := placer.PlaceOrder(context.Background(), model.OrderRequest{ShopID: "shop-a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Success {
		t.Fatal("empty cart must not produce an order")
	}
	if outcome.LandmarkRequired() {
		t.Error("empty-cart rejection must not look like the landmark rule")
	}
}

func TestPlaceOrderUnknownAddress(t *testing.T) {
	ctx := context.Background()
	placer, carts := newTestOrderPlacer(t)
	if _, err := carts.AddItem(ctx, "shop-a", "oreo", 1); err != nil {
		t.Fatal(err)
	}
	outcome, err := placer.PlaceOrder(ctx, model.OrderRequest{ShopID: "shop-a", AddressID: "addr-nowhere"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Success {
		t.Fatal("unknown address must be rejected")
	}
}
