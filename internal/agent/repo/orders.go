package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aroundyou/commerce-agent/internal/agent/model"
	logx "github.com/aroundyou/commerce-agent/pkg/logger"
)

// MemoryOrderPlacer turns a shop's cart into an order. Delivery requires an
// address with a nearby landmark; orders against a landmark-less address are
// rejected with a reason carrying model.LandmarkRequiredMarker so callers
// can special-case it.
type MemoryOrderPlacer struct {
	mu               sync.Mutex
	carts            *MemoryCartStore
	addresses        map[string]model.Address
	defaultAddressID string
	placed           []*model.Order
}

func NewMemoryOrderPlacer(carts *MemoryCartStore, addresses []model.Address, defaultAddressID string) *MemoryOrderPlacer {
	byID := make(map[string]model.Address, len(addresses))
	for _, a := range addresses {
		byID[a.ID] = a
	}
	return &MemoryOrderPlacer{
		carts:            carts,
		addresses:        byID,
		defaultAddressID: defaultAddressID,
	}
}

func (p *MemoryOrderPlacer) PlaceOrder(ctx context.Context, req model.OrderRequest) (*model.OrderOutcome, error) {
	addressID := req.AddressID
	if addressID == "" {
		addressID = p.defaultAddressID
	}

	p.mu.Lock()
	address, ok := p.addresses[addressID]
	p.mu.Unlock()
	if !ok {
		return &model.OrderOutcome{Success: false, Reason: fmt.Sprintf("unknown delivery address %q", addressID)}, nil
	}

	cart, err := p.carts.GetCart(ctx, req.ShopID)
	if err != nil {
		return nil, err
	}
	if len(cart.Lines) == 0 {
		return &model.OrderOutcome{Success: false, Reason: "the cart for this shop is empty"}, nil
	}

	if address.Landmark == "" {
		logx.Debug().Str("address_id", addressID).Msg("Order rejected: address has no landmark")
		return &model.OrderOutcome{
			Success: false,
			Reason:  model.LandmarkRequiredMarker + ": the delivery address needs a nearby landmark before we can dispatch a rider",
		}, nil
	}

	order := &model.Order{
		ID:                  uuid.NewString(),
		ShopID:              req.ShopID,
		AddressID:           addressID,
		SpecialInstructions: req.SpecialInstructions,
		Lines:               cart.Lines,
		TotalPrice:          cart.TotalPrice,
		PlacedAt:            time.Now().UTC(),
	}

	if err := p.carts.ClearCart(ctx, req.ShopID); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.placed = append(p.placed, order)
	p.mu.Unlock()

	logx.Info().Str("order_id", order.ID).Str("shop_id", order.ShopID).Float64("total", order.TotalPrice).Msg("Order placed")
	return &model.OrderOutcome{Success: true, Order: order}, nil
}

// Orders returns the orders placed so far, newest last.
func (p *MemoryOrderPlacer) Orders() []*model.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*model.Order, len(p.placed))
	copy(out, p.placed)
	return out
}

var _ model.OrderPlacer = (*MemoryOrderPlacer)(nil)
