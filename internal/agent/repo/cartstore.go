package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aroundyou/commerce-agent/internal/agent/model"
)

// ItemLookup resolves an item reference to its catalog record. The cart
// store needs it to price lines and validate references.
type ItemLookup interface {
	LookupItem(ctx context.Context, shopID, itemID string) (*model.Item, error)
}

// MemoryCartStore keeps per-shop carts in memory. A shop whose cart empties
// is removed entirely; no residual empty-cart entry remains.
type MemoryCartStore struct {
	mu     sync.Mutex
	carts  map[string]map[string]*model.CartLine // shopID -> itemID -> line
	lookup ItemLookup
}

func NewMemoryCartStore(lookup ItemLookup) *MemoryCartStore {
	return &MemoryCartStore{
		carts:  make(map[string]map[string]*model.CartLine),
		lookup: lookup,
	}
}

func (s *MemoryCartStore) GetCart(ctx context.Context, shopID string) (*model.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartLocked(shopID), nil
}

func (s *MemoryCartStore) GetAllCarts(ctx context.Context) ([]*model.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shopIDs := make([]string, 0, len(s.carts))
	for shopID := range s.carts {
		shopIDs = append(shopIDs, shopID)
	}
	sort.Strings(shopIDs)

	out := make([]*model.Cart, 0, len(shopIDs))
	for _, shopID := range shopIDs {
		out = append(out, s.cartLocked(shopID))
	}
	return out, nil
}

func (s *MemoryCartStore) AddItem(ctx context.Context, shopID, itemID string, quantity int) (*model.Cart, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	item, err := s.lookup.LookupItem(ctx, shopID, itemID)
	if err != nil {
		return nil, err
	}
	if !item.InStock {
		return nil, fmt.Errorf("item %q is out of stock at this shop", item.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines, ok := s.carts[shopID]
	if !ok {
		lines = make(map[string]*model.CartLine)
		s.carts[shopID] = lines
	}
	if line, ok := lines[itemID]; ok {
		line.Quantity += quantity
	} else {
		lines[itemID] = &model.CartLine{Item: *item, Quantity: quantity}
	}
	return s.cartLocked(shopID), nil
}

func (s *MemoryCartStore) RemoveItem(ctx context.Context, shopID, itemID string, quantity int) (*model.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, ok := s.carts[shopID]
	if !ok {
		return nil, fmt.Errorf("no cart for shop %s", shopID)
	}
	line, ok := lines[itemID]
	if !ok {
		return nil, fmt.Errorf("item %s is not in the cart for shop %s", itemID, shopID)
	}

	if quantity <= 0 || quantity >= line.Quantity {
		delete(lines, itemID)
	} else {
		line.Quantity -= quantity
	}
	s.dropIfEmptyLocked(shopID)
	return s.cartLocked(shopID), nil
}

func (s *MemoryCartStore) UpdateQuantity(ctx context.Context, shopID, itemID string, quantity int) (*model.Cart, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("quantity must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines, ok := s.carts[shopID]
	if !ok {
		return nil, fmt.Errorf("no cart for shop %s", shopID)
	}
	line, ok := lines[itemID]
	if !ok {
		return nil, fmt.Errorf("item %s is not in the cart for shop %s", itemID, shopID)
	}

	if quantity == 0 {
		delete(lines, itemID)
	} else {
		line.Quantity = quantity
	}
	s.dropIfEmptyLocked(shopID)
	return s.cartLocked(shopID), nil
}

// ClearCart empties one shop's cart (used after order placement).
func (s *MemoryCartStore) ClearCart(ctx context.Context, shopID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, shopID)
	return nil
}

// HasCart reports whether the shop currently has a cart entry.
func (s *MemoryCartStore) HasCart(shopID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.carts[shopID]
	return ok
}

func (s *MemoryCartStore) dropIfEmptyLocked(shopID string) {
	if lines, ok := s.carts[shopID]; ok && len(lines) == 0 {
		delete(s.carts, shopID)
	}
}

// cartLocked materializes the current per-shop cart with totals; lines come
// out in a stable item-ID order.
func (s *MemoryCartStore) cartLocked(shopID string) *model.Cart {
	cart := &model.Cart{ShopID: shopID, Lines: []model.CartLine{}}
	lines, ok := s.carts[shopID]
	if !ok {
		return cart
	}

	itemIDs := make([]string, 0, len(lines))
	for id := range lines {
		itemIDs = append(itemIDs, id)
	}
	sort.Strings(itemIDs)

	for _, id := range itemIDs {
		line := lines[id]
		cart.Lines = append(cart.Lines, *line)
		cart.TotalItems += line.Quantity
		cart.TotalPrice += float64(line.Quantity) * line.Item.Price
	}
	return cart
}

var _ model.CartStore = (*MemoryCartStore)(nil)
