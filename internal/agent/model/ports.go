package model

import "context"

// Collaborator contracts consumed by the dispatcher and the search pipeline.
// Implementations live outside the core (catalog service, cart service); the
// in-memory versions under internal/agent/repo and internal/agent/catalog
// satisfy them for tests and the demo binary.

// ShopDirectory discovers candidate shops serviceable at a location.
type ShopDirectory interface {
	// FindShops returns up to limit shops that deliver to the given point.
	FindShops(ctx context.Context, at Coordinates, limit int) ([]Shop, error)
}

// ItemIndex runs similarity search against one shop's catalog. The variants
// slice carries the primary query plus its expansions; hits from all variants
// come back in a single scored list.
type ItemIndex interface {
	SearchItems(ctx context.Context, shopID string, queryVariants []string) ([]ScoredItem, error)
}

// CartStore holds per-shop carts. Every mutation reports the resulting
// per-shop cart so callers always see the post-operation totals.
type CartStore interface {
	GetCart(ctx context.Context, shopID string) (*Cart, error)
	GetAllCarts(ctx context.Context) ([]*Cart, error)
	AddItem(ctx context.Context, shopID, itemID string, quantity int) (*Cart, error)
	// RemoveItem decrements by quantity; quantity <= 0 removes the line.
	RemoveItem(ctx context.Context, shopID, itemID string, quantity int) (*Cart, error)
	UpdateQuantity(ctx context.Context, shopID, itemID string, quantity int) (*Cart, error)
}

// OrderPlacer turns a shop's cart into an order. Business-rule rejections
// come back as an unsuccessful OrderOutcome, not as an error.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderOutcome, error)
}

// IntentExtractor turns a free-form shopping query into a structured
// analysis in one call, however many items the utterance names.
type IntentExtractor interface {
	Extract(ctx context.Context, query string) (*IntentAnalysis, error)
}
