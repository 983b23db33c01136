package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/aroundyou/commerce-agent/internal/agent/model"
	"github.com/aroundyou/commerce-agent/internal/agent/registry"
	"github.com/aroundyou/commerce-agent/internal/agent/search"
	errx "github.com/aroundyou/commerce-agent/internal/core/error"
	logx "github.com/aroundyou/commerce-agent/pkg/logger"
)

// Invocation carries the per-turn context of one dispatch: the originating
// tool-call ID (keys the search progress run) and the customer's location.
type Invocation struct {
	CallID   string
	Location model.Coordinates
}

// Config wires the dispatcher's collaborators.
type Config struct {
	Registry *registry.Registry
	Carts    model.CartStore
	Orders   model.OrderPlacer
	Search   *search.Pipeline
}

// Dispatcher validates a selected tool call against the registry, routes it
// to the matching collaborator or the search pipeline, and normalizes every
// outcome into a FunctionResult. It never propagates an error or panic to
// the dialogue engine.
type Dispatcher struct {
	registry *registry.Registry
	carts    model.CartStore
	orders   model.OrderPlacer
	search   *search.Pipeline
	log      zerolog.Logger
}

func New(cfg Config) (*Dispatcher, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("dispatcher: registry is required")
	}
	if cfg.Carts == nil || cfg.Orders == nil || cfg.Search == nil {
		return nil, fmt.Errorf("dispatcher: cart store, order placer and search pipeline are required")
	}
	return &Dispatcher{
		registry: cfg.Registry,
		carts:    cfg.Carts,
		orders:   cfg.Orders,
		search:   cfg.Search,
		log:      logx.With("dispatcher"),
	}, nil
}

// Execute runs one tool call to completion and returns its normalized
// result. Unknown names and malformed arguments come back as error results
// (so the model can self-correct next turn), never as Go errors.
func (d *Dispatcher) Execute(ctx context.Context, inv Invocation, call schema.ToolCall) (result model.FunctionResult) {
	name := call.Function.Name

	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Str("function", name).Msgf("panic recovered in dispatch: %v", r)
			result = model.ErrorResult(name, "the operation failed unexpectedly")
		}
	}()

	args, err := d.registry.Decode(name, call.Function.Arguments)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownFunction) {
			d.log.Warn().Str("function", name).Msg("Unknown function call")
			return model.ErrorResult(name, "unknown function")
		}
		d.log.Warn().Err(errx.MalformedArguments(err)).Str("function", name).Str("arguments", call.Function.Arguments).Msg("Malformed function arguments")
		return model.ErrorResult(name, fmt.Sprintf("malformed arguments: %v", err))
	}

	d.log.Debug().Str("function", name).Str("call_id", inv.CallID).Msg("Dispatching function call")

	switch a := args.(type) {
	case registry.IntelligentSearchArgs:
		return d.intelligentSearch(ctx, inv, a)
	case registry.SearchItemsInShopArgs:
		return d.searchItemsInShop(ctx, a)
	case registry.AddItemsToCartArgs:
		return d.addItemsToCart(ctx, a)
	case registry.AddItemToCartArgs:
		cart, err := d.carts.AddItem(ctx, a.ShopID, a.ItemID, a.Quantity)
		return cartResult(name, cart, err)
	case registry.RemoveItemFromCartArgs:
		cart, err := d.carts.RemoveItem(ctx, a.ShopID, a.ItemID, a.Quantity)
		return cartResult(name, cart, err)
	case registry.UpdateItemQuantityArgs:
		cart, err := d.carts.UpdateQuantity(ctx, a.ShopID, a.ItemID, a.Quantity)
		return cartResult(name, cart, err)
	case registry.GetCartArgs:
		cart, err := d.carts.GetCart(ctx, a.ShopID)
		return cartResult(name, cart, err)
	case registry.GetAllCartsArgs:
		carts, err := d.carts.GetAllCarts(ctx)
		if err != nil {
			return model.ErrorResult(name, err.Error())
		}
		return model.DataResult(name, map[string]any{"carts": carts})
	case registry.PlaceOrderArgs:
		return d.placeOrder(ctx, a)
	default:
		// Unreachable while the registry's variant set stays closed.
		return model.ErrorResult(name, "unsupported function")
	}
}

func (d *Dispatcher) intelligentSearch(ctx context.Context, inv Invocation, a registry.IntelligentSearchArgs) model.FunctionResult {
	res, err := d.search.Run(ctx, inv.CallID, a.Query, inv.Location, search.Options{
		MaxShops:     a.MaxShops,
		ItemsPerShop: a.ItemsPerShop,
	})
	if err != nil {
		if errx.IsTimeout(err) {
			return model.ErrorResult(registry.FuncIntelligentSearch, "the search timed out, please try again")
		}
		return model.ErrorResult(registry.FuncIntelligentSearch, fmt.Sprintf("search failed: %v", err))
	}
	return model.DataResult(registry.FuncIntelligentSearch, res)
}

func (d *Dispatcher) searchItemsInShop(ctx context.Context, a registry.SearchItemsInShopArgs) model.FunctionResult {
	items, err := d.search.SearchShop(ctx, a.ShopID, a.Query, a.Limit)
	if err != nil {
		return model.ErrorResult(registry.FuncSearchItemsInShop, fmt.Sprintf("shop search failed: %v", err))
	}
	return model.DataResult(registry.FuncSearchItemsInShop, map[string]any{
		"shopId": a.ShopID,
		"items":  items,
		"total":  len(items),
	})
}

func cartResult(name string, cart *model.Cart, err error) model.FunctionResult {
	if err != nil {
		return model.ErrorResult(name, err.Error())
	}
	return model.DataResult(name, cart)
}

func (d *Dispatcher) placeOrder(ctx context.Context, a registry.PlaceOrderArgs) model.FunctionResult {
	outcome, err := d.orders.PlaceOrder(ctx, model.OrderRequest{
		ShopID:              a.ShopID,
		AddressID:           a.AddressID,
		SpecialInstructions: a.SpecialInstructions,
	})
	if err != nil {
		return model.ErrorResult(registry.FuncPlaceOrder, err.Error())
	}
	// Business-rule rejections (landmark_required among them) travel as
	// data so the model can relay the reason conversationally.
	return model.DataResult(registry.FuncPlaceOrder, outcome)
}
