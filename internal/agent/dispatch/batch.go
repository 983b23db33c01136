package dispatch

import (
	"context"

	"github.com/aroundyou/commerce-agent/internal/agent/model"
	"github.com/aroundyou/commerce-agent/internal/agent/registry"
)

// BatchItemOutcome is the per-item result of an addItemsToCart call. Items
// succeed or fail independently; one bad item never blocks the rest.
type BatchItemOutcome struct {
	ShopID   string `json:"shop_id"`
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
	Added    bool   `json:"added"`
	Error    string `json:"error,omitempty"`
}

// BatchAddResult aggregates a batch add: every per-item outcome, the added
// subset, and the resulting cart of each touched shop.
type BatchAddResult struct {
	Outcomes []BatchItemOutcome `json:"outcomes"`
	Added    []BatchItemOutcome `json:"added"`
	Carts    []*model.Cart      `json:"carts"`
}

func (d *Dispatcher) addItemsToCart(ctx context.Context, a registry.AddItemsToCartArgs) model.FunctionResult {
	res := BatchAddResult{
		Outcomes: make([]BatchItemOutcome, 0, len(a.Items)),
	}
	// Last cart state per shop; the final per-shop carts list keeps the
	// order in which shops first appeared in the batch.
	cartsByShop := make(map[string]*model.Cart)
	shopOrder := make([]string, 0, 2)

	for _, ref := range a.Items {
		outcome := BatchItemOutcome{ShopID: ref.ShopID, ItemID: ref.ItemID, Quantity: ref.Quantity}

		cart, err := d.carts.AddItem(ctx, ref.ShopID, ref.ItemID, ref.Quantity)
		if err != nil {
			outcome.Error = err.Error()
			d.log.Warn().
				Str("shop_id", ref.ShopID).
				Str("item_id", ref.ItemID).
				Err(err).
				Msg("Batch add item failed; continuing with remaining items")
		} else {
			outcome.Added = true
			if _, seen := cartsByShop[ref.ShopID]; !seen {
				shopOrder = append(shopOrder, ref.ShopID)
			}
			cartsByShop[ref.ShopID] = cart
			res.Added = append(res.Added, outcome)
		}
		res.Outcomes = append(res.Outcomes, outcome)
	}

	for _, shopID := range shopOrder {
		res.Carts = append(res.Carts, cartsByShop[shopID])
	}
	return model.DataResult(registry.FuncAddItemsToCart, res)
}
