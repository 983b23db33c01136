package registry

import (
	"fmt"

	"github.com/cloudwego/eino/schema"
)

// Version identifies the function catalog revision sent to the model.
const Version = "2025-08"

// Canonical operation names.
const (
	FuncIntelligentSearch  = "intelligentSearch"
	FuncSearchItemsInShop  = "searchItemsInShop"
	FuncAddItemsToCart     = "addItemsToCart"
	FuncAddItemToCart      = "addItemToCart"
	FuncRemoveItemFromCart = "removeItemFromCart"
	FuncUpdateItemQuantity = "updateItemQuantity"
	FuncGetCart            = "getCart"
	FuncGetAllCarts        = "getAllCarts"
	FuncPlaceOrder         = "placeOrder"
)

// Parameter defaults.
const (
	DefaultMaxShops     = 10
	DefaultItemsPerShop = 10
	DefaultShopLimit    = 5
	DefaultQuantity     = 1
)

// Definition is one invocable commerce operation: its model-facing
// description, its parameter contract and the decoder that turns a raw
// argument payload into the typed variant for that operation.
type Definition struct {
	Name   string
	Desc   string
	Params map[string]*schema.ParameterInfo
	decode func(raw string) (Arguments, error)
}

// Registry is the fixed catalog of operations. It is the sole authority for
// what argument payloads the dispatcher accepts.
type Registry struct {
	defs   []Definition
	byName map[string]*Definition
}

// ErrUnknownFunction is returned when a call names an operation outside the catalog.
var ErrUnknownFunction = fmt.Errorf("unknown function")

// New builds the registry with the full operation catalog.
func New() *Registry {
	r := &Registry{defs: definitions(), byName: make(map[string]*Definition)}
	for i := range r.defs {
		r.byName[r.defs[i].Name] = &r.defs[i]
	}
	return r
}

// ToolInfos renders the catalog as model-facing tool schemas. The same list
// is sent verbatim on every turn.
func (r *Registry) ToolInfos() []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(r.defs))
	for i := range r.defs {
		def := &r.defs[i]
		infos = append(infos, &schema.ToolInfo{
			Name:        def.Name,
			Desc:        def.Desc,
			ParamsOneOf: schema.NewParamsOneOfByParams(def.Params),
		})
	}
	return infos
}

// Names returns the catalog's operation names in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for i := range r.defs {
		names = append(names, r.defs[i].Name)
	}
	return names
}

// Has reports whether the catalog contains the named operation.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Decode validates a raw argument payload against the named operation's
// contract and returns the typed variant. Unknown names yield
// ErrUnknownFunction; contract violations yield a descriptive error.
func (r *Registry) Decode(name, raw string) (Arguments, error) {
	def, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}
	return def.decode(raw)
}

func definitions() []Definition {
	return []Definition{
		{
			Name: FuncIntelligentSearch,
			Desc: "Search for items across all nearby shops from a natural-language query. Runs intent extraction, shop discovery, semantic matching and ranking, and returns shops ordered by relevance with their best-matching items. Use this whenever the customer describes what they want to buy.",
			Params: map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "The customer's shopping request, e.g. 'snacks for movie night' or '2 oreo mini and 3 rio biscuit'.",
					Required: true,
				},
				"maxShops": {
					Type: "number",
					Desc: "Maximum number of shops to search (default: 10).",
				},
				"itemsPerShop": {
					Type: "number",
					Desc: "Maximum matched items to keep per shop (default: 10).",
				},
			},
			decode: decodeIntelligentSearch,
		},
		{
			Name: FuncSearchItemsInShop,
			Desc: "Search for items inside one specific shop. Use when the customer asks what a particular shop carries.",
			Params: map[string]*schema.ParameterInfo{
				"shopId": {
					Type:     "string",
					Desc:     "Shop ID from earlier search results.",
					Required: true,
				},
				"query": {
					Type:     "string",
					Desc:     "Item search keywords.",
					Required: true,
				},
				"limit": {
					Type: "number",
					Desc: "Maximum items to return (default: 5).",
				},
			},
			decode: decodeSearchItemsInShop,
		},
		{
			Name: FuncAddItemsToCart,
			Desc: "Add several items to carts in one call. Items may span multiple shops; each item succeeds or fails independently. Prefer this over repeated addItemToCart calls.",
			Params: map[string]*schema.ParameterInfo{
				"items": {
					Type:     "array",
					Desc:     "Items to add.",
					Required: true,
					ElemInfo: &schema.ParameterInfo{
						Type: "object",
						SubParams: map[string]*schema.ParameterInfo{
							"shopId":   {Type: "string", Desc: "Shop the item belongs to.", Required: true},
							"itemId":   {Type: "string", Desc: "Item ID from search results.", Required: true},
							"quantity": {Type: "number", Desc: "Units to add (default: 1)."},
						},
					},
				},
			},
			decode: decodeAddItemsToCart,
		},
		{
			Name: FuncAddItemToCart,
			Desc: "Add a single item to the cart of its shop.",
			Params: map[string]*schema.ParameterInfo{
				"shopId":   {Type: "string", Desc: "Shop the item belongs to.", Required: true},
				"itemId":   {Type: "string", Desc: "Item ID from search results.", Required: true},
				"quantity": {Type: "number", Desc: "Units to add (default: 1)."},
			},
			decode: decodeAddItemToCart,
		},
		{
			Name: FuncRemoveItemFromCart,
			Desc: "Remove an item from a shop's cart. Omit quantity to remove the item entirely.",
			Params: map[string]*schema.ParameterInfo{
				"shopId":   {Type: "string", Desc: "Shop whose cart to modify.", Required: true},
				"itemId":   {Type: "string", Desc: "Item to remove.", Required: true},
				"quantity": {Type: "number", Desc: "Units to remove; omit to drop the line."},
			},
			decode: decodeRemoveItemFromCart,
		},
		{
			Name: FuncUpdateItemQuantity,
			Desc: "Set the exact quantity of an item already in a shop's cart.",
			Params: map[string]*schema.ParameterInfo{
				"shopId":   {Type: "string", Desc: "Shop whose cart to modify.", Required: true},
				"itemId":   {Type: "string", Desc: "Item to update.", Required: true},
				"quantity": {Type: "number", Desc: "New quantity; 0 removes the line.", Required: true},
			},
			decode: decodeUpdateItemQuantity,
		},
		{
			Name: FuncGetCart,
			Desc: "Get the current cart contents and totals for one shop.",
			Params: map[string]*schema.ParameterInfo{
				"shopId": {Type: "string", Desc: "Shop whose cart to read.", Required: true},
			},
			decode: decodeGetCart,
		},
		{
			Name:   FuncGetAllCarts,
			Desc:   "Get every non-empty cart across all shops with per-shop totals.",
			Params: map[string]*schema.ParameterInfo{},
			decode: decodeGetAllCarts,
		},
		{
			Name: FuncPlaceOrder,
			Desc: "Place an order for one shop's cart. Requires a delivery address with a nearby landmark; the result reports a landmark_required reason when the address lacks one.",
			Params: map[string]*schema.ParameterInfo{
				"shopId":              {Type: "string", Desc: "Shop to order from.", Required: true},
				"addressId":           {Type: "string", Desc: "Saved delivery address ID; defaults to the customer's primary address."},
				"specialInstructions": {Type: "string", Desc: "Free-form delivery notes."},
			},
			decode: decodePlaceOrder,
		},
	}
}
