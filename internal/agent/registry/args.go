package registry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Arguments is the closed set of typed argument payloads, one variant per
// operation. The dispatcher switches on the concrete type instead of parsing
// generic maps.
type Arguments interface {
	isArguments()
}

type IntelligentSearchArgs struct {
	Query        string
	MaxShops     int
	ItemsPerShop int
}

type SearchItemsInShopArgs struct {
	ShopID string
	Query  string
	Limit  int
}

type CartItemRef struct {
	ShopID   string
	ItemID   string
	Quantity int
}

type AddItemsToCartArgs struct {
	Items []CartItemRef
}

type AddItemToCartArgs struct {
	ShopID   string
	ItemID   string
	Quantity int
}

type RemoveItemFromCartArgs struct {
	ShopID string
	ItemID string
	// Quantity <= 0 means remove the whole line.
	Quantity int
}

type UpdateItemQuantityArgs struct {
	ShopID   string
	ItemID   string
	Quantity int
}

type GetCartArgs struct {
	ShopID string
}

type GetAllCartsArgs struct{}

type PlaceOrderArgs struct {
	ShopID              string
	AddressID           string
	SpecialInstructions string
}

func (IntelligentSearchArgs) isArguments()  {}
func (SearchItemsInShopArgs) isArguments()  {}
func (AddItemsToCartArgs) isArguments()     {}
func (AddItemToCartArgs) isArguments()      {}
func (RemoveItemFromCartArgs) isArguments() {}
func (UpdateItemQuantityArgs) isArguments() {}
func (GetCartArgs) isArguments()            {}
func (GetAllCartsArgs) isArguments()        {}
func (PlaceOrderArgs) isArguments()         {}

// rawObject parses the argument payload into a generic map so each decoder
// can coerce loosely typed model output (string numbers, missing optionals)
// before validating. An empty payload decodes as an empty object.
func rawObject(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("arguments are not a JSON object: %v", err)
	}
	return m, nil
}

// stringField trims and coerces a field to string; required fields must be
// present and non-empty.
func stringField(m map[string]any, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	var s string
	switch vv := v.(type) {
	case string:
		s = strings.TrimSpace(vv)
	default:
		s = strings.TrimSpace(fmt.Sprint(v))
	}
	if required && s == "" {
		return "", fmt.Errorf("field %q must not be empty", key)
	}
	return s, nil
}

// intField coerces a numeric field that may arrive as a JSON number or a
// numeric string. Absent fields fall back to def.
func intField(m map[string]any, key string, def int) (int, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return def, nil
	}
	switch vv := v.(type) {
	case float64:
		return int(vv), nil
	case string:
		s := strings.TrimSpace(vv)
		if s == "" {
			return def, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("field %q is not a number", key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("field %q is not a number", key)
	}
}

// clampInt returns v limited to [min, max].
func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func decodeIntelligentSearch(raw string) (Arguments, error) {
	m, err := rawObject(raw)
	if err != nil {
		return nil, err
	}
	query, err := stringField(m, "query", true)
	if err != nil {
		return nil, err
	}
	maxShops, err := intField(m, "maxShops", DefaultMaxShops)
	if err != nil {
		return nil, err
	}
	itemsPerShop, err := intField(m, "itemsPerShop", DefaultItemsPerShop)
	if err != nil {
		return nil, err
	}
	return IntelligentSearchArgs{
		Query:        query,
		MaxShops:     clampInt(maxShops, 1, 50),
		ItemsPerShop: clampInt(itemsPerShop, 1, 50),
	}, nil
}

func decodeSearchItemsInShop(raw string) (Arguments, error) {
	m, err := rawObject(raw)
	if err != nil {
		return nil, err
	}
	shopID, err := stringField(m, "shopId", true)
	if err != nil {
		return nil, err
	}
	query, err := stringField(m, "query", true)
	if err != nil {
		return nil, err
	}
	limit, err := intField(m, "limit", DefaultShopLimit)
	if err != nil {
		return nil, err
	}
	return SearchItemsInShopArgs{ShopID: shopID, Query: query, Limit: clampInt(limit, 1, 50)}, nil
}

func decodeAddItemsToCart(raw string) (Arguments, error) {
	m, err := rawObject(raw)
	if err != nil {
		return nil, err
	}
	rawItems, ok := m["items"].([]any)
	if !ok {
		return nil, fmt.Errorf("missing required field %q (array)", "items")
	}
	if len(rawItems) == 0 {
		return nil, fmt.Errorf("field %q must not be empty", "items")
	}
	items := make([]CartItemRef, 0, len(rawItems))
	for i, ri := range rawItems {
		obj, ok := ri.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("items[%d] is not an object", i)
		}
		shopID, err := stringField(obj, "shopId", true)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %v", i, err)
		}
		itemID, err := stringField(obj, "itemId", true)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %v", i, err)
		}
		qty, err := intField(obj, "quantity", DefaultQuantity)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %v", i, err)
		}
		if qty < 1 {
			return nil, fmt.Errorf("items[%d]: quantity must be positive", i)
		}
		items = append(items, CartItemRef{ShopID: shopID, ItemID: itemID, Quantity: qty})
	}
	return AddItemsToCartArgs{Items: items}, nil
}

func decodeAddItemToCart(raw string) (Arguments, error) {
	m, err := rawObject(raw)
	if err != nil {
		return nil, err
	}
	shopID, err := stringField(m, "shopId", true)
	if err != nil {
		return nil, err
	}
	itemID, err := stringField(m, "itemId", true)
	if err != nil {
		return nil, err
	}
	qty, err := intField(m, "quantity", DefaultQuantity)
	if err != nil {
		return nil, err
	}
	if qty < 1 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	return AddItemToCartArgs{ShopID: shopID, ItemID: itemID, Quantity: qty}, nil
}

func decodeRemoveItemFromCart(raw string) (Arguments, error) {
	m, err := rawObject(raw)
	if err != nil {
		return nil, err
	}
	shopID, err := stringField(m, "shopId", true)
	if err != nil {
		return nil, err
	}
	itemID, err := stringField(m, "itemId", true)
	if err != nil {
		return nil, err
	}
	qty, err := intField(m, "quantity", 0)
	if err != nil {
		return nil, err
	}
	if qty < 0 {
		return nil, fmt.Errorf("quantity must not be negative")
	}
	return RemoveItemFromCartArgs{ShopID: shopID, ItemID: itemID, Quantity: qty}, nil
}

func decodeUpdateItemQuantity(raw string) (Arguments, error) {
	m, err := rawObject(raw)
	if err != nil {
		return nil, err
	}
	shopID, err := stringField(m, "shopId", true)
	if err != nil {
		return nil, err
	}
	itemID, err := stringField(m, "itemId", true)
	if err != nil {
		return nil, err
	}
	if _, ok := m["quantity"]; !ok {
		return nil, fmt.Errorf("missing required field %q", "quantity")
	}
	qty, err := intField(m, "quantity", 0)
	if err != nil {
		return nil, err
	}
	if qty < 0 {
		return nil, fmt.Errorf("quantity must not be negative")
	}
	return UpdateItemQuantityArgs{ShopID: shopID, ItemID: itemID, Quantity: qty}, nil
}

func decodeGetCart(raw string) (Arguments, error) {
	m, err := rawObject(raw)
	if err != nil {
		return nil, err
	}
	shopID, err := stringField(m, "shopId", true)
	if err != nil {
		return nil, err
	}
	return GetCartArgs{ShopID: shopID}, nil
}

func decodeGetAllCarts(raw string) (Arguments, error) {
	if _, err := rawObject(raw); err != nil {
		return nil, err
	}
	return GetAllCartsArgs{}, nil
}

func decodePlaceOrder(raw string) (Arguments, error) {
	m, err := rawObject(raw)
	if err != nil {
		return nil, err
	}
	shopID, err := stringField(m, "shopId", true)
	if err != nil {
		return nil, err
	}
	addressID, err := stringField(m, "addressId", false)
	if err != nil {
		return nil, err
	}
	notes, err := stringField(m, "specialInstructions", false)
	if err != nil {
		return nil, err
	}
	return PlaceOrderArgs{ShopID: shopID, AddressID: addressID, SpecialInstructions: notes}, nil
}
