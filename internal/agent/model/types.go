package model

import (
	"strings"
	"time"
)

// Coordinates is a WGS84 point used for shop discovery.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Shop struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Category         string      `json:"category"`
	Address          string      `json:"address"`
	Location         Coordinates `json:"location"`
	DeliveryRadiusKM float64     `json:"delivery_radius_km"`
	Open             bool        `json:"open"`
}

type Item struct {
	ID          string  `json:"id"`
	ShopID      string  `json:"shop_id"`
	Name        string  `json:"name"`
	Brand       string  `json:"brand,omitempty"`
	Category    string  `json:"category,omitempty"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	InStock     bool    `json:"in_stock"`
}

// ScoredItem is a single catalog hit with its similarity in [0,1].
type ScoredItem struct {
	Item       Item    `json:"item"`
	Similarity float64 `json:"similarity"`
}

// ShopSearchResult is one shop's contribution to an intelligent search
// response. Items is the externally surfaced (truncated) list; TotalItems
// keeps the true pre-truncation count.
type ShopSearchResult struct {
	Shop             Shop         `json:"shop"`
	Items            []ScoredItem `json:"items"`
	TotalItems       int          `json:"total_items"`
	RelevanceScore   float64      `json:"relevance_score"`
	RelevancePercent float64      `json:"relevance_percent"`
}

// ExtractedItem is a normalized product request parsed from free-form text.
// Quantity reflects any number mentioned for that item in the utterance and
// defaults to 1.
type ExtractedItem struct {
	Name        string   `json:"name"`
	Brand       string   `json:"brand,omitempty"`
	Category    string   `json:"category,omitempty"`
	Quantity    int      `json:"quantity"`
	SearchTerms []string `json:"search_terms,omitempty"`
}

// IntentAnalysis is the output of one intent-extraction call. A multi-item
// utterance yields multiple Items from the same call.
type IntentAnalysis struct {
	PrimaryQuery    string          `json:"primary_query"`
	ExpandedQueries []string        `json:"expanded_queries,omitempty"`
	Items           []ExtractedItem `json:"items,omitempty"`
	Reasoning       string          `json:"reasoning,omitempty"`
}

// QueryVariants returns the deduplicated search strings for the semantic
// search step: the primary query followed by the expanded variants.
func (a *IntentAnalysis) QueryVariants() []string {
	seen := make(map[string]struct{}, 1+len(a.ExpandedQueries))
	variants := make([]string, 0, 1+len(a.ExpandedQueries))
	for _, q := range append([]string{a.PrimaryQuery}, a.ExpandedQueries...) {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := strings.ToLower(q)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		variants = append(variants, q)
	}
	return variants
}

// ================ Cart ================

type CartLine struct {
	Item     Item `json:"item"`
	Quantity int  `json:"quantity"`
}

// Cart is the per-shop cart state reported back after every cart operation.
type Cart struct {
	ShopID     string     `json:"shop_id"`
	Lines      []CartLine `json:"lines"`
	TotalItems int        `json:"total_items"`
	TotalPrice float64    `json:"total_price"`
}

// ================ Orders ================

// LandmarkRequiredMarker prefixes the rejection reason when an order is
// blocked because the delivery address has no nearby landmark. Callers
// inspect the reason for this marker to special-case the failure.
const LandmarkRequiredMarker = "landmark_required"

type Address struct {
	ID       string `json:"id"`
	Street   string `json:"street"`
	City     string `json:"city"`
	Landmark string `json:"landmark,omitempty"`
}

type OrderRequest struct {
	ShopID              string `json:"shop_id"`
	AddressID           string `json:"address_id,omitempty"`
	SpecialInstructions string `json:"special_instructions,omitempty"`
}

type Order struct {
	ID                  string     `json:"id"`
	ShopID              string     `json:"shop_id"`
	AddressID           string     `json:"address_id,omitempty"`
	SpecialInstructions string     `json:"special_instructions,omitempty"`
	Lines               []CartLine `json:"lines"`
	TotalPrice          float64    `json:"total_price"`
	PlacedAt            time.Time  `json:"placed_at"`
}

// OrderOutcome is the order placement result. A business-rule rejection sets
// Success=false with an inspectable Reason; transport failures surface as
// errors instead.
type OrderOutcome struct {
	Success bool   `json:"success"`
	Order   *Order `json:"order,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// LandmarkRequired reports whether the rejection is the missing-landmark
// business rule rather than a generic failure.
func (o *OrderOutcome) LandmarkRequired() bool {
	return !o.Success && strings.Contains(o.Reason, LandmarkRequiredMarker)
}
