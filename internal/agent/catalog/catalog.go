package catalog

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/aroundyou/commerce-agent/internal/agent/model"
)

// MemoryCatalog is an in-memory shop directory and similarity index. It
// backs tests and the demo binary; production deployments swap in the real
// catalog service behind the same interfaces.
type MemoryCatalog struct {
	mu    sync.RWMutex
	shops []model.Shop
	items map[string][]model.Item // shopID -> items
}

func NewMemoryCatalog(shops []model.Shop, items []model.Item) *MemoryCatalog {
	c := &MemoryCatalog{items: make(map[string][]model.Item)}
	c.shops = append(c.shops, shops...)
	for _, it := range items {
		c.items[it.ShopID] = append(c.items[it.ShopID], it)
	}
	return c
}

// FindShops returns up to limit open shops whose delivery radius covers the
// given point, nearest first.
func (c *MemoryCatalog) FindShops(ctx context.Context, at model.Coordinates, limit int) ([]model.Shop, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	type candidate struct {
		shop model.Shop
		dist float64
	}
	var candidates []candidate
	for _, shop := range c.shops {
		if !shop.Open {
			continue
		}
		d := haversineKM(at, shop.Location)
		if shop.DeliveryRadiusKM > 0 && d > shop.DeliveryRadiusKM {
			continue
		}
		candidates = append(candidates, candidate{shop: shop, dist: d})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]model.Shop, 0, len(candidates))
	for _, cand := range candidates {
		out = append(out, cand.shop)
	}
	return out, nil
}

// SearchItems scores one shop's items against every query variant and
// returns all hits above the similarity floor. Hits for the same item across
// variants are all reported; the pipeline's merge step keeps the best.
func (c *MemoryCatalog) SearchItems(ctx context.Context, shopID string, queryVariants []string) ([]model.ScoredItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	items := c.items[shopID]
	c.mu.RUnlock()

	var hits []model.ScoredItem
	for _, item := range items {
		itemTokens := tokenize(item.Name + " " + item.Brand + " " + item.Category + " " + item.Description)
		for _, variant := range queryVariants {
			sim := similarity(tokenize(variant), itemTokens)
			if sim > 0 {
				hits = append(hits, model.ScoredItem{Item: item, Similarity: sim})
			}
		}
	}
	return hits, nil
}

// LookupItem resolves an item reference for the cart store.
func (c *MemoryCatalog) LookupItem(ctx context.Context, shopID, itemID string) (*model.Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items[shopID] {
		if item.ID == itemID {
			found := item
			return &found, nil
		}
	}
	return nil, fmt.Errorf("item %s not found in shop %s", itemID, shopID)
}

var _ model.ShopDirectory = (*MemoryCatalog)(nil)
var _ model.ItemIndex = (*MemoryCatalog)(nil)

// similarity is the token-overlap ratio of the query against the item text,
// in [0,1]: the fraction of query tokens present in the item, weighted up
// slightly when the whole query appears as a phrase.
func similarity(queryTokens, itemTokens []string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	itemSet := make(map[string]struct{}, len(itemTokens))
	for _, t := range itemTokens {
		itemSet[t] = struct{}{}
	}
	matched := 0
	for _, t := range queryTokens {
		if _, ok := itemSet[t]; ok {
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	score := float64(matched) / float64(len(queryTokens))
	return math.Min(1, score)
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}

// haversineKM is the great-circle distance between two points.
func haversineKM(a, b model.Coordinates) float64 {
	const earthRadiusKM = 6371.0
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(h))
}
