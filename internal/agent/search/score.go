package search

import (
	"math"
	"sort"

	"github.com/aroundyou/commerce-agent/internal/agent/model"
)

// Scorer blends a shop's matched items into a single relevance score. The
// blend is replaceable; only the percentage normalization below is fixed.
type Scorer interface {
	Score(items []model.ScoredItem) float64
}

// BlendScorer weighs the mean item similarity against a saturating
// match-count bonus: a shop with many decent matches can outrank a shop with
// one excellent match, but count alone never dominates.
type BlendScorer struct {
	SimilarityWeight float64
	CountWeight      float64
	// CountSaturation is the match count at which the count bonus maxes out.
	CountSaturation int
}

// DefaultScorer returns the standard 70/30 similarity/count blend.
func DefaultScorer() Scorer {
	return BlendScorer{SimilarityWeight: 0.7, CountWeight: 0.3, CountSaturation: 5}
}

func (s BlendScorer) Score(items []model.ScoredItem) float64 {
	if len(items) == 0 {
		return 0
	}
	var sum float64
	for _, it := range items {
		sum += it.Similarity
	}
	mean := sum / float64(len(items))

	sat := s.CountSaturation
	if sat <= 0 {
		sat = 5
	}
	countBonus := math.Min(1, float64(len(items))/float64(sat))

	return s.SimilarityWeight*mean + s.CountWeight*countBonus
}

// NormalizePercent renders a relevance value as a one-decimal percentage
// regardless of upstream scale: values in [0,1] are fractions, values above 1
// are already percentage-like. 0.87 and 87 both come out as 87.0.
func NormalizePercent(score float64) float64 {
	if score <= 1 {
		return math.Round(score*100*10) / 10
	}
	return math.Round(score*10) / 10
}

// sortItemsBySimilarity orders hits best-first, with item ID as a stable
// tie-break so equal scores keep a deterministic order.
func sortItemsBySimilarity(items []model.ScoredItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Similarity != items[j].Similarity {
			return items[i].Similarity > items[j].Similarity
		}
		return items[i].Item.ID < items[j].Item.ID
	})
}
