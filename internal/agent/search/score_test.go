package search

import (
	"testing"

	"github.com/aroundyou/commerce-agent/internal/agent/model"
)

func TestNormalizePercent(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.87, 87.0},
		{87, 87.0},
		{1, 100.0},
		{0, 0.0},
		{0.123, 12.3},
		{0.1234, 12.3},
		{99.96, 100.0},
		{42.55, 42.6},
	}
	for _, tc := range cases {
		if got := NormalizePercent(tc.in); got != tc.want {
			t.Errorf("NormalizePercent(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func scored(id string, sim float64) model.ScoredItem {
	return model.ScoredItem{Item: model.Item{ID: id}, Similarity: sim}
}

func TestBlendScorerEmpty(t *testing.T) {
	if got := DefaultScorer().Score(nil); got != 0 {
		t.Errorf("empty item list should score 0, got %v", got)
	}
}

func TestBlendScorerRewardsMatchCount(t *testing.T) {
	s := DefaultScorer()
	one := s.Score([]model.ScoredItem{scored("a", 0.8)})
	many := s.Score([]model.ScoredItem{
		scored("a", 0.8), scored("b", 0.8), scored("c", 0.8), scored("d", 0.8), scored("e", 0.8),
	})
	if many <= one {
		t.Errorf("same mean similarity with more matches should score higher: one=%v many=%v", one, many)
	}
}

func TestBlendScorerCountBonusSaturates(t *testing.T) {
	s := BlendScorer{SimilarityWeight: 0.7, CountWeight: 0.3, CountSaturation: 5}
	five := make([]model.ScoredItem, 5)
	ten := make([]model.ScoredItem, 10)
	for i := range five {
		five[i] = scored("a", 0.5)
	}
	for i := range ten {
		ten[i] = scored("a", 0.5)
	}
	if s.Score(five) != s.Score(ten) {
		t.Errorf("count bonus should saturate at %d matches", s.CountSaturation)
	}
}

func TestBlendScorerSimilarityDominates(t *testing.T) {
	s := DefaultScorer()
	strong := s.Score([]model.ScoredItem{scored("a", 1.0)})
	weakMany := s.Score([]model.ScoredItem{
		scored("a", 0.1), scored("b", 0.1), scored("c", 0.1), scored("d", 0.1), scored("e", 0.1),
	})
	if strong <= weakMany {
		t.Errorf("one perfect match should beat many weak ones: strong=%v weakMany=%v", strong, weakMany)
	}
}

func TestSortItemsBySimilarityTieBreak(t *testing.T) {
	items := []model.ScoredItem{
		scored("z", 0.5),
		scored("a", 0.5),
		scored("m", 0.9),
	}
	sortItemsBySimilarity(items)
	got := []string{items[0].Item.ID, items[1].Item.ID, items[2].Item.ID}
	want := []string{"m", "a", "z"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
