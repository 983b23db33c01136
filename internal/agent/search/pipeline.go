package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aroundyou/commerce-agent/internal/agent/model"
	"github.com/aroundyou/commerce-agent/internal/agent/progress"
	errx "github.com/aroundyou/commerce-agent/internal/core/error"
	logx "github.com/aroundyou/commerce-agent/pkg/logger"
)

// maxSurfacedItems caps the item list surfaced per shop in the final
// ranking; TotalItems keeps the true count.
const maxSurfacedItems = 5

// Options tune one pipeline invocation. Zero values fall back to the
// registry defaults.
type Options struct {
	MaxShops     int
	ItemsPerShop int
}

// Result is a completed intelligent search: the intent analysis retained for
// transparency plus the ranked, shop-attributed matches.
type Result struct {
	Query      string                   `json:"query"`
	Intent     *model.IntentAnalysis    `json:"intent"`
	Shops      []model.ShopSearchResult `json:"shops"`
	TotalShops int                      `json:"total_shops"`
}

// Config wires the pipeline's collaborators.
type Config struct {
	Intent      model.IntentExtractor
	Shops       model.ShopDirectory
	Items       model.ItemIndex
	Scorer      Scorer
	Broadcaster *progress.Broadcaster
	// StepTimeout bounds each sequential step's external call.
	StepTimeout time.Duration
	// ShopTimeout bounds each per-shop similarity search in step 3.
	ShopTimeout time.Duration
}

// Pipeline turns a free-form query into ranked shop results in five strictly
// ordered steps, publishing per-step progress keyed by the originating call.
type Pipeline struct {
	intent      model.IntentExtractor
	shops       model.ShopDirectory
	items       model.ItemIndex
	scorer      Scorer
	broadcaster *progress.Broadcaster
	stepTimeout time.Duration
	shopTimeout time.Duration
}

func New(cfg Config) (*Pipeline, error) {
	if cfg.Intent == nil || cfg.Shops == nil || cfg.Items == nil {
		return nil, fmt.Errorf("search pipeline: intent, shops and items collaborators are required")
	}
	if cfg.Broadcaster == nil {
		return nil, fmt.Errorf("search pipeline: broadcaster is required")
	}
	scorer := cfg.Scorer
	if scorer == nil {
		scorer = DefaultScorer()
	}
	stepTimeout := cfg.StepTimeout
	if stepTimeout <= 0 {
		stepTimeout = 20 * time.Second
	}
	shopTimeout := cfg.ShopTimeout
	if shopTimeout <= 0 {
		shopTimeout = 8 * time.Second
	}
	return &Pipeline{
		intent:      cfg.Intent,
		shops:       cfg.Shops,
		items:       cfg.Items,
		scorer:      scorer,
		broadcaster: cfg.Broadcaster,
		stepTimeout: stepTimeout,
		shopTimeout: shopTimeout,
	}, nil
}

// Run executes the five steps for one query. callID keys the progress run;
// it is the originating tool-call ID. On step failure the failing step is
// marked errored, later steps stay pending and the error is returned.
func (p *Pipeline) Run(ctx context.Context, callID, query string, at model.Coordinates, opts Options) (*Result, error) {
	if opts.MaxShops <= 0 {
		opts.MaxShops = 10
	}
	if opts.ItemsPerShop <= 0 {
		opts.ItemsPerShop = 10
	}

	tracker := p.broadcaster.Track(callID)
	log := logx.With("search_pipeline").With().Str("call_id", callID).Logger()
	log.Debug().Str("query", query).Int("max_shops", opts.MaxShops).Msg("Starting intelligent search")

	// Step 1: understand_intent. One extraction call regardless of how many
	// items the utterance names.
	tracker.Begin(progress.StepUnderstandIntent)
	analysis, err := p.extractIntent(ctx, query)
	if err != nil {
		tracker.Fail(progress.StepUnderstandIntent, err.Error())
		return nil, errx.WrapSearch(err)
	}
	variants := analysis.QueryVariants()
	tracker.Complete(progress.StepUnderstandIntent,
		fmt.Sprintf("%d item(s), %d query variant(s)", len(analysis.Items), len(variants)))

	// Step 2: find_shops.
	tracker.Begin(progress.StepFindShops)
	shops, err := p.findShops(ctx, at, opts.MaxShops)
	if err != nil {
		tracker.Fail(progress.StepFindShops, err.Error())
		return nil, errx.WrapSearch(err)
	}
	tracker.Complete(progress.StepFindShops, fmt.Sprintf("%d shop(s) nearby", len(shops)))

	// Step 3: semantic_search. Independent per shop, fanned out concurrently
	// and joined before the merge step.
	tracker.Begin(progress.StepSemanticSearch)
	hitsPerShop, err := p.searchShops(ctx, shops, variants, opts.MaxShops)
	if err != nil {
		tracker.Fail(progress.StepSemanticSearch, err.Error())
		return nil, errx.WrapSearch(err)
	}
	totalHits := 0
	for _, hits := range hitsPerShop {
		totalHits += len(hits)
	}
	tracker.Complete(progress.StepSemanticSearch, fmt.Sprintf("%d raw match(es)", totalHits))

	// Step 4: expanding_search. Merge variant hits, dedupe per shop, sort and
	// cap to itemsPerShop while keeping the true found count.
	tracker.Begin(progress.StepExpandingSearch)
	results := make([]model.ShopSearchResult, 0, len(shops))
	kept := 0
	for i, shop := range shops {
		merged := mergeHits(hitsPerShop[i])
		if len(merged) == 0 {
			continue
		}
		sortItemsBySimilarity(merged)
		total := len(merged)
		if len(merged) > opts.ItemsPerShop {
			merged = merged[:opts.ItemsPerShop]
		}
		kept += len(merged)
		results = append(results, model.ShopSearchResult{
			Shop:       shop,
			Items:      merged,
			TotalItems: total,
		})
	}
	tracker.Complete(progress.StepExpandingSearch, fmt.Sprintf("%d match(es) across %d shop(s)", kept, len(results)))

	// Step 5: ranking. Pluggable scorer, best shops first, surfaced items
	// truncated without losing the true count.
	tracker.Begin(progress.StepRanking)
	for i := range results {
		score := p.scorer.Score(results[i].Items)
		results[i].RelevanceScore = score
		results[i].RelevancePercent = NormalizePercent(score)
		if len(results[i].Items) > maxSurfacedItems {
			results[i].Items = results[i].Items[:maxSurfacedItems]
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].RelevanceScore != results[j].RelevanceScore {
			return results[i].RelevanceScore > results[j].RelevanceScore
		}
		return results[i].Shop.ID < results[j].Shop.ID
	})
	tracker.Complete(progress.StepRanking, fmt.Sprintf("%d shop(s) ranked", len(results)))

	log.Debug().Int("shops", len(results)).Msg("Intelligent search finished")
	return &Result{
		Query:      query,
		Intent:     analysis,
		Shops:      results,
		TotalShops: len(results),
	}, nil
}

// SearchShop is the shop-scoped search used by the searchItemsInShop
// operation: a single-variant similarity search with no progress run.
func (p *Pipeline) SearchShop(ctx context.Context, shopID, query string, limit int) ([]model.ScoredItem, error) {
	if limit <= 0 {
		limit = maxSurfacedItems
	}
	ctx, cancel := context.WithTimeout(ctx, p.shopTimeout)
	defer cancel()

	hits, err := p.items.SearchItems(ctx, shopID, []string{query})
	if err != nil {
		return nil, errx.WrapSearch(err)
	}
	merged := mergeHits(hits)
	sortItemsBySimilarity(merged)
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func (p *Pipeline) extractIntent(ctx context.Context, query string) (*model.IntentAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, p.stepTimeout)
	defer cancel()

	analysis, err := p.intent.Extract(ctx, query)
	if err != nil {
		return nil, err
	}
	if analysis == nil || analysis.PrimaryQuery == "" {
		return nil, fmt.Errorf("intent extraction returned no primary query")
	}
	return analysis, nil
}

func (p *Pipeline) findShops(ctx context.Context, at model.Coordinates, limit int) ([]model.Shop, error) {
	ctx, cancel := context.WithTimeout(ctx, p.stepTimeout)
	defer cancel()
	return p.shops.FindShops(ctx, at, limit)
}

// searchShops fans the per-shop similarity searches out concurrently,
// bounded by maxShops, and joins all-complete or first-error.
func (p *Pipeline) searchShops(ctx context.Context, shops []model.Shop, variants []string, maxShops int) ([][]model.ScoredItem, error) {
	hitsPerShop := make([][]model.ScoredItem, len(shops))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxShops)
	for i, shop := range shops {
		g.Go(func() error {
			shopCtx, cancel := context.WithTimeout(gctx, p.shopTimeout)
			defer cancel()

			hits, err := p.items.SearchItems(shopCtx, shop.ID, variants)
			if err != nil {
				return fmt.Errorf("shop %s: %w", shop.ID, err)
			}
			hitsPerShop[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return hitsPerShop, nil
}

// mergeHits deduplicates hits by item ID, keeping the best similarity seen
// across query variants.
func mergeHits(hits []model.ScoredItem) []model.ScoredItem {
	best := make(map[string]model.ScoredItem, len(hits))
	order := make([]string, 0, len(hits))
	for _, hit := range hits {
		prev, seen := best[hit.Item.ID]
		if !seen {
			order = append(order, hit.Item.ID)
			best[hit.Item.ID] = hit
			continue
		}
		if hit.Similarity > prev.Similarity {
			best[hit.Item.ID] = hit
		}
	}
	merged := make([]model.ScoredItem, 0, len(best))
	for _, id := range order {
		merged = append(merged, best[id])
	}
	return merged
}
