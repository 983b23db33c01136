package dispatch

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/aroundyou/commerce-agent/internal/agent/catalog"
	"github.com/aroundyou/commerce-agent/internal/agent/model"
	"github.com/aroundyou/commerce-agent/internal/agent/progress"
	"github.com/aroundyou/commerce-agent/internal/agent/registry"
	"github.com/aroundyou/commerce-agent/internal/agent/repo"
	"github.com/aroundyou/commerce-agent/internal/agent/search"
)

type staticIntent struct {
	analysis *model.IntentAnalysis
}

func (s *staticIntent) Extract(ctx context.Context, query string) (*model.IntentAnalysis, error) {
	return s.analysis, nil
}

type fixture struct {
	dispatcher  *Dispatcher
	carts       *repo.MemoryCartStore
	orders      *repo.MemoryOrderPlacer
	broadcaster *progress.Broadcaster
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	at := model.Coordinates{Latitude: 24.8607, Longitude: 67.0011}
	cat := catalog.NewMemoryCatalog(
		[]model.Shop{
			{ID: "shop-a", Name: "Al-Fatah Mart", Location: at, DeliveryRadiusKM: 5, Open: true},
			{ID: "shop-b", Name: "Springs", Location: at, DeliveryRadiusKM: 5, Open: true},
		},
		[]model.Item{
			{ID: "oreo", ShopID: "shop-a", Name: "Oreo Mini Cookies", Brand: "Oreo", Category: "biscuits", Price: 70, InStock: true},
			{ID: "rio", ShopID: "shop-a", Name: "Rio Chocolate Biscuit", Category: "biscuits", Price: 50, InStock: true},
			{ID: "milk", ShopID: "shop-b", Name: "Olpers Milk", Category: "dairy", Price: 290, InStock: true},
			{ID: "gone", ShopID: "shop-b", Name: "Sold Out Biscuit", Category: "biscuits", Price: 10, InStock: false},
		},
	)
	carts := repo.NewMemoryCartStore(cat)
	orders := repo.NewMemoryOrderPlacer(carts, []model.Address{
		{ID: "addr-home", Street: "14-B", City: "Karachi", Landmark: "by the park"},
		{ID: "addr-bare", Street: "Plot 7", City: "Karachi"},
	}, "addr-home")

	broadcaster := progress.NewBroadcaster()
	pipeline, err := search.New(search.Config{
		Intent: &staticIntent{analysis: &model.IntentAnalysis{
			PrimaryQuery:    "oreo mini",
			ExpandedQueries: []string{"chocolate biscuit"},
			Items:           []model.ExtractedItem{{Name: "oreo mini", Quantity: 1}},
		}},
		Shops:       cat,
		Items:       cat,
		Broadcaster: broadcaster,
		StepTimeout: time.Second,
		ShopTimeout: time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}

	d, err := New(Config{
		Registry: registry.New(),
		Carts:    carts,
		Orders:   orders,
		Search:   pipeline,
	})
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{dispatcher: d, carts: carts, orders: orders, broadcaster: broadcaster}
}

func call(id, name, args string) schema.ToolCall {
	return schema.ToolCall{ID: id, Function: schema.FunctionCall{Name: name, Arguments: args}}
}

func inv(callID string) Invocation {
	return Invocation{CallID: callID, Location: model.Coordinates{Latitude: 24.8607, Longitude: 67.0011}}
}

func TestExecuteUnknownFunction(t *testing.T) {
	f := newFixture(t)
	res := f.dispatcher.Execute(context.Background(), inv("c1"), call("c1", "teleportItems", "{}"))
	if !res.Failed() {
		t.Fatal("unknown function must produce an error result")
	}
	if res.Error != "unknown function" {
		t.Errorf("error message: %q", res.Error)
	}
}

func TestExecuteMalformedArguments(t *testing.T) {
	f := newFixture(t)
	res := f.dispatcher.Execute(context.Background(), inv("c1"), call("c1", registry.FuncGetCart, `{"shopId":}`))
	if !res.Failed() {
		t.Fatal("malformed arguments must produce an error result")
	}
	if !strings.HasPrefix(res.Error, "malformed arguments") {
		t.Errorf("error message: %q", res.Error)
	}
}

func TestExecuteCartLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.dispatcher.Execute(ctx, inv("c1"), call("c1", registry.FuncAddItemToCart, `{"shopId":"shop-a","itemId":"oreo","quantity":2}`))
	if res.Failed() {
		t.Fatalf("add failed: %s", res.Error)
	}
	cart, ok := res.Data.(*model.Cart)
	if !ok {
		t.Fatalf("expected *model.Cart data, got %T", res.Data)
	}
	if cart.TotalItems != 2 {
		t.Errorf("cart total: %d", cart.TotalItems)
	}

	res = f.dispatcher.Execute(ctx, inv("c2"), call("c2", registry.FuncUpdateItemQuantity, `{"shopId":"shop-a","itemId":"oreo","quantity":5}`))
	if res.Failed() {
		t.Fatalf("update failed: %s", res.Error)
	}
	if res.Data.(*model.Cart).TotalItems != 5 {
		t.Errorf("after update: %d", res.Data.(*model.Cart).TotalItems)
	}

	res = f.dispatcher.Execute(ctx, inv("c3"), call("c3", registry.FuncRemoveItemFromCart, `{"shopId":"shop-a","itemId":"oreo"}`))
	if res.Failed() {
		t.Fatalf("remove failed: %s", res.Error)
	}
	if len(res.Data.(*model.Cart).Lines) != 0 {
		t.Error("line should be removed entirely when quantity omitted")
	}

	res = f.dispatcher.Execute(ctx, inv("c4"), call("c4", registry.FuncGetCart, `{"shopId":"shop-a"}`))
	if res.Failed() {
		t.Fatalf("get cart failed: %s", res.Error)
	}
}

func TestExecuteCartErrorsComeBackAsResults(t *testing.T) {
	f := newFixture(t)
	res := f.dispatcher.Execute(context.Background(), inv("c1"),
		call("c1", registry.FuncAddItemToCart, `{"shopId":"shop-b","itemId":"gone","quantity":1}`))
	if !res.Failed() {
		t.Fatal("out-of-stock add must fail")
	}
	if !strings.Contains(res.Error, "out of stock") {
		t.Errorf("error message: %q", res.Error)
	}
}

func TestExecuteBatchAddIndependentOutcomes(t *testing.T) {
	f := newFixture(t)
	res := f.dispatcher.Execute(context.Background(), inv("c1"), call("c1", registry.FuncAddItemsToCart, `{"items":[
		{"shopId":"shop-a","itemId":"oreo","quantity":2},
		{"shopId":"shop-b","itemId":"gone","quantity":1},
		{"shopId":"shop-b","itemId":"milk","quantity":1}
	]}`))
	if res.Failed() {
		t.Fatalf("batch with partial failures is still a data result: %s", res.Error)
	}
	batch, ok := res.Data.(BatchAddResult)
	if !ok {
		t.Fatalf("expected BatchAddResult, got %T", res.Data)
	}
	if len(batch.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(batch.Outcomes))
	}
	if !batch.Outcomes[0].Added || batch.Outcomes[1].Added || !batch.Outcomes[2].Added {
		t.Errorf("independent outcomes wrong: %+v", batch.Outcomes)
	}
	if batch.Outcomes[1].Error == "" {
		t.Error("failed outcome should carry its error")
	}
	if len(batch.Added) != 2 {
		t.Errorf("expected 2 added, got %d", len(batch.Added))
	}
	if len(batch.Carts) != 2 {
		t.Fatalf("expected carts for both shops, got %d", len(batch.Carts))
	}
	if batch.Carts[0].ShopID != "shop-a" || batch.Carts[1].ShopID != "shop-b" {
		t.Errorf("carts should follow first-appearance order: %s, %s", batch.Carts[0].ShopID, batch.Carts[1].ShopID)
	}
}

func TestExecuteIntelligentSearch(t *testing.T) {
	f := newFixture(t)
	res := f.dispatcher.Execute(context.Background(), inv("call-42"),
		call("call-42", registry.FuncIntelligentSearch, `{"query":"oreo mini"}`))
	if res.Failed() {
		t.Fatalf("search failed: %s", res.Error)
	}
	result, ok := res.Data.(*search.Result)
	if !ok {
		t.Fatalf("expected *search.Result, got %T", res.Data)
	}
	if result.TotalShops == 0 {
		t.Error("expected at least one shop with matches")
	}

	// The progress run is keyed by the originating tool call.
	steps, ok := f.broadcaster.Snapshot("call-42")
	if !ok {
		t.Fatal("no progress run for the call ID")
	}
	for _, step := range steps {
		if step.Status != progress.StatusCompleted {
			t.Errorf("step %s: %s", step.ID, step.Status)
		}
	}
}

func TestExecuteSearchItemsInShop(t *testing.T) {
	f := newFixture(t)
	res := f.dispatcher.Execute(context.Background(), inv("c1"),
		call("c1", registry.FuncSearchItemsInShop, `{"shopId":"shop-a","query":"chocolate biscuit","limit":5}`))
	if res.Failed() {
		t.Fatalf("shop search failed: %s", res.Error)
	}
	data, ok := res.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected data shape: %T", res.Data)
	}
	items, ok := data["items"].([]model.ScoredItem)
	if !ok || len(items) == 0 {
		t.Fatalf("expected scored items, got %v", data["items"])
	}
}

func TestExecutePlaceOrderLandmarkRejection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.dispatcher.Execute(ctx, inv("c1"), call("c1", registry.FuncAddItemToCart, `{"shopId":"shop-a","itemId":"oreo"}`))
	if res.Failed() {
		t.Fatal(res.Error)
	}

	res = f.dispatcher.Execute(ctx, inv("c2"),
		call("c2", registry.FuncPlaceOrder, `{"shopId":"shop-a","addressId":"addr-bare"}`))
	if res.Failed() {
		t.Fatalf("business-rule rejection must be a data result, got error %q", res.Error)
	}
	outcome, ok := res.Data.(*model.OrderOutcome)
	if !ok {
		t.Fatalf("expected *model.OrderOutcome, got %T", res.Data)
	}
	if outcome.Success || !outcome.LandmarkRequired() {
		t.Errorf("expected landmark_required rejection: %+v", outcome)
	}
}

func TestExecutePlaceOrderSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.dispatcher.Execute(ctx, inv("c1"), call("c1", registry.FuncAddItemToCart, `{"shopId":"shop-a","itemId":"oreo","quantity":3}`))
	res := f.dispatcher.Execute(ctx, inv("c2"), call("c2", registry.FuncPlaceOrder, `{"shopId":"shop-a"}`))
	if res.Failed() {
		t.Fatal(res.Error)
	}
	outcome := res.Data.(*model.OrderOutcome)
	if !outcome.Success || outcome.Order == nil {
		t.Fatalf("expected successful order: %+v", outcome)
	}
	if len(f.orders.Orders()) != 1 {
		t.Errorf("order not recorded")
	}
	if f.carts.HasCart("shop-a") {
		t.Error("cart should be cleared after ordering")
	}
}

func TestExecuteGetAllCarts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.dispatcher.Execute(ctx, inv("c1"), call("c1", registry.FuncAddItemToCart, `{"shopId":"shop-a","itemId":"oreo"}`))
	f.dispatcher.Execute(ctx, inv("c2"), call("c2", registry.FuncAddItemToCart, `{"shopId":"shop-b","itemId":"milk"}`))

	res := f.dispatcher.Execute(ctx, inv("c3"), call("c3", registry.FuncGetAllCarts, ""))
	if res.Failed() {
		t.Fatal(res.Error)
	}
	data := res.Data.(map[string]any)
	carts, ok := data["carts"].([]*model.Cart)
	if !ok || len(carts) != 2 {
		t.Fatalf("expected 2 carts, got %v", data["carts"])
	}
}
