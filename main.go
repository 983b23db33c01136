package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/aroundyou/commerce-agent/internal/agent"
	"github.com/aroundyou/commerce-agent/internal/agent/catalog"
	"github.com/aroundyou/commerce-agent/internal/agent/dispatch"
	"github.com/aroundyou/commerce-agent/internal/agent/engine"
	"github.com/aroundyou/commerce-agent/internal/agent/intent"
	"github.com/aroundyou/commerce-agent/internal/agent/llm"
	"github.com/aroundyou/commerce-agent/internal/agent/model"
	"github.com/aroundyou/commerce-agent/internal/agent/progress"
	"github.com/aroundyou/commerce-agent/internal/agent/prompts"
	"github.com/aroundyou/commerce-agent/internal/agent/registry"
	"github.com/aroundyou/commerce-agent/internal/agent/repo"
	"github.com/aroundyou/commerce-agent/internal/agent/search"
	"github.com/aroundyou/commerce-agent/internal/core"
	logx "github.com/aroundyou/commerce-agent/pkg/logger"
	pkgredis "github.com/aroundyou/commerce-agent/pkg/redis"
)

// AppConfig defines all configurable parameters for the agent example,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	// Infrastructure
	Redis pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Assistant model.AssistantModelConfig
	Intent    model.IntentModelConfig
	Session   model.SessionConfig
	Search    model.SearchConfig
	Prompt    model.PromptConfig
}

func main() {
	fmt.Println("Starting commerce agent demo...")
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}
	logx.Init(logx.LoggerOpts{Environment: core.FromEnv()})

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	rdb, err := envCfg.Redis.New()
	if err != nil {
		log.Fatalf("Failed to initialise Redis client: %v", err)
	}
	defer rdb.Close()
	fmt.Println("Connected to Redis successfully")

	ttl, err := time.ParseDuration(envCfg.Session.TTL)
	if err != nil {
		log.Fatalf("Invalid SESSION_TTL '%s': %v", envCfg.Session.TTL, err)
	}
	modelTimeout, err := time.ParseDuration(envCfg.Session.ModelTimeout)
	if err != nil {
		log.Fatalf("Invalid SESSION_MODEL_TIMEOUT '%s': %v", envCfg.Session.ModelTimeout, err)
	}
	stepTimeout, err := time.ParseDuration(envCfg.Search.StepTimeout)
	if err != nil {
		log.Fatalf("Invalid SEARCH_STEP_TIMEOUT '%s': %v", envCfg.Search.StepTimeout, err)
	}
	shopTimeout, err := time.ParseDuration(envCfg.Search.ShopTimeout)
	if err != nil {
		log.Fatalf("Invalid SEARCH_SHOP_TIMEOUT '%s': %v", envCfg.Search.ShopTimeout, err)
	}

	// ====================================================
	// Models
	models, err := llm.NewModels(ctx, llm.Config{
		APIKey:          envCfg.APIKey,
		BaseURL:         envCfg.BaseURL,
		AssistantConfig: &envCfg.Assistant,
		IntentConfig:    &envCfg.Intent,
	})
	if err != nil {
		log.Fatalf("Failed to create chat models: %v", err)
	}

	extractor, err := intent.NewExtractor(models.Intent, stepTimeout)
	if err != nil {
		log.Fatalf("Failed to create intent extractor: %v", err)
	}

	// ====================================================
	// Catalog, carts, orders
	shops, items := demoCatalog()
	cat := catalog.NewMemoryCatalog(shops, items)
	carts := repo.NewMemoryCartStore(cat)
	orders := repo.NewMemoryOrderPlacer(carts, demoAddresses(), "addr-home")

	// ====================================================
	// Search pipeline, registry, dispatcher
	reg := registry.New()
	broadcaster := progress.NewBroadcaster()

	pipeline, err := search.New(search.Config{
		Intent:      extractor,
		Shops:       cat,
		Items:       cat,
		Broadcaster: broadcaster,
		StepTimeout: stepTimeout,
		ShopTimeout: shopTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to create search pipeline: %v", err)
	}

	dispatcher, err := dispatch.New(dispatch.Config{
		Registry: reg,
		Carts:    carts,
		Orders:   orders,
		Search:   pipeline,
	})
	if err != nil {
		log.Fatalf("Failed to create dispatcher: %v", err)
	}

	// ====================================================
	// Dialogue session
	systemPrompt, err := prompts.RenderAssistantSystem(ctx, envCfg.Prompt)
	if err != nil {
		log.Fatalf("Failed to render system prompt: %v", err)
	}

	session, err := engine.NewSession(engine.Config{
		Model:        models.Assistant,
		Registry:     reg,
		SessionID:    "demo-session-001",
		SystemPrompt: systemPrompt,
		ModelTimeout: modelTimeout,
		Store:        repo.NewRedisSessionStore(rdb, ttl),
	})
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	if err := session.Hydrate(ctx); err != nil {
		log.Printf("Warning: Could not hydrate session: %v", err)
	}

	coordinator, err := agent.NewCoordinator(agent.CoordinatorConfig{
		Session:      session,
		Dispatcher:   dispatcher,
		MaxToolCalls: envCfg.Session.Tools.MaxCalls,
		Location:     model.Coordinates{Latitude: 24.8607, Longitude: 67.0011},
	})
	if err != nil {
		log.Fatalf("Failed to create coordinator: %v", err)
	}

	testQueries := []struct {
		description string
		query       string
	}{
		{
			description: "Greeting",
			query:       "Hi! What can you help me with?",
		},
		{
			description: "Multi-item search",
			query:       "I want to order 2 oreo mini and 3 rio biscuit",
		},
		{
			description: "Order placement",
			query:       "Great, add those to my cart and place the order",
		},
	}

	for i, test := range testQueries {
		fmt.Printf("\nTest %d: %s\n", i+1, test.description)
		fmt.Printf("Query: %q\n", test.query)
		fmt.Println("Processing...")

		reply, err := coordinator.Converse(ctx, test.query)
		if err != nil {
			log.Fatalf("Turn %d failed: %v", i+1, err)
		}
		fmt.Printf("Response %d: %s\n", i+1, reply)

		if key, steps, ok := broadcaster.Latest(); ok {
			fmt.Printf("Search progress (%s):\n", key)
			for _, step := range steps {
				fmt.Printf("  [%s] %s %s\n", step.Status, step.Label, step.Details)
			}
		}
		fmt.Println("-----------------------------------------------")

		time.Sleep(500 * time.Millisecond)
	}

	fmt.Println("Demo finished.")
}

func demoAddresses() []model.Address {
	return []model.Address{
		{ID: "addr-home", Street: "14-B Khayaban-e-Ittehad", City: "Karachi", Landmark: "next to Sunday Bazaar gate"},
		{ID: "addr-office", Street: "Plot 7, Shahrah-e-Faisal", City: "Karachi"},
	}
}

// demoCatalog seeds a handful of nearby grocery shops for local runs.
func demoCatalog() ([]model.Shop, []model.Item) {
	shops := []model.Shop{
		{
			ID: "shop-alfatah", Name: "Al-Fatah Mart", Category: "grocery",
			Address: "Khayaban-e-Shahbaz", Location: model.Coordinates{Latitude: 24.8620, Longitude: 67.0030},
			DeliveryRadiusKM: 6, Open: true,
		},
		{
			ID: "shop-springs", Name: "Springs Superstore", Category: "grocery",
			Address: "Tariq Road", Location: model.Coordinates{Latitude: 24.8710, Longitude: 67.0450},
			DeliveryRadiusKM: 8, Open: true,
		},
		{
			ID: "shop-closed", Name: "Night Owl Kiryana", Category: "grocery",
			Address: "Zamzama", Location: model.Coordinates{Latitude: 24.8150, Longitude: 67.0290},
			DeliveryRadiusKM: 5, Open: false,
		},
	}
	items := []model.Item{
		{ID: "item-oreo-mini", ShopID: "shop-alfatah", Name: "Oreo Mini Cookies 20g", Brand: "Oreo", Category: "biscuits", Description: "mini chocolate sandwich cookies snack pack", Price: 70, InStock: true},
		{ID: "item-oreo-family", ShopID: "shop-alfatah", Name: "Oreo Family Pack", Brand: "Oreo", Category: "biscuits", Description: "chocolate sandwich cookies family size", Price: 350, InStock: true},
		{ID: "item-rio", ShopID: "shop-alfatah", Name: "Rio Chocolate Biscuit", Brand: "Peek Freans", Category: "biscuits", Description: "double chocolate cream biscuit", Price: 50, InStock: true},
		{ID: "item-milk", ShopID: "shop-alfatah", Name: "Olpers Milk 1L", Brand: "Olpers", Category: "dairy", Description: "full cream UHT milk", Price: 290, InStock: true},
		{ID: "item-oreo-springs", ShopID: "shop-springs", Name: "Oreo Mini Snack Pack", Brand: "Oreo", Category: "biscuits", Description: "mini cookies on the go", Price: 75, InStock: true},
		{ID: "item-rio-springs", ShopID: "shop-springs", Name: "Rio Biscuit Half Roll", Brand: "Peek Freans", Category: "biscuits", Description: "chocolate cream biscuit half roll", Price: 30, InStock: false},
		{ID: "item-bread", ShopID: "shop-springs", Name: "Dawn Bread Large", Brand: "Dawn", Category: "bakery", Description: "white sandwich bread", Price: 180, InStock: true},
	}
	return shops, items
}
