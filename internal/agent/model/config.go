package model

// ================ Config ================

type SessionConfig struct {
	TTL string `envconfig:"SESSION_TTL" default:"30m"`
	Tools struct {
		MaxCalls int `envconfig:"SESSION_TOOL_MAX_CALLS" default:"8"`
	}
	ModelTimeout string `envconfig:"SESSION_MODEL_TIMEOUT" default:"45s"`
}

type AssistantModelConfig struct {
	Model       string  `envconfig:"ASSISTANT_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"ASSISTANT_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"ASSISTANT_TEMPERATURE" default:"0.4"`
}

type IntentModelConfig struct {
	Model       string  `envconfig:"INTENT_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"INTENT_MAX_TOKENS" default:"1500"`
	Temperature float32 `envconfig:"INTENT_TEMPERATURE" default:"0.1"`
}

type SearchConfig struct {
	MaxShops     int    `envconfig:"SEARCH_MAX_SHOPS" default:"10"`
	ItemsPerShop int    `envconfig:"SEARCH_ITEMS_PER_SHOP" default:"10"`
	StepTimeout  string `envconfig:"SEARCH_STEP_TIMEOUT" default:"20s"`
	ShopTimeout  string `envconfig:"SEARCH_SHOP_TIMEOUT" default:"8s"`
}

type PromptConfig struct {
	BusinessName string `envconfig:"PROMPT_BUSINESS_NAME" default:"AroundYou"`
	Currency     string `envconfig:"PROMPT_CURRENCY" default:"PKR"`
}
