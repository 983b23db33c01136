package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	"github.com/aroundyou/commerce-agent/internal/agent/model"
	logx "github.com/aroundyou/commerce-agent/pkg/logger"
)

// Config holds what it takes to reach Gemini and shape both models.
type Config struct {
	APIKey          string
	BaseURL         string
	AssistantConfig *model.AssistantModelConfig
	IntentConfig    *model.IntentModelConfig
}

// Models holds the two chat models the agent runs on: the tool-calling
// assistant and the lighter intent extractor.
type Models struct {
	Assistant          *gemini.ChatModel
	Intent             *gemini.ChatModel
	AssistantModelName string
	IntentModelName    string
}

// NewModels creates both chat models over one shared Gemini client.
func NewModels(ctx context.Context, cfg Config) (*Models, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	assistant, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.AssistantConfig.Model,
		Temperature: &cfg.AssistantConfig.Temperature,
		MaxTokens:   &cfg.AssistantConfig.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  genai.Ptr(int32(2000)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating assistant model")
		return nil, fmt.Errorf("error creating assistant model: %w", err)
	}

	intent, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.IntentConfig.Model,
		Temperature: &cfg.IntentConfig.Temperature,
		MaxTokens:   &cfg.IntentConfig.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating intent model")
		return nil, fmt.Errorf("error creating intent model: %w", err)
	}

	return &Models{
		Assistant:          assistant,
		Intent:             intent,
		AssistantModelName: cfg.AssistantConfig.Model,
		IntentModelName:    cfg.IntentConfig.Model,
	}, nil
}
