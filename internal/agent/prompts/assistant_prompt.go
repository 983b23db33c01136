package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/aroundyou/commerce-agent/internal/agent/model"
	"github.com/aroundyou/commerce-agent/internal/agent/registry"
)

//go:embed template/assistant_prompt.txt
var assistantSystemPrompt string

// RenderAssistantSystem renders the standing system instructions for the
// dialogue engine via the Eino prompt component.
func RenderAssistantSystem(ctx context.Context, config model.PromptConfig) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(assistantSystemPrompt),
	)
	vars := map[string]any{
		"BusinessName":   config.BusinessName,
		"Currency":       config.Currency,
		"SearchFunc":     registry.FuncIntelligentSearch,
		"ShopSearchFunc": registry.FuncSearchItemsInShop,
		"BatchAddFunc":   registry.FuncAddItemsToCart,
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("assistant prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("assistant prompt render: empty result")
	}
	return msgs[0].Content, nil
}
