package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/intent_prompt.txt
var intentSystemPrompt string

// RenderIntentSystem renders the intent-extraction system prompt. The
// template contains literal JSON braces, so it goes through a messages
// placeholder instead of a format string.
func RenderIntentSystem(ctx context.Context) (string, error) {
	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(intentSystemPrompt)},
	})
	if err != nil {
		return "", fmt.Errorf("intent prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("intent prompt render: empty result")
	}
	return msgs[0].Content, nil
}
