package intent

import (
	"context"
	"fmt"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/aroundyou/commerce-agent/internal/agent/model"
	"github.com/aroundyou/commerce-agent/internal/agent/prompts"
	errx "github.com/aroundyou/commerce-agent/internal/core/error"
	logx "github.com/aroundyou/commerce-agent/pkg/logger"
)

// Extractor runs intent extraction against a chat model: one model call per
// utterance, however many items it names.
type Extractor struct {
	chatModel einomodel.BaseChatModel
	timeout   time.Duration
}

func NewExtractor(chatModel einomodel.BaseChatModel, timeout time.Duration) (*Extractor, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("intent extractor: chat model is required")
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Extractor{chatModel: chatModel, timeout: timeout}, nil
}

// Extract implements model.IntentExtractor.
func (e *Extractor) Extract(ctx context.Context, query string) (*model.IntentAnalysis, error) {
	systemPrompt, err := prompts.RenderIntentSystem(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := e.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(query),
	})
	if err != nil {
		logx.Error().Err(err).Str("component", "intent_extractor").Msg("Intent model call failed")
		return nil, errx.WrapExternal(err)
	}
	if out == nil {
		return nil, fmt.Errorf("intent model returned no message")
	}

	analysis, err := ParseResponse(out.Content)
	if err != nil {
		logx.Error().Err(err).Str("component", "intent_extractor").Msg("Intent response unparseable")
		return nil, err
	}

	logx.Debug().
		Str("component", "intent_extractor").
		Str("primary_query", analysis.PrimaryQuery).
		Int("items", len(analysis.Items)).
		Int("variants", len(analysis.ExpandedQueries)).
		Msg("Intent extracted")
	return analysis, nil
}

var _ model.IntentExtractor = (*Extractor)(nil)
