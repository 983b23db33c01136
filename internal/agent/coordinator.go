package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aroundyou/commerce-agent/internal/agent/dispatch"
	"github.com/aroundyou/commerce-agent/internal/agent/engine"
	"github.com/aroundyou/commerce-agent/internal/agent/model"
	logx "github.com/aroundyou/commerce-agent/pkg/logger"
)

const wrapUpNotice = "You have reached the tool call limit for this turn. " +
	"Summarize what you found so far and answer the customer directly without calling any more functions."

// CoordinatorConfig wires one conversation loop.
type CoordinatorConfig struct {
	Session    *engine.Session
	Dispatcher *dispatch.Dispatcher
	// MaxToolCalls bounds how many functions one user turn may trigger.
	MaxToolCalls int
	// Location is the customer's delivery point, forwarded to every dispatch.
	Location model.Coordinates
}

// Coordinator drives a full user turn: send the message, dispatch every tool
// call the model selects, feed results back, and return the final text. Turns
// on the same session are serialized here.
type Coordinator struct {
	mu           sync.Mutex
	session      *engine.Session
	dispatcher   *dispatch.Dispatcher
	maxToolCalls int
	location     model.Coordinates
	log          zerolog.Logger
}

func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.Session == nil || cfg.Dispatcher == nil {
		return nil, fmt.Errorf("coordinator: session and dispatcher are required")
	}
	maxCalls := cfg.MaxToolCalls
	if maxCalls <= 0 {
		maxCalls = 8
	}
	return &Coordinator{
		session:      cfg.Session,
		dispatcher:   cfg.Dispatcher,
		maxToolCalls: maxCalls,
		location:     cfg.Location,
		log:          logx.With("coordinator"),
	}, nil
}

// Session exposes the underlying dialogue session.
func (c *Coordinator) Session() *engine.Session {
	return c.session
}

// Converse runs one complete user turn and returns the assistant's final
// text. Tool calls are dispatched in order; when the per-turn limit is hit
// the model is told to wrap up without further functions.
func (c *Coordinator) Converse(ctx context.Context, text string, opts ...engine.TurnOption) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reply, err := c.session.SendMessage(ctx, text, opts...)
	if err != nil {
		return "", err
	}

	for calls := 0; reply.ToolCall != nil; calls++ {
		call := *reply.ToolCall

		if calls >= c.maxToolCalls {
			c.log.Warn().Int("limit", c.maxToolCalls).Msg("Tool call limit reached; asking model to wrap up")
			if err := c.session.AppendToolResult(reply.Generation, call,
				model.ErrorResult(call.Function.Name, "tool call limit reached for this turn")); err != nil {
				return "", err
			}
			c.session.InjectSystemNotice(wrapUpNotice)
			reply, err = c.session.ContinueConversation(ctx, opts...)
			if err != nil {
				return "", err
			}
			if reply.ToolCall != nil {
				// The model ignored the wrap-up; end the turn gracefully.
				return "I gathered quite a lot this turn. Could you tell me which part you'd like me to finish first?", nil
			}
			break
		}

		result := c.dispatcher.Execute(ctx, dispatch.Invocation{CallID: call.ID, Location: c.location}, call)
		if err := c.session.AppendToolResult(reply.Generation, call, result); err != nil {
			return "", err
		}
		reply, err = c.session.ContinueConversation(ctx, opts...)
		if err != nil {
			return "", err
		}
	}

	if err := c.session.Persist(ctx); err != nil {
		c.log.Warn().Err(err).Msg("Failed to persist session snapshot")
	}
	return reply.Text, nil
}
