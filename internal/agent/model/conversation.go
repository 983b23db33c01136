package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// ConversationState is the loss-free snapshot of one dialogue session:
// the full ordered message log, the standing system instructions and
// free-form metadata. It round-trips through JSON unchanged.
type ConversationState struct {
	SessionID    string            `json:"session_id"`
	SystemPrompt string            `json:"system_prompt"`
	Messages     []*schema.Message `json:"messages"`
	Metadata     map[string]any    `json:"metadata,omitempty"`
}

// SessionStore persists conversation snapshots. Only the snapshot contract is
// mandated; the storage format behind it is the store's business.
type SessionStore interface {
	// SaveState persists the full snapshot for the session.
	SaveState(ctx context.Context, sessionID string, state *ConversationState) error

	// LoadState retrieves the snapshot for the session.
	LoadState(ctx context.Context, sessionID string) (*ConversationState, error)

	// DeleteState removes the persisted snapshot for the session.
	DeleteState(ctx context.Context, sessionID string) error
}

// FunctionResult is the normalized outcome of one dispatched tool call.
// Exactly one of Data or Error is meaningful; Error is a plain-language
// message the model can react to conversationally.
type FunctionResult struct {
	Name  string `json:"name"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// DataResult builds a successful function result.
func DataResult(name string, data any) FunctionResult {
	return FunctionResult{Name: name, Data: data}
}

// ErrorResult builds a failed function result carrying a readable message.
func ErrorResult(name string, msg string) FunctionResult {
	return FunctionResult{Name: name, Error: msg}
}

// Failed reports whether the dispatch produced an error outcome.
func (r FunctionResult) Failed() bool {
	return r.Error != ""
}
