package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aroundyou/commerce-agent/internal/agent/model"
	"github.com/aroundyou/commerce-agent/internal/agent/registry"
	errx "github.com/aroundyou/commerce-agent/internal/core/error"
	logx "github.com/aroundyou/commerce-agent/pkg/logger"
)

// phase is the per-turn state of the session.
//
//	idle -> awaitingModel -> idle                 (plain text reply)
//	idle -> awaitingModel -> awaitingDispatch     (model selected a tool)
//	awaitingDispatch -> readyContinue             (tool result appended)
//	readyContinue -> awaitingModel -> ...         (continuation turn)
type phase int

const (
	phaseIdle phase = iota
	phaseAwaitingModel
	phaseAwaitingDispatch
	phaseReadyContinue
)

var (
	// ErrStaleTurn signals a completion whose generation lost to a newer
	// user turn or a history clear; its result was discarded.
	ErrStaleTurn = errors.New("stale turn result discarded")
	// ErrNoPendingContinuation signals ContinueConversation without a
	// preceding tool result.
	ErrNoPendingContinuation = errors.New("no pending continuation")
	// ErrNoPendingDispatch signals a tool result with no matching pending call.
	ErrNoPendingDispatch = errors.New("no pending dispatch")
)

// Config wires one dialogue session.
type Config struct {
	Model        einomodel.ToolCallingChatModel
	Registry     *registry.Registry
	SessionID    string
	SystemPrompt string
	// ModelTimeout bounds each model turn.
	ModelTimeout time.Duration
	// Store, when set, backs Persist/Hydrate snapshots.
	Store model.SessionStore
}

// Session owns one conversation: the ordered message log, the standing
// system instructions and the turn state machine. All mutation goes through
// its methods; snapshots returned to callers are copies.
type Session struct {
	mu           sync.Mutex
	chatModel    einomodel.ToolCallingChatModel
	sessionID    string
	systemPrompt string
	messages     []*schema.Message
	metadata     map[string]any
	phase        phase
	pendingCall  *schema.ToolCall
	modelTimeout time.Duration
	store        model.SessionStore
	log          zerolog.Logger

	// gen increments on every new user turn and on history clears. Any
	// completion carrying an older generation is discarded, never applied.
	gen atomic.Int64
}

// TurnReply is the outcome of one model turn: final text, or a tool call the
// caller must dispatch before continuing. Generation tags the turn so later
// appends can be checked for staleness.
type TurnReply struct {
	Text       string
	ToolCall   *schema.ToolCall
	Generation int64
}

func NewSession(cfg Config) (*Session, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("engine: chat model is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("engine: registry is required")
	}
	sessionID := cfg.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	timeout := cfg.ModelTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	// The registry is bound once; the same catalog goes out verbatim on
	// every turn.
	bound, err := cfg.Model.WithTools(cfg.Registry.ToolInfos())
	if err != nil {
		return nil, fmt.Errorf("engine: bind tools: %w", err)
	}

	return &Session{
		chatModel:    bound,
		sessionID:    sessionID,
		systemPrompt: cfg.SystemPrompt,
		metadata:     map[string]any{},
		modelTimeout: timeout,
		store:        cfg.Store,
		log:          logx.With("engine").With().Str("session_id", sessionID).Logger(),
	}, nil
}

// SessionID returns the stable identifier of this session.
func (s *Session) SessionID() string {
	return s.sessionID
}

// Generation returns the current turn generation.
func (s *Session) Generation() int64 {
	return s.gen.Load()
}

// SendMessage appends a user message and requests the next assistant
// message. The reply carries either final text or a tool call. Model and
// network failures come back as errors without mutating the log, so the same
// turn can be re-sent.
func (s *Session) SendMessage(ctx context.Context, text string, opts ...TurnOption) (*TurnReply, error) {
	options := applyTurnOptions(opts)

	s.mu.Lock()
	if s.phase == phaseAwaitingDispatch {
		// A new user message preempts the in-flight dispatch: drop the
		// dangling tool-call message so the log keeps its call/result
		// pairing, and let the generation bump orphan the dispatch.
		s.rollbackPendingCallLocked()
	}
	gen := s.gen.Add(1)
	userMsg := schema.UserMessage(composeUserContent(text, options.extraContext))
	s.messages = append(s.messages, userMsg)
	s.phase = phaseAwaitingModel
	history := s.historyLocked()
	s.mu.Unlock()

	s.log.Debug().Int64("generation", gen).Int("history_len", len(history)).Msg("Sending user turn to model")

	out, err := s.callModel(ctx, gen, history, options)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen.Load() != gen {
		return nil, ErrStaleTurn
	}
	if err != nil {
		// Roll the user message back so a retry does not duplicate it.
		s.messages = s.messages[:len(s.messages)-1]
		s.phase = phaseIdle
		return nil, err
	}
	return s.acceptAssistantLocked(gen, out), nil
}

// ContinueConversation resumes the turn after a tool result has been
// appended, requesting the next assistant message with no new user input.
func (s *Session) ContinueConversation(ctx context.Context, opts ...TurnOption) (*TurnReply, error) {
	options := applyTurnOptions(opts)

	s.mu.Lock()
	if s.phase != phaseReadyContinue {
		s.mu.Unlock()
		return nil, ErrNoPendingContinuation
	}
	gen := s.gen.Load()
	s.phase = phaseAwaitingModel
	history := s.historyLocked()
	s.mu.Unlock()

	s.log.Debug().Int64("generation", gen).Msg("Continuing turn after tool result")

	out, err := s.callModel(ctx, gen, history, options)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen.Load() != gen {
		return nil, ErrStaleTurn
	}
	if err != nil {
		s.phase = phaseReadyContinue
		return nil, err
	}
	return s.acceptAssistantLocked(gen, out), nil
}

// AppendToolResult appends the function-role message for the pending tool
// call. Results carrying a stale generation are discarded with ErrStaleTurn
// so they never land out of order.
func (s *Session) AppendToolResult(gen int64, call schema.ToolCall, result model.FunctionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen.Load() != gen {
		s.log.Debug().Int64("generation", gen).Str("function", call.Function.Name).Msg("Discarding stale dispatch result")
		return ErrStaleTurn
	}
	if s.phase != phaseAwaitingDispatch || s.pendingCall == nil || s.pendingCall.ID != call.ID {
		return ErrNoPendingDispatch
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode function result: %w", err)
	}
	toolMsg := schema.ToolMessage(string(payload), call.ID, schema.WithToolName(call.Function.Name))
	s.messages = append(s.messages, toolMsg)
	s.pendingCall = nil
	s.phase = phaseReadyContinue
	return nil
}

// InjectSystemNotice appends an out-of-band system message (e.g. a tool-call
// limit wrap-up) visible to the model on the next turn.
func (s *Session) InjectSystemNotice(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, schema.SystemMessage(text))
}

// PendingToolCall returns the tool call awaiting dispatch, if any.
func (s *Session) PendingToolCall() *schema.ToolCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingCall == nil {
		return nil
	}
	call := *s.pendingCall
	return &call
}

// UpdateSystemPrompt replaces the standing instructions for subsequent turns
// only; the existing message log is untouched.
func (s *Session) UpdateSystemPrompt(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.systemPrompt = text
}

// ClearHistory resets the message log, keeping the current system
// instructions. Pending completions become stale.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen.Add(1)
	s.messages = nil
	s.pendingCall = nil
	s.phase = phaseIdle
}

// Messages returns a shallow copy of the message log.
func (s *Session) Messages() []*schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*schema.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// GetState exports a loss-free snapshot of the session.
func (s *Session) GetState() (*model.ConversationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, err := deepCopyMessages(s.messages)
	if err != nil {
		return nil, err
	}
	meta := make(map[string]any, len(s.metadata))
	for k, v := range s.metadata {
		meta[k] = v
	}
	return &model.ConversationState{
		SessionID:    s.sessionID,
		SystemPrompt: s.systemPrompt,
		Messages:     msgs,
		Metadata:     meta,
	}, nil
}

// RestoreState replaces the session contents with the snapshot. A corrupted
// snapshot is the one session-fatal failure: the session is left unchanged
// and the caller should recreate it.
func (s *Session) RestoreState(state *model.ConversationState) error {
	if state == nil {
		return errx.New(fmt.Errorf("nil snapshot"), 500, errx.SystemErrorMessage)
	}
	msgs, err := deepCopyMessages(state.Messages)
	if err != nil {
		return errx.New(fmt.Errorf("corrupt snapshot: %w", err), 500, errx.SystemErrorMessage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen.Add(1)
	s.messages = msgs
	s.systemPrompt = state.SystemPrompt
	s.metadata = make(map[string]any, len(state.Metadata))
	for k, v := range state.Metadata {
		s.metadata[k] = v
	}
	if state.SessionID != "" {
		s.sessionID = state.SessionID
	}
	s.derivePhaseLocked()
	return nil
}

// Persist saves the current snapshot to the configured store.
func (s *Session) Persist(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	state, err := s.GetState()
	if err != nil {
		return err
	}
	return s.store.SaveState(ctx, s.sessionID, state)
}

// Hydrate loads the stored snapshot into the session, if one exists.
func (s *Session) Hydrate(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	state, err := s.store.LoadState(ctx, s.sessionID)
	if err != nil {
		if errx.KindOf(err) == errx.KindNotFound {
			return nil
		}
		return err
	}
	return s.RestoreState(state)
}

// ---- internals ----

// historyLocked builds the model-facing message list: system instructions
// first, then the full log.
func (s *Session) historyLocked() []*schema.Message {
	history := make([]*schema.Message, 0, len(s.messages)+1)
	if strings.TrimSpace(s.systemPrompt) != "" {
		history = append(history, schema.SystemMessage(s.systemPrompt))
	}
	history = append(history, s.messages...)
	return history
}

// acceptAssistantLocked appends the assistant message and advances the phase.
func (s *Session) acceptAssistantLocked(gen int64, out *schema.Message) *TurnReply {
	// Some providers omit tool call IDs; synthesize them so the
	// call/result pairing stays intact.
	for i := range out.ToolCalls {
		if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
			out.ToolCalls[i].ID = "call_" + uuid.NewString()
		}
	}

	s.messages = append(s.messages, out)

	if len(out.ToolCalls) > 0 {
		call := out.ToolCalls[0]
		s.pendingCall = &call
		s.phase = phaseAwaitingDispatch
		s.log.Debug().Str("function", call.Function.Name).Msg("Model selected a tool")
		return &TurnReply{ToolCall: &call, Generation: gen}
	}

	s.pendingCall = nil
	s.phase = phaseIdle
	s.log.Debug().Msg("Model reply ready")
	return &TurnReply{Text: out.Content, Generation: gen}
}

// rollbackPendingCallLocked drops the dangling tool-call assistant message
// when a new user message preempts its dispatch.
func (s *Session) rollbackPendingCallLocked() {
	if n := len(s.messages); n > 0 {
		last := s.messages[n-1]
		if last.Role == schema.Assistant && len(last.ToolCalls) > 0 {
			s.messages = s.messages[:n-1]
		}
	}
	s.pendingCall = nil
	s.log.Debug().Msg("Preempting in-flight dispatch with new user turn")
}

// derivePhaseLocked reconstructs the turn phase from a restored log.
func (s *Session) derivePhaseLocked() {
	s.pendingCall = nil
	s.phase = phaseIdle
	if n := len(s.messages); n > 0 {
		last := s.messages[n-1]
		switch {
		case last.Role == schema.Assistant && len(last.ToolCalls) > 0:
			call := last.ToolCalls[0]
			s.pendingCall = &call
			s.phase = phaseAwaitingDispatch
		case last.Role == schema.Tool:
			s.phase = phaseReadyContinue
		}
	}
}

// callModel runs one bounded model turn, streaming when a chunk handler is
// attached. Runs outside the session lock; the caller re-checks the
// generation before applying the result.
func (s *Session) callModel(ctx context.Context, gen int64, history []*schema.Message, options turnOptions) (*schema.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.modelTimeout)
	defer cancel()

	if options.onChunk == nil {
		out, err := s.chatModel.Generate(ctx, history)
		if err != nil {
			return nil, errx.WrapExternal(err)
		}
		if out == nil {
			return nil, errx.WrapNetwork(fmt.Errorf("model returned no message"))
		}
		return out, nil
	}

	reader, err := s.chatModel.Stream(ctx, history)
	if err != nil {
		return nil, errx.WrapExternal(err)
	}
	defer reader.Close()

	var chunks []*schema.Message
	for {
		chunk, recvErr := reader.Recv()
		if recvErr != nil {
			if errors.Is(recvErr, io.EOF) {
				break
			}
			return nil, errx.WrapExternal(recvErr)
		}
		if chunk == nil {
			continue
		}
		chunks = append(chunks, chunk)
		// Stale streams stop delivering; their text must not leak into a
		// newer turn's consumer.
		if chunk.Content != "" && s.gen.Load() == gen {
			options.onChunk(chunk.Content)
		}
	}
	if len(chunks) == 0 {
		return nil, errx.WrapNetwork(fmt.Errorf("model stream ended with no content"))
	}

	out, err := schema.ConcatMessages(chunks)
	if err != nil {
		return nil, errx.WrapNetwork(fmt.Errorf("concat stream chunks: %w", err))
	}
	if out.Extra == nil {
		out.Extra = map[string]any{}
	}
	// Marks the trailing assistant message as fully streamed.
	out.Extra[ExtraStreamingComplete] = true
	return out, nil
}

// ExtraStreamingComplete marks an assistant message whose streamed content
// has been fully delivered.
const ExtraStreamingComplete = "streaming_complete"

func composeUserContent(text, extraContext string) string {
	if strings.TrimSpace(extraContext) == "" {
		return text
	}
	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\n<context>\n")
	b.WriteString(extraContext)
	b.WriteString("\n</context>")
	return b.String()
}

func deepCopyMessages(msgs []*schema.Message) ([]*schema.Message, error) {
	if msgs == nil {
		return []*schema.Message{}, nil
	}
	raw, err := json.Marshal(msgs)
	if err != nil {
		return nil, err
	}
	var out []*schema.Message
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

