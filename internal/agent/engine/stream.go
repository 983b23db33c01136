package engine

import "context"

// TurnStream exposes a streamed turn as a plain channel of text fragments,
// so any consumer (UI, test, CLI) can drain it without knowing about the
// model transport.
type TurnStream struct {
	chunks chan string
	done   chan struct{}
	reply  *TurnReply
	err    error
}

// Chunks yields the assistant's text fragments in order. The channel closes
// when the turn finishes, successfully or not.
func (t *TurnStream) Chunks() <-chan string {
	return t.chunks
}

// Wait blocks until the turn completes and returns its outcome. Safe to call
// after draining Chunks.
func (t *TurnStream) Wait() (*TurnReply, error) {
	<-t.done
	return t.reply, t.err
}

// SendMessageStream runs SendMessage with streaming delivery and returns the
// stream immediately. The caller drains Chunks and then calls Wait.
func (s *Session) SendMessageStream(ctx context.Context, text string, opts ...TurnOption) *TurnStream {
	return s.streamTurn(func(chunkOpts []TurnOption) (*TurnReply, error) {
		return s.SendMessage(ctx, text, chunkOpts...)
	}, opts)
}

// ContinueConversationStream is the streaming variant of ContinueConversation.
func (s *Session) ContinueConversationStream(ctx context.Context, opts ...TurnOption) *TurnStream {
	return s.streamTurn(func(chunkOpts []TurnOption) (*TurnReply, error) {
		return s.ContinueConversation(ctx, chunkOpts...)
	}, opts)
}

func (s *Session) streamTurn(run func([]TurnOption) (*TurnReply, error), opts []TurnOption) *TurnStream {
	t := &TurnStream{
		chunks: make(chan string, 16),
		done:   make(chan struct{}),
	}
	withChunks := append(append([]TurnOption{}, opts...), WithChunkHandler(func(fragment string) {
		t.chunks <- fragment
	}))
	go func() {
		defer close(t.done)
		defer close(t.chunks)
		t.reply, t.err = run(withChunks)
	}()
	return t
}
