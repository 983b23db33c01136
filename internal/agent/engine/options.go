package engine

// ChunkFunc receives each incremental text fragment of a streamed assistant
// reply, in order, on the turn's goroutine.
type ChunkFunc func(fragment string)

type turnOptions struct {
	extraContext string
	onChunk      ChunkFunc
}

// TurnOption customizes a single SendMessage/ContinueConversation call.
type TurnOption func(*turnOptions)

// WithExtraContext attaches out-of-band context (e.g. the user's saved
// addresses) to the user message without changing the visible text.
func WithExtraContext(extra string) TurnOption {
	return func(o *turnOptions) { o.extraContext = extra }
}

// WithChunkHandler switches the turn to streaming delivery and invokes fn
// for every text fragment as it arrives.
func WithChunkHandler(fn ChunkFunc) TurnOption {
	return func(o *turnOptions) { o.onChunk = fn }
}

func applyTurnOptions(opts []TurnOption) turnOptions {
	var o turnOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
