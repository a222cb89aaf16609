package confab

import (
	"context"

	"github.com/tmc/langchaingo/llms"

	"confab/message"
)

// Tool pairs a model-visible tool definition with its implementation. The
// chat service passes tools through to the model client unmodified and never
// inspects them.
type Tool struct {
	Def llms.Tool
	Run func(ctx context.Context, input string) (string, error)
}

// TurnResult is the final outcome of one streamed turn: the complete
// messages produced by the model (assistant and tool messages, each carrying
// an id) and the number of model steps consumed.
type TurnResult struct {
	Messages []message.Message
	Steps    int
}

// Stream delivers one turn's output: incremental text events first, then the
// final result. Events must be drained before calling Result. The channel is
// closed when the turn completes; consumption is strictly sequential, there
// are no overlapping turns.
type Stream struct {
	events chan string
	done   chan struct{}
	result *TurnResult
	err    error
}

func newStream() *Stream {
	return &Stream{events: make(chan string), done: make(chan struct{})}
}

// Events returns the incremental text channel.
func (s *Stream) Events() <-chan string { return s.events }

// Result blocks until the turn completes and returns its final messages.
func (s *Stream) Result() (*TurnResult, error) {
	<-s.done
	return s.result, s.err
}

func (s *Stream) finish(result *TurnResult, err error) {
	close(s.events)
	s.result = result
	s.err = err
	close(s.done)
}

// Client is the language-model boundary the chat service depends on.
type Client interface {
	// Generate runs a single prompt to completion, used for title
	// summarization.
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)

	// Stream runs one conversational turn against the full history,
	// executing tool calls as the model requests them, up to maxSteps model
	// invocations.
	Stream(ctx context.Context, history []message.Message, tools []Tool, maxSteps int) (*Stream, error)
}
