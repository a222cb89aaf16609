package confab

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// DummyBackend is an offline llms.Model that streams canned text. It exists
// so the chat loop can be exercised without network access or API keys.
type DummyBackend struct {
	GenerateText func(prompt string) string
}

func NewDummyBackend() (*DummyBackend, error) {
	return &DummyBackend{
		GenerateText: func(string) string { return dummyDefaultText },
	}, nil
}

var dummyDefaultText = "This is a canned response from the dummy backend. " +
	"It streams out a short paragraph to simulate a real model. " +
	"The quick brown fox jumps over the lazy dog.\n"

func (d *DummyBackend) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	response, err := d.GenerateContent(ctx, messages, options...)
	if err != nil {
		return "", err
	}
	if len(response.Choices) > 0 {
		return response.Choices[0].Content, nil
	}
	return "", nil
}

func (d *DummyBackend) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var prompt string
	if len(messages) > 0 {
		last := messages[len(messages)-1]
		var parts []string
		for _, p := range last.Parts {
			if t, ok := p.(llms.TextContent); ok {
				parts = append(parts, t.Text)
			}
		}
		prompt = strings.Join(parts, "\n")
	}
	text := d.GenerateText(prompt)

	response := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text}},
	}

	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.StreamingFunc != nil {
		for _, chunk := range strings.SplitAfter(text, " ") {
			select {
			case <-ctx.Done():
				return response, ctx.Err()
			default:
			}
			if err := opts.StreamingFunc(ctx, []byte(chunk)); err != nil {
				return response, err
			}
		}
	}
	return response, nil
}
