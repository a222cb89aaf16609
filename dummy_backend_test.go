package confab

import (
	"context"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"
)

func TestDummyBackendStreaming(t *testing.T) {
	d, err := NewDummyBackend()
	if err != nil {
		t.Fatalf("NewDummyBackend: %v", err)
	}

	var chunks []string
	resp, err := d.GenerateContent(context.Background(),
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, "hi")},
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			chunks = append(chunks, string(chunk))
			return nil
		}))
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}

	streamed := strings.Join(chunks, "")
	if streamed != resp.Choices[0].Content {
		t.Errorf("streamed %q, response %q", streamed, resp.Choices[0].Content)
	}
	if len(chunks) < 2 {
		t.Errorf("expected multiple chunks, got %d", len(chunks))
	}
}

func TestDummyBackendCustomText(t *testing.T) {
	d, _ := NewDummyBackend()
	d.GenerateText = func(prompt string) string { return "you said: " + prompt }

	out, err := d.Call(context.Background(), "ping")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out != "you said: ping" {
		t.Errorf("Call = %q", out)
	}
}
