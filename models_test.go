package confab

import (
	"context"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"confab/message"
)

// scriptedModel returns canned responses per GenerateContent call.
type scriptedModel struct {
	responses []*llms.ContentResponse
	calls     int
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	resp := m.responses[m.calls%len(m.responses)]
	m.calls++
	return resp, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, nil, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func toolCallResponse(name, args string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{{
			ID:           "call-1",
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: name, Arguments: args},
		}},
	}}}
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}
}

func echoTool() Tool {
	return Tool{
		Def: llms.Tool{
			Type:     "function",
			Function: &llms.FunctionDefinition{Name: "echo", Description: "echoes input"},
		},
		Run: func(ctx context.Context, input string) (string, error) {
			return "echo: " + input, nil
		},
	}
}

func drain(t *testing.T, stream *Stream) (*TurnResult, error) {
	t.Helper()
	for range stream.Events() {
	}
	return stream.Result()
}

func TestModelClientToolLoop(t *testing.T) {
	model := &scriptedModel{responses: []*llms.ContentResponse{
		toolCallResponse("echo", `{"x":1}`),
		textResponse("done"),
	}}
	client := &modelClient{model: model, maxTokens: 100}

	stream, err := client.Stream(context.Background(), []message.Message{message.User("go")}, []Tool{echoTool()}, 5)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	result, err := drain(t, stream)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}

	if result.Steps != 2 {
		t.Errorf("Steps = %d, want 2", result.Steps)
	}
	if len(result.Messages) != 3 {
		t.Fatalf("produced %d messages, want 3", len(result.Messages))
	}
	wantRoles := []message.Role{message.RoleAssistant, message.RoleTool, message.RoleAssistant}
	for i, m := range result.Messages {
		if m.Role != wantRoles[i] {
			t.Errorf("message %d role = %q, want %q", i, m.Role, wantRoles[i])
		}
		if m.ID == "" {
			t.Errorf("message %d has no id", i)
		}
	}
	if got := result.Messages[1].Parts[0].ToolResult.Content; got != `echo: {"x":1}` {
		t.Errorf("tool result = %q", got)
	}
	if result.Messages[2].Text() != "done" {
		t.Errorf("final text = %q, want done", result.Messages[2].Text())
	}
}

func TestModelClientStepBudget(t *testing.T) {
	// A model that never stops asking for tools runs out of steps.
	model := &scriptedModel{responses: []*llms.ContentResponse{
		toolCallResponse("echo", `{}`),
	}}
	client := &modelClient{model: model, maxTokens: 100}

	stream, err := client.Stream(context.Background(), nil, []Tool{echoTool()}, 3)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	result, err := drain(t, stream)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if result.Steps != 3 {
		t.Errorf("Steps = %d, want the budget of 3", result.Steps)
	}
}

func TestModelClientUnknownTool(t *testing.T) {
	model := &scriptedModel{responses: []*llms.ContentResponse{
		toolCallResponse("missing", `{}`),
		textResponse("ok"),
	}}
	client := &modelClient{model: model, maxTokens: 100}

	stream, err := client.Stream(context.Background(), nil, nil, 5)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	result, err := drain(t, stream)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	res := result.Messages[1].Parts[0].ToolResult
	if !res.IsError {
		t.Error("unknown tool did not produce an error result")
	}
}

func TestRoleConversion(t *testing.T) {
	history := []message.Message{
		message.System("sys"),
		message.User("hi"),
		message.Assistant("a1", "hello"),
		message.Tool("t1", message.ToolResult{ToolCallID: "c1", Content: "out"}),
	}
	mcs := toModelMessages(history)
	wantRoles := []llms.ChatMessageType{
		llms.ChatMessageTypeSystem,
		llms.ChatMessageTypeHuman,
		llms.ChatMessageTypeAI,
		llms.ChatMessageTypeTool,
	}
	for i, mc := range mcs {
		if mc.Role != wantRoles[i] {
			t.Errorf("message %d role = %q, want %q", i, mc.Role, wantRoles[i])
		}
	}
}
