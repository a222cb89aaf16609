package confab

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/httputil"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"confab/message"
)

var constructors = map[string]func(modelName string, debugMode bool) (llms.Model, error){
	"openai": func(modelName string, debugMode bool) (llms.Model, error) {
		options := []openai.Option{openai.WithModel(modelName)}
		if debugMode {
			options = append(options, openai.WithHTTPClient(httputil.DebugHTTPClient))
		}
		return openai.New(options...)
	},
	"anthropic": func(modelName string, debugMode bool) (llms.Model, error) {
		options := []anthropic.Option{anthropic.WithModel(modelName)}
		if debugMode {
			options = append(options, anthropic.WithHTTPClient(httputil.DebugHTTPClient))
		}
		return anthropic.New(options...)
	},
	"ollama": func(modelName string, debugMode bool) (llms.Model, error) {
		options := []ollama.Option{ollama.WithModel(modelName)}
		if debugMode {
			options = append(options, ollama.WithHTTPClient(httputil.DebugHTTPClient))
		}
		return ollama.New(options...)
	},
	"dummy": func(modelName string, debugMode bool) (llms.Model, error) {
		return NewDummyBackend()
	},
}

func initializeModel(backend, modelName string, debugMode bool) (llms.Model, error) {
	constructor, ok := constructors[backend]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
	return constructor(modelName, debugMode)
}

// modelClient adapts a langchaingo model to the Client interface, running
// the per-turn tool-use loop and minting ids for every produced message.
type modelClient struct {
	model       llms.Model
	maxTokens   int
	temperature float64
}

// NewModelClient wraps the configured backend model as a Client.
func NewModelClient(cfg *Config) (Client, error) {
	model, err := initializeModel(cfg.Backend, cfg.Model, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model: %w", err)
	}
	return &modelClient{
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func (c *modelClient) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, c.model, prompt, llms.WithMaxTokens(maxTokens))
}

func (c *modelClient) Stream(ctx context.Context, history []message.Message, tools []Tool, maxSteps int) (*Stream, error) {
	stream := newStream()
	go func() {
		result, err := c.runTurn(ctx, stream, history, tools, maxSteps)
		stream.finish(result, err)
	}()
	return stream, nil
}

func (c *modelClient) runTurn(ctx context.Context, stream *Stream, history []message.Message, tools []Tool, maxSteps int) (*TurnResult, error) {
	msgs := toModelMessages(history)
	byName := make(map[string]Tool, len(tools))
	var defs []llms.Tool
	for _, t := range tools {
		defs = append(defs, t.Def)
		byName[t.Def.Function.Name] = t
	}

	opts := []llms.CallOption{
		llms.WithMaxTokens(c.maxTokens),
		llms.WithTemperature(c.temperature),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			select {
			case stream.events <- string(chunk):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}),
	}
	if len(defs) > 0 {
		opts = append(opts, llms.WithTools(defs))
	}

	result := &TurnResult{}
	for result.Steps < maxSteps {
		resp, err := c.model.GenerateContent(ctx, msgs, opts...)
		if err != nil {
			return result, fmt.Errorf("failed to generate content: %w", err)
		}
		result.Steps++
		if len(resp.Choices) == 0 {
			return result, fmt.Errorf("model returned no choices")
		}
		choice := resp.Choices[0]

		assistant := message.Message{Role: message.RoleAssistant, ID: uuid.NewString()}
		if choice.Content != "" {
			assistant.Parts = append(assistant.Parts, message.Part{Type: message.PartText, Text: choice.Content})
		}
		for _, tc := range choice.ToolCalls {
			if tc.FunctionCall == nil {
				continue
			}
			assistant.Parts = append(assistant.Parts, message.Part{
				Type: message.PartToolCall,
				ToolCall: &message.ToolCall{
					ID:    tc.ID,
					Name:  tc.FunctionCall.Name,
					Input: tc.FunctionCall.Arguments,
				},
			})
		}
		result.Messages = append(result.Messages, assistant)
		msgs = append(msgs, toModelMessage(assistant))

		if len(choice.ToolCalls) == 0 {
			return result, nil
		}
		for _, tc := range choice.ToolCalls {
			if tc.FunctionCall == nil {
				continue
			}
			toolMsg := c.runTool(ctx, byName, tc)
			result.Messages = append(result.Messages, toolMsg)
			msgs = append(msgs, toModelMessage(toolMsg))
		}
	}
	return result, nil
}

func (c *modelClient) runTool(ctx context.Context, byName map[string]Tool, call llms.ToolCall) message.Message {
	res := message.ToolResult{ToolCallID: call.ID}
	tool, ok := byName[call.FunctionCall.Name]
	if !ok {
		res.Content = fmt.Sprintf("unknown tool %q", call.FunctionCall.Name)
		res.IsError = true
	} else if out, err := tool.Run(ctx, call.FunctionCall.Arguments); err != nil {
		res.Content = err.Error()
		res.IsError = true
	} else {
		res.Content = out
	}
	return message.Tool(uuid.NewString(), res)
}

var roleToModel = map[message.Role]llms.ChatMessageType{
	message.RoleSystem:    llms.ChatMessageTypeSystem,
	message.RoleUser:      llms.ChatMessageTypeHuman,
	message.RoleAssistant: llms.ChatMessageTypeAI,
	message.RoleTool:      llms.ChatMessageTypeTool,
}

func toModelMessages(history []message.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(history))
	for _, m := range history {
		out = append(out, toModelMessage(m))
	}
	return out
}

func toModelMessage(m message.Message) llms.MessageContent {
	mc := llms.MessageContent{Role: roleToModel[m.Role]}
	for _, p := range m.Parts {
		switch p.Type {
		case message.PartText:
			mc.Parts = append(mc.Parts, llms.TextContent{Text: p.Text})
		case message.PartToolCall:
			mc.Parts = append(mc.Parts, llms.ToolCall{
				ID:   p.ToolCall.ID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      p.ToolCall.Name,
					Arguments: p.ToolCall.Input,
				},
			})
		case message.PartToolResult:
			mc.Parts = append(mc.Parts, llms.ToolCallResponse{
				ToolCallID: p.ToolResult.ToolCallID,
				Content:    p.ToolResult.Content,
			})
		}
	}
	return mc
}

// FormatToolInput pretty-prints a tool-call argument payload for transcript
// display.
func FormatToolInput(input string) string {
	var v any
	if err := json.Unmarshal([]byte(input), &v); err != nil {
		return input
	}
	b, err := json.Marshal(v)
	if err != nil {
		return input
	}
	return string(b)
}
