// Package message defines the conversation message model shared by the chat
// service and the on-disk conversation files.
package message

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

func (r Role) valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// PartType tags the variants of Part.
type PartType string

const (
	PartText       PartType = "text"
	PartToolCall   PartType = "tool_call"
	PartToolResult PartType = "tool_result"
)

// ToolCall is an assistant request to invoke a named tool.
type ToolCall struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Input string `json:"input"`
}

// ToolResult carries the output of a tool invocation back to the model.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// Part is one element of a message's content. Exactly one of the variant
// fields is set, selected by Type.
type Part struct {
	Type       PartType    `json:"type"`
	Text       string      `json:"text,omitempty"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// Message is a single entry in a conversation history. Messages are append
// only: once added to a history nothing but the CacheHint marker changes.
type Message struct {
	Role      Role   `json:"role"`
	Parts     []Part `json:"content"`
	ID        string `json:"id,omitempty"`
	CacheHint bool   `json:"cacheHint,omitempty"`
}

// System returns a system message.
func System(text string) Message {
	return Message{Role: RoleSystem, Parts: []Part{{Type: PartText, Text: text}}}
}

// User returns a user message.
func User(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{{Type: PartText, Text: text}}}
}

// Assistant returns an assistant text message with the given id.
func Assistant(id, text string) Message {
	return Message{Role: RoleAssistant, ID: id, Parts: []Part{{Type: PartText, Text: text}}}
}

// Tool returns a tool message carrying one tool result, with the given id.
func Tool(id string, result ToolResult) Message {
	return Message{Role: RoleTool, ID: id, Parts: []Part{{Type: PartToolResult, ToolResult: &result}}}
}

// Text returns the concatenated text parts of the message.
func (m Message) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Type == PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// rawMessage mirrors Message but defers content decoding so that both the
// bare-string and part-array encodings are accepted.
type rawMessage struct {
	Role      Role            `json:"role"`
	Content   json.RawMessage `json:"content"`
	ID        string          `json:"id,omitempty"`
	CacheHint bool            `json:"cacheHint,omitempty"`
}

// UnmarshalJSON accepts content as either a plain string or an ordered list
// of typed parts, and validates the role and part shapes.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw rawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !raw.Role.valid() {
		return fmt.Errorf("invalid message role %q", raw.Role)
	}
	m.Role = raw.Role
	m.ID = raw.ID
	m.CacheHint = raw.CacheHint
	m.Parts = nil

	if len(raw.Content) == 0 || string(raw.Content) == "null" {
		return fmt.Errorf("%s message has no content", raw.Role)
	}
	if raw.Content[0] == '"' {
		var text string
		if err := json.Unmarshal(raw.Content, &text); err != nil {
			return err
		}
		m.Parts = []Part{{Type: PartText, Text: text}}
		return nil
	}
	var parts []Part
	if err := json.Unmarshal(raw.Content, &parts); err != nil {
		return fmt.Errorf("invalid content for %s message: %w", raw.Role, err)
	}
	for i, p := range parts {
		if err := p.validate(); err != nil {
			return fmt.Errorf("part %d of %s message: %w", i, raw.Role, err)
		}
	}
	m.Parts = parts
	return nil
}

func (p Part) validate() error {
	switch p.Type {
	case PartText:
		return nil
	case PartToolCall:
		if p.ToolCall == nil || p.ToolCall.Name == "" {
			return fmt.Errorf("tool_call part missing call")
		}
	case PartToolResult:
		if p.ToolResult == nil || p.ToolResult.ToolCallID == "" {
			return fmt.Errorf("tool_result part missing result")
		}
	default:
		return fmt.Errorf("unknown part type %q", p.Type)
	}
	return nil
}

// Decode parses a full conversation file payload.
func Decode(data []byte) ([]Message, error) {
	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Encode renders a conversation history for persistence.
func Encode(msgs []Message) ([]byte, error) {
	return json.MarshalIndent(msgs, "", "  ")
}
