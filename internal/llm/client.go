package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

type Message struct {
	Role       string     `json:"role"` // user, assistant, tool, system
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // for tool result messages
	IsError    bool       `json:"is_error,omitempty"`     // tool result reports a failure
}

type ToolCall struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
	// RawArguments holds the provider's argument string when it could not be
	// decoded into Params.
	RawArguments string `json:"raw_arguments,omitempty"`
}

type Response struct {
	Content   string
	ToolCalls []ToolCall
}

type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Client is a model endpoint. A nil or empty tools slice means no tools are
// declared on the request.
type Client interface {
	Chat(ctx context.Context, messages []Message, tools []Tool) (*Response, error)
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func ToolResultMessage(toolCallID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

// ToolErrorMessage is a tool result whose content describes a failed call.
func ToolErrorMessage(toolCallID, content string) Message {
	m := ToolResultMessage(toolCallID, content)
	m.IsError = true
	return m
}

// AssistantMessage converts a response into the assistant message that
// carries it in a conversation, tool calls included.
func AssistantMessage(resp *Response) Message {
	return Message{Role: RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls}
}
