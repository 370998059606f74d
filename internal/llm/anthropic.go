package llm

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/chris/toolcall/internal/telemetry"
)

const defaultAnthropicModel = "claude-sonnet-4-20250514"

type AnthropicClient struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature *float64

	mu       sync.Mutex
	declared map[string]Tool // last schema seen per tool name
}

type AnthropicOptions struct {
	APIKey      string
	AuthToken   string // OAuth token (Authorization: Bearer header)
	BaseURL     string
	Model       string
	Temperature *float64
	MaxRetries  *int
}

func NewAnthropicClient(o AnthropicOptions) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithHeader("User-Agent", "toolcall/1.0"),
		option.WithHTTPClient(telemetry.HTTPClient(nil, 0)),
	}
	if o.AuthToken != "" {
		opts = append(opts, option.WithAuthToken(o.AuthToken))
		opts = append(opts, option.WithHeader("anthropic-beta", "oauth-2025-04-20"))
	} else if o.APIKey != "" {
		opts = append(opts, option.WithAPIKey(o.APIKey))
	}
	if o.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(o.BaseURL))
	}
	if o.MaxRetries != nil {
		opts = append(opts, option.WithMaxRetries(*o.MaxRetries))
	}
	model := o.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicClient{
		client:      anthropic.NewClient(opts...),
		model:       model,
		maxTokens:   4096,
		temperature: o.Temperature,
		declared:    make(map[string]Tool),
	}
}

func (c *AnthropicClient) Chat(ctx context.Context, messages []Message, tools []Tool) (*Response, error) {
	system, msgs := toAnthropicMessages(messages)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  msgs,
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(tools) > 0 {
		c.remember(tools)
		params.Tools = toAnthropicTools(tools)
	} else if replay := c.replayTools(messages); len(replay) > 0 {
		// The Messages API requires tools to be defined whenever the history
		// holds tool_use or tool_result blocks. Re-declare the ones used and
		// forbid further calls.
		params.Tools = toAnthropicTools(replay)
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
	}
	if c.temperature != nil {
		params.Temperature = anthropic.Float(*c.temperature)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, endpointError("anthropic", err)
	}

	result := &Response{}
	for _, block := range resp.Content {
		switch block := block.AsAny().(type) {
		case anthropic.TextBlock:
			result.Content += block.Text
		case anthropic.ToolUseBlock:
			call := ToolCall{ID: block.ID, Name: block.Name}
			args := map[string]any{}
			if err := json.Unmarshal(block.Input, &args); err != nil {
				call.RawArguments = string(block.Input)
			} else {
				call.Params = args
			}
			result.ToolCalls = append(result.ToolCalls, call)
		}
	}
	return result, nil
}

func (c *AnthropicClient) remember(tools []Tool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tools {
		c.declared[t.Name] = t
	}
}

// replayTools lists the tools called anywhere in messages, with their last
// known schema. Tools never declared through this client get an open object
// schema.
func (c *AnthropicClient) replayTools(messages []Message) []Tool {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Tool
	seen := map[string]bool{}
	for _, m := range messages {
		for _, tc := range m.ToolCalls {
			if seen[tc.Name] {
				continue
			}
			seen[tc.Name] = true
			t, ok := c.declared[tc.Name]
			if !ok {
				t = Tool{Name: tc.Name, Parameters: map[string]any{"type": "object"}}
			}
			out = append(out, t)
		}
	}
	return out
}

func toAnthropicTools(tools []Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		schema := anthropic.ToolInputSchemaParam{}
		if props, ok := t.Parameters["properties"]; ok {
			schema.Properties = props
		}
		schema.Required = requiredFields(t.Parameters["required"])
		tool := &anthropic.ToolParam{Name: t.Name, InputSchema: schema}
		if t.Description != "" {
			tool.Description = anthropic.String(t.Description)
		}
		out[i] = anthropic.ToolUnionParam{OfTool: tool}
	}
	return out
}

// requiredFields accepts both hand-built ([]string) and decoded ([]any) schemas.
func requiredFields(v any) []string {
	switch req := v.(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// toAnthropicMessages splits out system messages and folds consecutive tool
// results into a single user turn, which is how the Messages API expects them.
func toAnthropicMessages(messages []Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	var out []anthropic.MessageParam
	var pending []anthropic.ContentBlockParamUnion

	flush := func() {
		if len(pending) > 0 {
			out = append(out, anthropic.NewUserMessage(pending...))
			pending = nil
		}
	}

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case RoleTool:
			result := &anthropic.ToolResultBlockParam{
				ToolUseID: m.ToolCallID,
				Content: []anthropic.ToolResultBlockParamContentUnion{
					{OfText: &anthropic.TextBlockParam{Text: m.Content}},
				},
			}
			if m.IsError {
				result.IsError = anthropic.Bool(true)
			}
			pending = append(pending, anthropic.ContentBlockParamUnion{OfToolResult: result})
		case RoleUser:
			flush()
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleAssistant:
			flush()
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				input := tc.Params
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: input,
					},
				})
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		}
	}
	flush()
	return system, out
}
