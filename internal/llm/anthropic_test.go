package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

const toolUseMessage = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-20250514",
  "stop_reason": "tool_use",
  "content": [
    {"type": "text", "text": "Let me check."},
    {"type": "tool_use", "id": "toolu_1", "name": "getCurrentWeather", "input": {"location": "Beijing"}}
  ],
  "usage": {"input_tokens": 10, "output_tokens": 5}
}`

func newTestAnthropic(t *testing.T, handler http.HandlerFunc) *AnthropicClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	retries := 0
	return NewAnthropicClient(AnthropicOptions{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		MaxRetries: &retries,
	})
}

func TestAnthropicChat_DecodesToolUse(t *testing.T) {
	var body struct {
		System   []map[string]any `json:"system"`
		Messages []struct {
			Role    string           `json:"role"`
			Content []map[string]any `json:"content"`
		} `json:"messages"`
		Tools []map[string]any `json:"tools"`
	}
	c := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Errorf("X-Api-Key = %q", got)
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, toolUseMessage)
	})

	msgs := []Message{
		SystemMessage("be brief"),
		UserMessage("What's the weather like in Beijing?"),
		{Role: RoleAssistant, ToolCalls: []ToolCall{
			{ID: "toolu_0", Name: "getCurrentWeather", Params: map[string]any{"location": "Shanghai"}},
			{ID: "toolu_9", Name: "getCurrentWeather", Params: map[string]any{"location": "Paris"}},
		}},
		ToolResultMessage("toolu_0", `{"location":"Shanghai"}`),
		ToolResultMessage("toolu_9", `{"location":"Paris"}`),
	}
	tools := []Tool{{
		Name:        "getCurrentWeather",
		Description: "weather",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"location": map[string]any{"type": "string"}},
			"required":   []any{"location"},
		},
	}}

	resp, err := c.Chat(context.Background(), msgs, tools)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "Let me check." {
		t.Errorf("content = %q", resp.Content)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].ID != "toolu_1" || resp.ToolCalls[0].Params["location"] != "Beijing" {
		t.Errorf("unexpected tool calls %+v", resp.ToolCalls)
	}

	if len(body.System) != 1 || body.System[0]["text"] != "be brief" {
		t.Errorf("system = %v", body.System)
	}
	// user, assistant, user(tool results folded)
	if len(body.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(body.Messages))
	}
	results := body.Messages[2].Content
	if body.Messages[2].Role != "user" || len(results) != 2 {
		t.Fatalf("expected both tool results in one user turn, got %+v", body.Messages[2])
	}
	if results[0]["type"] != "tool_result" || results[0]["tool_use_id"] != "toolu_0" {
		t.Errorf("unexpected first tool result %v", results[0])
	}
	if len(body.Tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(body.Tools))
	}
	schema, _ := body.Tools[0]["input_schema"].(map[string]any)
	if req, _ := schema["required"].([]any); len(req) != 1 || req[0] != "location" {
		t.Errorf("required = %v", schema["required"])
	}
}

const textMessage = `{
  "id": "msg_2",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-20250514",
  "stop_reason": "end_turn",
  "content": [{"type": "text", "text": "It is sunny in Beijing."}],
  "usage": {"input_tokens": 30, "output_tokens": 8}
}`

type anthropicRequest struct {
	Messages []struct {
		Role    string           `json:"role"`
		Content []map[string]any `json:"content"`
	} `json:"messages"`
	Tools      []map[string]any `json:"tools"`
	ToolChoice map[string]any   `json:"tool_choice"`
}

// recordingAnthropic answers with replies in order and keeps each request body.
func recordingAnthropic(t *testing.T, replies ...string) (*AnthropicClient, *[]anthropicRequest) {
	t.Helper()
	var reqs []anthropicRequest
	c := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		reqs = append(reqs, req)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, replies[(len(reqs)-1)%len(replies)])
	})
	return c, &reqs
}

var weatherTool = Tool{
	Name:        "getCurrentWeather",
	Description: "weather",
	Parameters: map[string]any{
		"type":       "object",
		"properties": map[string]any{"location": map[string]any{"type": "string"}},
		"required":   []any{"location"},
	},
}

func TestAnthropicChat_RoundTrip(t *testing.T) {
	c, reqs := recordingAnthropic(t, toolUseMessage, textMessage)
	ctx := context.Background()

	conv := NewConversation(UserMessage("What's the weather like in Beijing?"))
	first, err := c.Chat(ctx, conv.Messages(), []Tool{weatherTool})
	if err != nil {
		t.Fatalf("first Chat: %v", err)
	}
	conv.Append(AssistantMessage(first))
	conv.Append(ToolErrorMessage("toolu_1", `{"error":"getCurrentWeather failed: upstream unavailable"}`))

	second, err := c.Chat(ctx, conv.Messages(), nil)
	if err != nil {
		t.Fatalf("second Chat: %v", err)
	}
	if second.Content != "It is sunny in Beijing." || len(second.ToolCalls) != 0 {
		t.Errorf("unexpected final response %+v", second)
	}

	if len(*reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(*reqs))
	}
	if (*reqs)[0].ToolChoice != nil {
		t.Errorf("first request should leave tool_choice unset, got %v", (*reqs)[0].ToolChoice)
	}

	req := (*reqs)[1]
	if len(req.Tools) != 1 || req.Tools[0]["name"] != "getCurrentWeather" {
		t.Fatalf("tools used in the history must be declared again, got %v", req.Tools)
	}
	schema, _ := req.Tools[0]["input_schema"].(map[string]any)
	if required, _ := schema["required"].([]any); len(required) != 1 || required[0] != "location" {
		t.Errorf("re-declared schema lost its required fields: %v", schema)
	}
	if req.ToolChoice["type"] != "none" {
		t.Errorf("tool_choice = %v, want type none", req.ToolChoice)
	}

	if len(req.Messages) != 3 {
		t.Fatalf("expected user, assistant, user; got %d messages", len(req.Messages))
	}
	var sawToolUse bool
	for _, block := range req.Messages[1].Content {
		if block["type"] == "tool_use" && block["id"] == "toolu_1" {
			sawToolUse = true
		}
	}
	if !sawToolUse {
		t.Errorf("assistant turn lost its tool_use block: %v", req.Messages[1].Content)
	}
	result := req.Messages[2].Content
	if len(result) != 1 || result[0]["type"] != "tool_result" || result[0]["tool_use_id"] != "toolu_1" {
		t.Fatalf("unexpected tool result turn %v", result)
	}
	if result[0]["is_error"] != true {
		t.Errorf("failed tool result should carry is_error, got %v", result[0])
	}
}

func TestAnthropicChat_ReplayWithoutPriorDeclaration(t *testing.T) {
	c, reqs := recordingAnthropic(t, textMessage)

	msgs := []Message{
		UserMessage("weather?"),
		{Role: RoleAssistant, ToolCalls: []ToolCall{
			{ID: "toolu_1", Name: "getCurrentWeather", Params: map[string]any{"location": "Beijing"}},
			{ID: "toolu_2", Name: "getCurrentWeather", Params: map[string]any{"location": "Paris"}},
		}},
		ToolResultMessage("toolu_1", `{"location":"Beijing"}`),
		ToolResultMessage("toolu_2", `{"location":"Paris"}`),
	}
	if _, err := c.Chat(context.Background(), msgs, nil); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	req := (*reqs)[0]
	if len(req.Tools) != 1 || req.Tools[0]["name"] != "getCurrentWeather" {
		t.Fatalf("expected one re-declared tool, got %v", req.Tools)
	}
	schema, _ := req.Tools[0]["input_schema"].(map[string]any)
	if schema["type"] != "object" {
		t.Errorf("input_schema = %v", schema)
	}
	if req.ToolChoice["type"] != "none" {
		t.Errorf("tool_choice = %v, want type none", req.ToolChoice)
	}
	for _, block := range req.Messages[2].Content {
		if _, ok := block["is_error"]; ok {
			t.Errorf("successful results should omit is_error: %v", block)
		}
	}
}

func TestAnthropicChat_NoToolsWithoutToolHistory(t *testing.T) {
	c, reqs := recordingAnthropic(t, textMessage)
	if _, err := c.Chat(context.Background(), []Message{UserMessage("hi")}, nil); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if req := (*reqs)[0]; req.Tools != nil || req.ToolChoice != nil {
		t.Errorf("plain chat should send neither tools nor tool_choice: %+v", req)
	}
}

func TestAnthropicChat_EndpointError(t *testing.T) {
	c := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"type":"error","error":{"type":"permission_error","message":"nope"}}`)
	})

	_, err := c.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	var ee *EndpointError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *EndpointError, got %T: %v", err, err)
	}
	if ee.StatusCode != http.StatusForbidden || ee.Provider != "anthropic" {
		t.Errorf("unexpected error %+v", ee)
	}
}

func TestRequiredFields(t *testing.T) {
	if got := requiredFields([]string{"a"}); len(got) != 1 || got[0] != "a" {
		t.Errorf("[]string: got %v", got)
	}
	if got := requiredFields([]any{"a", 1, "b"}); len(got) != 2 || got[1] != "b" {
		t.Errorf("[]any: got %v", got)
	}
	if got := requiredFields(nil); got != nil {
		t.Errorf("nil: got %v", got)
	}
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(ProviderConfig{Provider: "qwen", Kind: KindOpenAI, APIKey: "k", BaseURL: "http://localhost"})
	if err != nil {
		t.Fatalf("NewClient(openai): %v", err)
	}
	if _, ok := c.(*OpenAIClient); !ok {
		t.Errorf("expected *OpenAIClient, got %T", c)
	}
	c, err = NewClient(ProviderConfig{Provider: "anthropic", Kind: KindAnthropic, APIKey: "k"})
	if err != nil {
		t.Fatalf("NewClient(anthropic): %v", err)
	}
	if _, ok := c.(*AnthropicClient); !ok {
		t.Errorf("expected *AnthropicClient, got %T", c)
	}
	if _, err := NewClient(ProviderConfig{Provider: "x", Kind: "grpc"}); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestConversation_MessagesIsACopy(t *testing.T) {
	c := NewConversation(UserMessage("hi"))
	msgs := c.Messages()
	msgs[0].Content = "changed"
	c.Append(ToolResultMessage("call_1", "{}"))
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	if c.Messages()[0].Content != "hi" {
		t.Error("conversation was mutated through Messages()")
	}
}
