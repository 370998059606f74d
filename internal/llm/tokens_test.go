package llm

import "testing"

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"hi", 1},
		{"test", 1},
		{"hello", 2},
		{"The quick brown fox jumps over the lazy dog.", 11},
		{"北京天气", 4},
		{"北京 weather", 4}, // 2 + ceil(8/4)
		{"你是什么模型？", 7},  // fullwidth question mark counts as narrow
		{"こんにちは", 5},
		{"안녕", 2},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.in); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEstimateTokens_CJKNotUndercounted(t *testing.T) {
	// Twelve bytes of Chinese would pass for three tokens by byte length.
	if got := EstimateTokens("北京天气"); got < 4 {
		t.Errorf("EstimateTokens(北京天气) = %d, want at least one token per character", got)
	}
}

func TestMessageTokens(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want int
	}{
		{"user", UserMessage("hello"), 4 + 2},
		{"empty assistant", Message{Role: RoleAssistant}, 4},
		{"chinese user", UserMessage("北京天气怎么样"), 4 + 7},
		{
			"tool call",
			Message{Role: RoleAssistant, ToolCalls: []ToolCall{
				{ID: "call_1", Name: "getCurrentWeather", Params: map[string]any{"location": "Beijing"}},
			}},
			// name 17 runes, {"location":"Beijing"} 22 runes
			4 + 4 + 5 + 6,
		},
		{
			"undecodable arguments",
			Message{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call_1", Name: "x", RawArguments: "{bad"}}},
			4 + 4 + 1 + 1,
		},
		{"tool result", ToolResultMessage("call_1", `{"temperature":"10"}`), 4 + 5 + 2 + 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := messageTokens(tt.msg); got != tt.want {
				t.Errorf("messageTokens() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEstimateRequestTokens(t *testing.T) {
	msgs := []Message{UserMessage("hello"), {Role: RoleAssistant, Content: "hi there"}}
	if got := EstimateRequestTokens(msgs, nil); got != 12 {
		t.Errorf("EstimateRequestTokens(no tools) = %d, want 12", got)
	}

	weather := Tool{
		Name:        "getCurrentWeather",
		Description: "Get the current weather in a given location",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
	}
	if got := toolTokens(weather); got <= toolDefOverhead {
		t.Errorf("toolTokens() = %d, want more than the bare overhead", got)
	}
	if got, want := EstimateRequestTokens(msgs, []Tool{weather}), 12+toolTokens(weather); got != want {
		t.Errorf("EstimateRequestTokens(with tools) = %d, want %d", got, want)
	}
	if EstimateRequestTokens(nil, nil) != 0 {
		t.Error("empty request should estimate to zero")
	}
}
