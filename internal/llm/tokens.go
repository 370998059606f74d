package llm

import (
	"encoding/json"
	"unicode"
)

// Token estimates only size requests for debug logs. Nothing is rejected on
// them.
const (
	narrowPerToken     = 4 // Latin text and JSON punctuation
	messageOverhead    = 4
	toolCallOverhead   = 4
	toolResultOverhead = 2
	toolDefOverhead    = 10
)

// wide scripts are tokenized at roughly one rune per token.
var wide = []*unicode.RangeTable{unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul}

// EstimateTokens counts one token per CJK rune plus one per four other runes,
// rounded up.
func EstimateTokens(s string) int {
	var cjk, narrow int
	for _, r := range s {
		if unicode.IsOneOf(wide, r) {
			cjk++
		} else {
			narrow++
		}
	}
	return cjk + (narrow+narrowPerToken-1)/narrowPerToken
}

func messageTokens(m Message) int {
	n := messageOverhead + EstimateTokens(m.Content)
	for _, tc := range m.ToolCalls {
		n += toolCallOverhead + EstimateTokens(tc.Name) + EstimateTokens(tc.Arguments())
	}
	if m.ToolCallID != "" {
		n += toolResultOverhead + EstimateTokens(m.ToolCallID)
	}
	return n
}

// toolTokens sizes one declaration as sent: name, description and the JSON
// schema.
func toolTokens(t Tool) int {
	n := toolDefOverhead + EstimateTokens(t.Name) + EstimateTokens(t.Description)
	if schema, err := json.Marshal(t.Parameters); err == nil {
		n += EstimateTokens(string(schema))
	}
	return n
}

// EstimateRequestTokens sizes one endpoint request.
func EstimateRequestTokens(messages []Message, tools []Tool) int {
	total := 0
	for _, m := range messages {
		total += messageTokens(m)
	}
	for _, t := range tools {
		total += toolTokens(t)
	}
	return total
}
