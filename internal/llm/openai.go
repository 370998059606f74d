package llm

import (
	"context"
	"encoding/json"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/chris/toolcall/internal/telemetry"
)

// OpenAIClient talks to any endpoint that speaks the Chat Completions
// dialect. Qwen, DeepSeek, Doubao, OpenRouter and Ollama all do.
type OpenAIClient struct {
	client      openai.Client
	provider    string
	model       string
	temperature *float64
}

type OpenAIOptions struct {
	Provider    string // used in error messages only
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float64
	MaxRetries  *int
}

func NewOpenAIClient(o OpenAIOptions) *OpenAIClient {
	opts := []option.RequestOption{option.WithHTTPClient(telemetry.HTTPClient(nil, 0))}
	if o.APIKey != "" {
		opts = append(opts, option.WithAPIKey(o.APIKey))
	}
	if o.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(o.BaseURL))
	}
	if o.MaxRetries != nil {
		opts = append(opts, option.WithMaxRetries(*o.MaxRetries))
	}
	client := openai.NewClient(opts...)
	model := o.Model
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}
	provider := o.Provider
	if provider == "" {
		provider = "openai"
	}
	return &OpenAIClient{client: client, provider: provider, model: model, temperature: o.Temperature}
}

func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, tools []Tool) (*Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: toOpenAIMessages(messages),
	}
	if len(tools) > 0 {
		params.Tools = toOpenAITools(tools)
	}
	if c.temperature != nil {
		params.Temperature = openai.Float(*c.temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, endpointError(c.provider, err)
	}

	if len(resp.Choices) == 0 {
		return &Response{}, nil
	}

	choice := resp.Choices[0]
	result := &Response{
		Content: choice.Message.Content,
	}

	for _, tc := range choice.Message.ToolCalls {
		ftc := tc.AsFunction()
		call := ToolCall{ID: ftc.ID, Name: ftc.Function.Name}
		args := map[string]any{}
		if err := json.Unmarshal([]byte(ftc.Function.Arguments), &args); err != nil {
			call.RawArguments = ftc.Function.Arguments
		} else {
			call.Params = args
		}
		result.ToolCalls = append(result.ToolCalls, call)
	}

	return result, nil
}

func toOpenAITools(tools []Tool) []openai.ChatCompletionToolUnionParam {
	oaiTools := make([]openai.ChatCompletionToolUnionParam, len(tools))
	for i, t := range tools {
		oaiTools[i] = openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  openai.FunctionParameters(t.Parameters),
		})
	}
	return oaiTools
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	oaiMsgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			oaiMsgs = append(oaiMsgs, openai.SystemMessage(m.Content))
		case RoleUser:
			oaiMsgs = append(oaiMsgs, openai.UserMessage(m.Content))
		case RoleTool:
			oaiMsgs = append(oaiMsgs, openai.ToolMessage(m.Content, m.ToolCallID))
		case RoleAssistant:
			if len(m.ToolCalls) == 0 {
				oaiMsgs = append(oaiMsgs, openai.AssistantMessage(m.Content))
				continue
			}
			toolCalls := make([]openai.ChatCompletionMessageToolCallUnionParam, len(m.ToolCalls))
			for j, tc := range m.ToolCalls {
				toolCalls[j] = openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: tc.Arguments(),
						},
					},
				}
			}
			assistant := &openai.ChatCompletionAssistantMessageParam{ToolCalls: toolCalls}
			if m.Content != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: param.NewOpt(m.Content),
				}
			}
			oaiMsgs = append(oaiMsgs, openai.ChatCompletionMessageParamUnion{OfAssistant: assistant})
		}
	}
	return oaiMsgs
}

// Arguments returns the call's argument JSON, falling back to the model's raw
// text when it never decoded.
func (tc ToolCall) Arguments() string {
	if tc.Params == nil && tc.RawArguments != "" {
		return tc.RawArguments
	}
	if tc.Params == nil {
		return "{}"
	}
	b, _ := json.Marshal(tc.Params) // map[string]any decoded from JSON always re-encodes
	return string(b)
}
