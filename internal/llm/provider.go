package llm

import "fmt"

const (
	KindOpenAI    = "openai"
	KindAnthropic = "anthropic"
)

type ProviderConfig struct {
	Provider    string // table id, e.g. qwen, deepseek
	Kind        string // wire dialect: openai or anthropic
	APIKey      string
	AuthToken   string // OAuth token (Bearer auth), anthropic only
	Model       string
	BaseURL     string
	Temperature *float64
	MaxRetries  *int
}

func NewClient(cfg ProviderConfig) (Client, error) {
	switch cfg.Kind {
	case KindOpenAI, "":
		return NewOpenAIClient(OpenAIOptions{
			Provider:    cfg.Provider,
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxRetries:  cfg.MaxRetries,
		}), nil
	case KindAnthropic:
		return NewAnthropicClient(AnthropicOptions{
			APIKey:      cfg.APIKey,
			AuthToken:   cfg.AuthToken,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxRetries:  cfg.MaxRetries,
		}), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider kind %q for %s", cfg.Kind, cfg.Provider)
	}
}
