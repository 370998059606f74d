package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/chris/toolcall/internal/llm"
)

const (
	DefaultProvider           = "qwen"
	DefaultToolTimeout        = 30 * time.Second
	DefaultPromptHubBaseURL   = "https://app.prompthub.us/api/v1"
	DefaultPromptLayerBaseURL = "https://api.promptlayer.com"
)

//go:embed providers.yaml
var providersYAML []byte

var ErrUnknownProvider = errors.New("unknown provider")

// Provider is one row of the embedded provider table.
type Provider struct {
	Name           string `yaml:"name"`
	Kind           string `yaml:"kind"`
	Model          string `yaml:"model"`
	APIKeyEnv      string `yaml:"api_key_env"`
	AuthTokenEnv   string `yaml:"auth_token_env"`
	BaseURLEnv     string `yaml:"base_url_env"`
	BaseURL        string `yaml:"base_url"`
	KeyOptional    bool   `yaml:"key_optional"`
	RequireBaseURL bool   `yaml:"require_base_url"`
}

type Config struct {
	Provider  string // MODEL_TYPE
	Model     string // LLM_MODEL, overrides the table model
	Providers []Provider

	PromptHubKey       string
	PromptHubBaseURL   string
	PromptLayerKey     string
	PromptLayerBaseURL string

	ToolTimeout  time.Duration
	LogLevel     string
	OTLPEndpoint string // traces are exported only when set
	MetricsFile  string
}

func Load() (*Config, error) {
	_ = godotenv.Load() // ignore error if no .env

	providers, err := ParseProviders(providersYAML)
	if err != nil {
		return nil, err
	}

	timeout := DefaultToolTimeout
	if v := os.Getenv("TOOL_TIMEOUT"); v != "" {
		timeout, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("TOOL_TIMEOUT: %w", err)
		}
	}

	return &Config{
		Provider:           envOr("MODEL_TYPE", DefaultProvider),
		Model:              os.Getenv("LLM_MODEL"),
		Providers:          providers,
		PromptHubKey:       os.Getenv("PROMPTHUB_API_KEY"),
		PromptHubBaseURL:   envOr("PROMPTHUB_BASE_URL", DefaultPromptHubBaseURL),
		PromptLayerKey:     os.Getenv("PROMPTLAYER_API_KEY"),
		PromptLayerBaseURL: envOr("PROMPTLAYER_BASE_URL", DefaultPromptLayerBaseURL),
		ToolTimeout:        timeout,
		LogLevel:           envOr("LOG_LEVEL", "info"),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"),
		MetricsFile:        os.Getenv("TOOLCALL_METRICS_FILE"),
	}, nil
}

// ParseProviders decodes a provider table. Names must be unique and every
// entry needs a model.
func ParseProviders(data []byte) ([]Provider, error) {
	var doc struct {
		Providers []Provider `yaml:"providers"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse provider table: %w", err)
	}
	seen := make(map[string]bool, len(doc.Providers))
	for i := range doc.Providers {
		p := &doc.Providers[i]
		if p.Name == "" {
			return nil, fmt.Errorf("provider table entry %d has no name", i)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("provider %q listed twice", p.Name)
		}
		seen[p.Name] = true
		if p.Model == "" {
			return nil, fmt.Errorf("provider %q has no model", p.Name)
		}
		if p.Kind == "" {
			p.Kind = llm.KindOpenAI
		}
	}
	sort.Slice(doc.Providers, func(i, j int) bool { return doc.Providers[i].Name < doc.Providers[j].Name })
	return doc.Providers, nil
}

// Lookup finds a provider by name, ignoring case and surrounding space.
func (c *Config) Lookup(name string) (Provider, bool) {
	name = strings.TrimSpace(name)
	for _, p := range c.Providers {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Provider{}, false
}

// Endpoint resolves the selected provider into client settings. An empty
// provider or model falls back to MODEL_TYPE and LLM_MODEL, then to the
// table. Missing credentials are reported here, before any request is made.
func (c *Config) Endpoint(provider, model string) (llm.ProviderConfig, error) {
	if provider == "" {
		provider = c.Provider
	}
	p, ok := c.Lookup(provider)
	if !ok {
		return llm.ProviderConfig{}, fmt.Errorf("%w %q", ErrUnknownProvider, provider)
	}

	if model == "" {
		model = c.Model
	}
	if model == "" {
		model = p.Model
	}

	var key, token string
	if p.APIKeyEnv != "" {
		key = os.Getenv(p.APIKeyEnv)
	}
	if p.AuthTokenEnv != "" {
		token = os.Getenv(p.AuthTokenEnv)
	}
	if key == "" && token == "" && !p.KeyOptional {
		return llm.ProviderConfig{}, fmt.Errorf("%s: %s is not set", p.Name, p.APIKeyEnv)
	}

	baseURL := p.BaseURL
	if p.BaseURLEnv != "" {
		baseURL = envOr(p.BaseURLEnv, baseURL)
	}
	if baseURL == "" && p.RequireBaseURL {
		return llm.ProviderConfig{}, fmt.Errorf("%s: %s is not set", p.Name, p.BaseURLEnv)
	}

	return llm.ProviderConfig{
		Provider:  p.Name,
		Kind:      p.Kind,
		APIKey:    key,
		AuthToken: token,
		Model:     model,
		BaseURL:   baseURL,
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
