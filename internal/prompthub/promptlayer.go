package prompthub

import (
	"context"
	"net/http"
	"net/url"
)

const DefaultPromptLayerBaseURL = "https://api.promptlayer.com"

type PromptLayer struct {
	r *requester
}

func NewPromptLayer(apiKey string, opts ...Option) *PromptLayer {
	auth := func(req *http.Request, key string) { req.Header.Set("X-API-KEY", key) }
	return &PromptLayer{r: newRequester("promptlayer", apiKey, DefaultPromptLayerBaseURL, auth, opts)}
}

// Template fetches a prompt template rendered with vars.
func (p *PromptLayer) Template(ctx context.Context, name string, vars map[string]string) (*Document, error) {
	if vars == nil {
		vars = map[string]string{}
	}
	body := map[string]any{"input_variables": vars}
	return p.r.do(ctx, http.MethodPost, "/prompt-templates/"+url.PathEscape(name), nil, body)
}
