package prompthub

import (
	"context"
	"net/http"
	"net/url"
)

const (
	DefaultPromptHubBaseURL = "https://app.prompthub.us/api/v1"
	DefaultBranch           = "master"
)

type PromptHub struct {
	r *requester
}

func NewPromptHub(apiKey string, opts ...Option) *PromptHub {
	return &PromptHub{r: newRequester("prompthub", apiKey, DefaultPromptHubBaseURL, bearer, opts)}
}

func bearer(req *http.Request, key string) {
	req.Header.Set("Authorization", "Bearer "+key)
}

// Head returns the latest committed prompt on branch. An empty branch means
// master.
func (p *PromptHub) Head(ctx context.Context, projectID, branch string) (*Document, error) {
	if branch == "" {
		branch = DefaultBranch
	}
	q := url.Values{"branch": {branch}}
	return p.r.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectID)+"/head", q, nil)
}

// Run executes the project's prompt with the given template variables.
func (p *PromptHub) Run(ctx context.Context, projectID string, vars map[string]string) (*Document, error) {
	if vars == nil {
		vars = map[string]string{}
	}
	body := map[string]any{"variables": vars}
	return p.r.do(ctx, http.MethodPost, "/projects/"+url.PathEscape(projectID)+"/run", nil, body)
}
