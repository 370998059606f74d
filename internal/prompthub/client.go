// Package prompthub fetches managed prompts from PromptHub and PromptLayer.
// Responses are kept as raw JSON; callers pick fields out with gjson paths.
package prompthub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/chris/toolcall/internal/telemetry"
)

var ErrNoAPIKey = errors.New("api key is not set")

// Document is a successful JSON response.
type Document struct {
	Status    int
	RequestID string
	Body      []byte
}

// Get extracts a value by gjson path, e.g. "data.formatted_request.messages.0.content".
func (d *Document) Get(path string) gjson.Result {
	return gjson.GetBytes(d.Body, path)
}

func (d *Document) String() string {
	return string(d.Body)
}

// APIError is a non-2xx response.
type APIError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	msg := e.Body
	if m := gjson.Get(e.Body, "message"); m.Exists() {
		msg = m.String()
	} else if m := gjson.Get(e.Body, "error"); m.Exists() {
		msg = m.String()
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Service, e.StatusCode, msg)
}

type Option func(*requester)

func WithBaseURL(u string) Option {
	return func(r *requester) {
		if u != "" {
			r.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(r *requester) { r.http = c }
}

type requester struct {
	service string
	apiKey  string
	baseURL string
	http    *http.Client
	auth    func(req *http.Request, key string)
}

func newRequester(service, apiKey, baseURL string, auth func(*http.Request, string), opts []Option) *requester {
	r := &requester{
		service: service,
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    telemetry.HTTPClient(nil, 60*time.Second),
		auth:    auth,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *requester) do(ctx context.Context, method, path string, query url.Values, payload any) (*Document, error) {
	if r.apiKey == "" {
		return nil, fmt.Errorf("%s: %w", r.service, ErrNoAPIKey)
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	u := r.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r.auth(req, r.apiKey)

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", r.service, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Service: r.service, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if !gjson.ValidBytes(respBody) {
		return nil, fmt.Errorf("%s: response is not JSON", r.service)
	}
	return &Document{Status: resp.StatusCode, RequestID: requestID, Body: respBody}, nil
}
