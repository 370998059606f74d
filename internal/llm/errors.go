package llm

import (
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v3"
)

// EndpointError reports a failed call to a model endpoint: transport, auth,
// rate limiting or an unexpected status. It is always fatal to a run.
type EndpointError struct {
	Provider   string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *EndpointError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s endpoint: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s endpoint: %v", e.Provider, e.Err)
}

func (e *EndpointError) Unwrap() error {
	return e.Err
}

// endpointError wraps an SDK error, lifting the HTTP status out of the SDK's
// own error type when there is one.
func endpointError(provider string, err error) error {
	if err == nil {
		return nil
	}
	ee := &EndpointError{Provider: provider, Err: err}
	var oaiErr *openai.Error
	var anthErr *anthropic.Error
	switch {
	case errors.As(err, &oaiErr):
		ee.StatusCode = oaiErr.StatusCode
	case errors.As(err, &anthErr):
		ee.StatusCode = anthErr.StatusCode
	}
	return ee
}
