package tools

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError reports arguments that do not match a tool's schema.
type ValidationError struct {
	Tool    string
	Details []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, strings.Join(e.Details, "; "))
}

// Validator checks argument payloads against tool schemas. Compiled schemas
// are cached per tool name; it is safe for concurrent use.
type Validator struct {
	mu    sync.Mutex
	cache map[string]*gojsonschema.Schema
}

func NewValidator() *Validator {
	return &Validator{cache: make(map[string]*gojsonschema.Schema)}
}

func (v *Validator) Validate(spec Spec, args map[string]any) error {
	if spec.Parameters == nil {
		return nil
	}
	schema, err := v.schema(spec)
	if err != nil {
		return fmt.Errorf("compiling schema for %s: %w", spec.Name, err)
	}
	if args == nil {
		args = map[string]any{}
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("validating arguments for %s: %w", spec.Name, err)
	}
	if result.Valid() {
		return nil
	}
	details := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		details[i] = desc.String()
	}
	return &ValidationError{Tool: spec.Name, Details: details}
}

func (v *Validator) schema(spec Spec) (*gojsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.cache[spec.Name]; ok {
		return s, nil
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(spec.Parameters))
	if err != nil {
		return nil, err
	}
	v.cache[spec.Name] = s
	return s, nil
}
