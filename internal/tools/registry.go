// Package tools holds the locally executable functions a model may call:
// their declarations, argument validation and handlers.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/chris/toolcall/internal/llm"
)

var (
	ErrToolNameRequired = errors.New("tool name is required")
	ErrHandlerRequired  = errors.New("tool handler is required")
	ErrDuplicateTool    = errors.New("tool already registered")
)

// Handler executes one tool call. args is the decoded argument payload; the
// returned string is sent back to the model verbatim.
type Handler func(ctx context.Context, args map[string]any) (string, error)

type Spec struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema
	Handler     Handler
}

// Declaration is the part of a Spec the model sees.
func (s Spec) Declaration() llm.Tool {
	params := s.Parameters
	if params == nil {
		params = Object(nil)
	}
	return llm.Tool{Name: s.Name, Description: s.Description, Parameters: params}
}

// Registry is filled once at startup and only read afterwards, so lookups
// need no locking.
type Registry struct {
	specs map[string]Spec
}

func NewRegistry(specs ...Spec) (*Registry, error) {
	r := &Registry{specs: make(map[string]Spec)}
	for _, s := range specs {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustNewRegistry is NewRegistry for fixed tool sets built at startup.
func MustNewRegistry(specs ...Spec) *Registry {
	r, err := NewRegistry(specs...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Register(s Spec) error {
	if s.Name == "" {
		return ErrToolNameRequired
	}
	if s.Handler == nil {
		return fmt.Errorf("%s: %w", s.Name, ErrHandlerRequired)
	}
	if _, ok := r.specs[s.Name]; ok {
		return fmt.Errorf("%s: %w", s.Name, ErrDuplicateTool)
	}
	r.specs[s.Name] = s
	return nil
}

// MustRegister is Register for wiring code that cannot continue without the tool.
func (r *Registry) MustRegister(s Spec) {
	if err := r.Register(s); err != nil {
		panic(err)
	}
}

func (r *Registry) Lookup(name string) (Spec, bool) {
	s, ok := r.specs[name]
	return s, ok
}

func (r *Registry) Len() int {
	return len(r.specs)
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Declarations returns the tool schemas sent to the model, sorted by name.
func (r *Registry) Declarations() []llm.Tool {
	names := r.Names()
	out := make([]llm.Tool, len(names))
	for i, name := range names {
		out[i] = r.specs[name].Declaration()
	}
	return out
}
