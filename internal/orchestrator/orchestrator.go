// Package orchestrator resolves one round of model tool calls: ask the model,
// run whatever local tools it requested, hand the results back and return
// its final answer.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/chris/toolcall/internal/llm"
	"github.com/chris/toolcall/internal/metrics"
	"github.com/chris/toolcall/internal/telemetry"
	"github.com/chris/toolcall/internal/tools"
)

const DefaultToolTimeout = 30 * time.Second

// Result answers a single tool call.
type Result struct {
	ToolCallID string
	Tool       string
	Payload    string
	Err        error // nil on success; Payload then holds the handler output
}

type Orchestrator struct {
	client      llm.Client
	registry    *tools.Registry
	declared    []llm.Tool
	validator   *tools.Validator
	system      string
	toolTimeout time.Duration
	parallel    int
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

type Option func(*Orchestrator)

// WithSystemPrompt prepends a system message to every conversation.
func WithSystemPrompt(prompt string) Option {
	return func(o *Orchestrator) { o.system = prompt }
}

// WithToolTimeout bounds each handler call. Zero disables the bound.
func WithToolTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.toolTimeout = d }
}

// WithParallelism sets how many handlers may run at once. Values below 1
// mean sequential execution.
func WithParallelism(n int) Option {
	return func(o *Orchestrator) { o.parallel = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// New binds client to the tools in registry. The declared tool set is fixed
// here; registering more tools afterwards does not change what is sent.
func New(client llm.Client, registry *tools.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:      client,
		registry:    registry,
		declared:    registry.Declarations(),
		validator:   tools.NewValidator(),
		toolTimeout: DefaultToolTimeout,
		parallel:    1,
		logger:      slog.Default(),
		metrics:     metrics.New(),
		tracer:      telemetry.Tracer(nil),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.parallel < 1 {
		o.parallel = 1
	}
	return o
}

// Run sends userInput to the model and resolves at most one round of tool
// calls. It returns the final answer and the full conversation, final
// assistant message included. Only endpoint failures are returned as errors.
func (o *Orchestrator) Run(ctx context.Context, userInput string) (string, []llm.Message, error) {
	runID := uuid.NewString()
	log := o.logger.With("run_id", runID)
	ctx, span := o.tracer.Start(ctx, "toolcall.run", trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	conv := llm.NewConversation()
	if o.system != "" {
		conv.Append(llm.SystemMessage(o.system))
	}
	conv.Append(llm.UserMessage(userInput))

	first, err := o.chat(ctx, log, "first", conv, o.declared)
	if err != nil {
		o.fail(span, err)
		return "", conv.Messages(), err
	}

	if len(first.ToolCalls) == 0 {
		conv.Append(llm.AssistantMessage(first))
		o.metrics.ObserveRun("direct")
		return first.Content, conv.Messages(), nil
	}
	span.SetAttributes(attribute.Int("run.tool_calls", len(first.ToolCalls)))

	results := o.resolve(ctx, log, first.ToolCalls)

	// The assistant turn goes in with every call it made, answered or not.
	conv.Append(llm.AssistantMessage(first))
	for _, r := range results {
		if r.Err != nil {
			conv.Append(llm.ToolErrorMessage(r.ToolCallID, r.Payload))
			continue
		}
		conv.Append(llm.ToolResultMessage(r.ToolCallID, r.Payload))
	}

	second, err := o.chat(ctx, log, "second", conv, nil)
	if err != nil {
		o.fail(span, err)
		return "", conv.Messages(), err
	}
	if n := len(second.ToolCalls); n > 0 {
		log.Info("final response requested more tools; not resolving", "tool_calls", n)
	}
	conv.Append(llm.AssistantMessage(second))
	o.metrics.ObserveRun("tools")
	return second.Content, conv.Messages(), nil
}

func (o *Orchestrator) fail(span trace.Span, err error) {
	o.metrics.ObserveRun("failed")
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (o *Orchestrator) chat(ctx context.Context, log *slog.Logger, round string, conv *llm.Conversation, declared []llm.Tool) (*llm.Response, error) {
	ctx, span := o.tracer.Start(ctx, "llm.chat", trace.WithAttributes(
		attribute.String("chat.round", round),
		attribute.Int("chat.tools", len(declared)),
	))
	defer span.End()

	msgs := conv.Messages()
	log.Debug("chat request",
		"round", round,
		"messages", len(msgs),
		"tools", len(declared),
		"estimated_tokens", llm.EstimateRequestTokens(msgs, declared),
	)
	start := time.Now()
	resp, err := o.client.Chat(ctx, msgs, declared)
	o.metrics.ObserveChat(round, time.Since(start), err)
	if err != nil {
		var ee *llm.EndpointError
		if !errors.As(err, &ee) {
			err = &llm.EndpointError{Provider: "endpoint", Err: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("llm chat: %w", err)
	}
	log.Debug("chat response",
		"elapsed", time.Since(start),
		"tool_calls", len(resp.ToolCalls),
		"content", truncate(resp.Content, 200),
	)
	return resp, nil
}

// resolve answers calls in request order. Malformed calls are left out;
// every returned result carries the id of the call it answers.
func (o *Orchestrator) resolve(ctx context.Context, log *slog.Logger, calls []llm.ToolCall) []Result {
	slots := make([]*Result, len(calls))

	var g errgroup.Group
	g.SetLimit(o.parallel)
	for i, call := range calls {
		if !wellFormedID(call.ID) {
			err := &MalformedToolCallError{ID: call.ID, Tool: call.Name}
			log.Warn("skipping tool call", "error", err, "args", call.Arguments())
			o.metrics.ObserveTool(call.Name, metrics.StatusSkipped, 0)
			continue
		}
		g.Go(func() error {
			r := o.execute(ctx, call)
			slots[i] = &r
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	results := make([]Result, 0, len(calls))
	for _, r := range slots {
		if r == nil {
			continue
		}
		if r.Err != nil {
			log.Warn("tool failed", "tool", r.Tool, "id", r.ToolCallID, "error", r.Err)
		} else {
			log.Info("tool", "tool", r.Tool, "id", r.ToolCallID, "result", truncate(r.Payload, 200))
		}
		results = append(results, *r)
	}
	return results
}

func (o *Orchestrator) execute(ctx context.Context, call llm.ToolCall) Result {
	ctx, span := o.tracer.Start(ctx, "tool.call", trace.WithAttributes(
		attribute.String("tool.name", call.Name),
		attribute.String("tool.call_id", call.ID),
	))
	defer span.End()

	res := Result{ToolCallID: call.ID, Tool: call.Name}
	start := time.Now()
	out, err := o.call(ctx, call)
	elapsed := time.Since(start)
	if err != nil {
		res.Err = err
		res.Payload = errorPayload(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		status := toolStatus(err)
		if status == metrics.StatusUnknown {
			elapsed = 0
		}
		o.metrics.ObserveTool(call.Name, status, elapsed)
		return res
	}
	res.Payload = out
	o.metrics.ObserveTool(call.Name, metrics.StatusSuccess, elapsed)
	return res
}

func toolStatus(err error) string {
	var unknown *UnknownToolError
	var timeout *ToolTimeoutError
	switch {
	case errors.As(err, &unknown):
		return metrics.StatusUnknown
	case errors.As(err, &timeout):
		return metrics.StatusTimeout
	default:
		return metrics.StatusError
	}
}

func (o *Orchestrator) call(ctx context.Context, call llm.ToolCall) (string, error) {
	spec, ok := o.registry.Lookup(call.Name)
	if !ok {
		return "", &UnknownToolError{Name: call.Name}
	}
	if call.Params == nil && call.RawArguments != "" {
		return "", &ToolExecutionError{Tool: call.Name, Err: fmt.Errorf("arguments are not valid JSON: %s", call.RawArguments)}
	}
	args := call.Params
	if args == nil {
		args = map[string]any{}
	}
	if err := o.validator.Validate(spec, args); err != nil {
		return "", &ToolExecutionError{Tool: call.Name, Err: err}
	}
	return o.invoke(ctx, spec, args)
}

type outcome struct {
	out string
	err error
}

// invoke runs the handler under the tool timeout. A handler that ignores its
// context is abandoned once the deadline passes.
func (o *Orchestrator) invoke(ctx context.Context, spec tools.Spec, args map[string]any) (string, error) {
	if o.toolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.toolTimeout)
		defer cancel()
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		out, err := spec.Handler(ctx, args)
		done <- outcome{out: out, err: err}
	}()

	select {
	case res := <-done:
		if res.err == nil {
			return res.out, nil
		}
		if errors.Is(res.err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &ToolTimeoutError{Tool: spec.Name, Timeout: o.toolTimeout}
		}
		return "", &ToolExecutionError{Tool: spec.Name, Err: res.err}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && o.toolTimeout > 0 {
			return "", &ToolTimeoutError{Tool: spec.Name, Timeout: o.toolTimeout}
		}
		return "", &ToolExecutionError{Tool: spec.Name, Err: ctx.Err()}
	}
}

// wellFormedID reports whether id can be echoed back as a tool_call_id.
func wellFormedID(id string) bool {
	if strings.TrimSpace(id) == "" {
		return false
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
