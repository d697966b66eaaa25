// Package telemetry wraps OpenTelemetry tracing with spans for model calls,
// tool executions and crew tasks. Without an initialized provider every span
// is a no-op.
package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracer wraps an OpenTelemetry tracer.
type Tracer struct {
	tracer trace.Tracer
	debug  bool // include prompts and tool output in span attributes
}

var (
	globalTracer *Tracer
	tracerMu     sync.RWMutex
)

// SetGlobalTracer sets the tracer returned by GetTracer.
func SetGlobalTracer(t *Tracer) {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	globalTracer = t
}

// GetTracer returns the global tracer, or a no-op tracer if none is set.
func GetTracer() *Tracer {
	tracerMu.RLock()
	defer tracerMu.RUnlock()
	if globalTracer == nil {
		return &Tracer{tracer: noop.NewTracerProvider().Tracer("")}
	}
	return globalTracer
}

// NewTracer creates a tracer from the global OpenTelemetry provider.
func NewTracer(name string, debug bool) *Tracer {
	return NewTracerFrom(otel.GetTracerProvider(), name, debug)
}

// NewTracerFrom creates a tracer from an explicit provider.
func NewTracerFrom(tp trace.TracerProvider, name string, debug bool) *Tracer {
	return &Tracer{tracer: tp.Tracer(name), debug: debug}
}

// Debug reports whether content is recorded in spans.
func (t *Tracer) Debug() bool {
	return t.debug
}

// LLMSpanOptions describes a finished model call.
type LLMSpanOptions struct {
	Agent     string
	Model     string
	Provider  string
	TokensIn  int
	TokensOut int
	ToolCalls int
	Prompt    string // debug only
	Response  string // debug only
}

// StartLLMSpan starts a span for a model call.
func (t *Tracer) StartLLMSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
}

// EndLLMSpan records the call's attributes and ends the span.
func (t *Tracer) EndLLMSpan(span trace.Span, opts LLMSpanOptions, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("llm.model", opts.Model),
		attribute.String("llm.provider", opts.Provider),
		attribute.Int("llm.tokens.input", opts.TokensIn),
		attribute.Int("llm.tokens.output", opts.TokensOut),
		attribute.Int("llm.tool_calls", opts.ToolCalls),
	}
	if opts.Agent != "" {
		attrs = append(attrs, attribute.String("crew.agent", opts.Agent))
	}
	if t.debug {
		if opts.Prompt != "" {
			attrs = append(attrs, attribute.String("llm.prompt", truncate(opts.Prompt, 4000)))
		}
		if opts.Response != "" {
			attrs = append(attrs, attribute.String("llm.response", truncate(opts.Response, 4000)))
		}
	}
	span.SetAttributes(attrs...)
	end(span, err)
}

// StartToolSpan starts a span for a tool execution.
func (t *Tracer) StartToolSpan(ctx context.Context, tool string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "tool."+tool, trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(attribute.String("tool.name", tool))
	return ctx, span
}

// EndToolSpan records tool arguments (always) and output (debug only).
func (t *Tracer) EndToolSpan(span trace.Span, args map[string]interface{}, output string, err error) {
	for k, v := range args {
		span.SetAttributes(attribute.String("tool.arg."+k, truncate(fmt.Sprint(v), 500)))
	}
	if t.debug && output != "" {
		span.SetAttributes(attribute.String("tool.output", truncate(output, 4000)))
	}
	end(span, err)
}

// StartTaskSpan starts a span covering one crew task.
func (t *Tracer) StartTaskSpan(ctx context.Context, task, agent string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "task."+task, trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(
		attribute.String("crew.task", task),
		attribute.String("crew.agent", agent),
	)
	return ctx, span
}

// EndTaskSpan ends a task span.
func (t *Tracer) EndTaskSpan(span trace.Span, attempts int, err error) {
	span.SetAttributes(attribute.Int("crew.attempts", attempts))
	end(span, err)
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
