package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/vinayprograms/resumematch/telemetry"
)

// TracingProvider wraps a Provider with OpenTelemetry spans.
type TracingProvider struct {
	provider     Provider
	providerName string
	agent        string
}

// WithTracing wraps p so every call records an llm.chat span.
func WithTracing(p Provider, providerName string) *TracingProvider {
	return &TracingProvider{provider: p, providerName: providerName}
}

// ForAgent returns a copy whose spans carry the agent role.
func (tp *TracingProvider) ForAgent(role string) *TracingProvider {
	return &TracingProvider{provider: tp.provider, providerName: tp.providerName, agent: role}
}

// Chat implements Provider.
func (tp *TracingProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartLLMSpan(ctx, "llm.chat")

	resp, err := tp.provider.Chat(ctx, req)

	opts := telemetry.LLMSpanOptions{
		Agent:    tp.agent,
		Provider: tp.providerName,
	}
	if resp != nil {
		opts.Model = resp.Model
		opts.TokensIn = resp.InputTokens
		opts.TokensOut = resp.OutputTokens
		opts.ToolCalls = len(resp.ToolCalls)
		opts.Response = resp.Content
	}
	if tracer.Debug() {
		parts := make([]string, 0, len(req.Messages))
		for _, msg := range req.Messages {
			parts = append(parts, fmt.Sprintf("[%s] %s", msg.Role, msg.Content))
		}
		opts.Prompt = strings.Join(parts, "\n")
	}
	tracer.EndLLMSpan(span, opts, err)

	return resp, err
}
