// Package llm provides the chat-with-tools interface the crew drives and its
// implementations for Anthropic, OpenAI, Google Gemini and OpenAI-compatible
// endpoints.
package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Message is one entry of a conversation.
type Message struct {
	Role       string             `json:"role"` // system, user, assistant, tool
	Content    string             `json:"content"`
	ToolCalls  []ToolCallResponse `json:"tool_calls,omitempty"`
	ToolCallID string             `json:"tool_call_id,omitempty"`
	Name       string             `json:"name,omitempty"` // tool name on tool results
}

// ToolDef describes a tool the model may call.
type ToolDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolCallResponse is a tool call requested by the model.
type ToolCallResponse struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

// ChatRequest is a single model call.
type ChatRequest struct {
	Messages  []Message `json:"messages"`
	Tools     []ToolDef `json:"tools,omitempty"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// ChatResponse is the model's answer.
type ChatResponse struct {
	Content      string             `json:"content"`
	ToolCalls    []ToolCallResponse `json:"tool_calls,omitempty"`
	StopReason   string             `json:"stop_reason"`
	InputTokens  int                `json:"input_tokens"`
	OutputTokens int                `json:"output_tokens"`
	Model        string             `json:"model"`
}

// Provider is implemented by every model backend.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ProviderConfig selects and configures a backend.
type ProviderConfig struct {
	Provider  string      `toml:"provider"` // anthropic, openai, google, groq, mistral, openrouter, ollama, openai-compat
	Model     string      `toml:"model"`
	APIKey    string      `toml:"-"`
	MaxTokens int         `toml:"max_tokens"`
	BaseURL   string      `toml:"base_url"`
	Retry     RetryConfig `toml:"retry"`
}

// RetryConfig controls backoff for rate limit and server errors.
type RetryConfig struct {
	MaxRetries  int           `toml:"max_retries"`  // default 5
	InitBackoff time.Duration `toml:"init_backoff"` // default 1s
	MaxBackoff  time.Duration `toml:"max_backoff"`  // default 60s
}

// Validate checks the fields every provider needs.
func (c *ProviderConfig) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens is required")
	}
	if c.APIKey == "" && !keyless(c.Provider) {
		return fmt.Errorf("api key is required for %s", c.Provider)
	}
	return nil
}

func keyless(provider string) bool {
	switch provider {
	case "ollama", "ollama-local", "lmstudio", "openai-compat", "litellm":
		return true
	}
	return false
}

// --- Mock Provider for Testing ---

// MockProvider is a scripted Provider for tests.
//
// Responses queued with Script are returned in order. Once the queue is
// empty the provider falls back to the single response configured with
// SetResponse/SetToolCall: tool calls are returned until the conversation
// contains a tool result, then the plain content.
type MockProvider struct {
	mu          sync.Mutex
	script      []*ChatResponse
	response    string
	toolCalls   []ToolCallResponse
	err         error
	requests    []ChatRequest
	ChatFunc    func(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// NewMockProvider creates an empty mock.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Script queues responses returned one per call.
func (p *MockProvider) Script(responses ...*ChatResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script = append(p.script, responses...)
}

// SetResponse sets the fallback content.
func (p *MockProvider) SetResponse(content string) {
	p.response = content
}

// SetToolCall sets a single fallback tool call.
func (p *MockProvider) SetToolCall(name string, args map[string]interface{}) {
	p.toolCalls = []ToolCallResponse{{ID: "tc-1", Name: name, Args: args}}
}

// SetError makes every call fail with err.
func (p *MockProvider) SetError(err error) {
	p.err = err
}

// CallCount returns the number of Chat calls made.
func (p *MockProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// Requests returns every request received so far.
func (p *MockProvider) Requests() []ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ChatRequest(nil), p.requests...)
}

// LastRequest returns the most recent request, or nil.
func (p *MockProvider) LastRequest() *ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return nil
	}
	req := p.requests[len(p.requests)-1]
	return &req
}

// Chat implements Provider.
func (p *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	var next *ChatResponse
	if len(p.script) > 0 {
		next, p.script = p.script[0], p.script[1:]
	}
	p.mu.Unlock()

	if p.ChatFunc != nil {
		return p.ChatFunc(ctx, req)
	}
	if p.err != nil {
		return nil, p.err
	}
	if next != nil {
		resp := *next
		if resp.StopReason == "" {
			resp.StopReason = "end_turn"
		}
		return &resp, nil
	}

	for _, m := range req.Messages {
		if m.Role == "tool" {
			return &ChatResponse{Content: p.response, StopReason: "end_turn"}, nil
		}
	}
	return &ChatResponse{Content: p.response, ToolCalls: p.toolCalls, StopReason: "end_turn"}, nil
}
