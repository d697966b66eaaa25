package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/vinayprograms/resumematch/errors"
)

func TestProviderCreation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ProviderConfig
		wantErr bool
	}{
		{"anthropic ok", ProviderConfig{Provider: "anthropic", Model: "claude-sonnet-4", APIKey: "k", MaxTokens: 1024}, false},
		{"anthropic no key", ProviderConfig{Provider: "anthropic", Model: "claude-sonnet-4", MaxTokens: 1024}, true},
		{"openai ok", ProviderConfig{Provider: "openai", Model: "gpt-4o", APIKey: "k", MaxTokens: 1024}, false},
		{"openai no max tokens", ProviderConfig{Provider: "openai", Model: "gpt-4o", APIKey: "k"}, true},
		{"groq ok", ProviderConfig{Provider: "groq", Model: "llama-3.1-70b", APIKey: "k", MaxTokens: 1024}, false},
		{"ollama needs no key", ProviderConfig{Provider: "ollama", Model: "llama3", MaxTokens: 1024}, false},
		{"compat needs base url", ProviderConfig{Provider: "openai-compat", Model: "x", MaxTokens: 1024}, true},
		{"unknown provider", ProviderConfig{Provider: "nope", Model: "x", APIKey: "k", MaxTokens: 1}, true},
		{"inferred from model", ProviderConfig{Model: "gpt-4o-mini", APIKey: "k", MaxTokens: 1024}, false},
		{"not inferable", ProviderConfig{Model: "mystery", APIKey: "k", MaxTokens: 1024}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInferProviderFromModel(t *testing.T) {
	tests := map[string]string{
		"claude-3-5-sonnet":      "anthropic",
		"gpt-4o":                 "openai",
		"o3-mini":                "openai",
		"gemini-1.5-pro":         "google",
		"mistral-large":          "mistral",
		"llama-3.1-8b":           "groq",
		"meta-llama/llama-3-70b": "openrouter",
		"unknown":                "",
	}
	for model, want := range tests {
		if got := InferProviderFromModel(model); got != want {
			t.Errorf("InferProviderFromModel(%q) = %q, want %q", model, got, want)
		}
	}
}

func TestProviderConfigValidate(t *testing.T) {
	cfg := ProviderConfig{Provider: "anthropic", Model: "claude", MaxTokens: 10}
	if err := cfg.Validate(); err == nil {
		t.Error("expected missing api key error")
	}
	cfg.APIKey = "k"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	local := ProviderConfig{Provider: "ollama", Model: "llama3", MaxTokens: 10}
	if err := local.Validate(); err != nil {
		t.Errorf("local providers need no key: %v", err)
	}
}

func newCompatServer(t *testing.T, handler http.HandlerFunc) *OpenAICompatProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewOpenAICompatProvider(ProviderConfig{
		Provider:  "openai-compat",
		BaseURL:   srv.URL,
		Model:     "test-model",
		MaxTokens: 256,
		Retry:     RetryConfig{MaxRetries: 2, InitBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("NewOpenAICompatProvider: %v", err)
	}
	return p
}

func TestOpenAICompat_ToolCallRoundTrip(t *testing.T) {
	var got oaiRequest
	p := newCompatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		fmt.Fprint(w, `{
			"model": "test-model",
			"choices": [{
				"finish_reason": "tool_calls",
				"message": {"role": "assistant", "content": "", "tool_calls": [
					{"id": "call_1", "type": "function", "function": {"name": "extract_resume", "arguments": "{\"resume\":\"input/cv.pdf\"}"}}
				]}
			}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5}
		}`)
	})

	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{
			{Role: "system", Content: "You are a résumé analyst."},
			{Role: "user", Content: "Analyse input/cv.pdf"},
		},
		Tools: []ToolDef{{Name: "extract_resume", Description: "extract", Parameters: map[string]interface{}{"type": "object"}}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if got.Model != "test-model" || got.MaxTokens != 256 {
		t.Errorf("request model/max_tokens = %s/%d", got.Model, got.MaxTokens)
	}
	if len(got.Tools) != 1 || got.Tools[0].Function.Name != "extract_resume" {
		t.Errorf("tools not forwarded: %+v", got.Tools)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.ToolCalls))
	}
	if resp.ToolCalls[0].Args["resume"] != "input/cv.pdf" {
		t.Errorf("args = %v", resp.ToolCalls[0].Args)
	}
	if resp.InputTokens != 12 || resp.OutputTokens != 5 {
		t.Errorf("usage = %d/%d", resp.InputTokens, resp.OutputTokens)
	}
}

func TestOpenAICompat_RetriesRateLimit(t *testing.T) {
	var calls int32
	p := newCompatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"message":"slow down"}}`)
			return
		}
		fmt.Fprint(w, `{"model":"m","choices":[{"finish_reason":"stop","message":{"role":"assistant","content":"done"}}]}`)
	})

	resp, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "done" {
		t.Errorf("Content = %q", resp.Content)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestOpenAICompat_GivesUpAfterRetries(t *testing.T) {
	var calls int32
	p := newCompatServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Code(err) != errors.ErrCodeRateLimit {
		t.Errorf("code = %v", errors.Code(err))
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("calls = %d, want 3 (1 + 2 retries)", calls)
	}
}

func TestOpenAICompat_BillingIsFatal(t *testing.T) {
	var calls int32
	p := newCompatServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusPaymentRequired)
	})

	_, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	if errors.Code(err) != errors.ErrCodeQuotaExceeded {
		t.Errorf("code = %v", errors.Code(err))
	}
	if errors.IsRetryable(err) {
		t.Error("billing errors must not be retryable")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		msg       string
		retryable bool
		billing   bool
	}{
		{"rate limit exceeded", true, false},
		{"API error (status 503): unavailable", true, false},
		{"overloaded_error", true, false},
		{"payment required", false, true},
		{"insufficient credits", false, true},
		{"invalid api key", false, false},
	}
	for _, tt := range tests {
		err := fmt.Errorf("%s", tt.msg)
		if got := isRetryableError(err); got != tt.retryable {
			t.Errorf("isRetryableError(%q) = %v", tt.msg, got)
		}
		if got := isBillingError(err); got != tt.billing {
			t.Errorf("isBillingError(%q) = %v", tt.msg, got)
		}
	}
	if isRetryableError(nil) {
		t.Error("nil is not retryable")
	}
}

func TestWithRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := withRetry(ctx, RetryConfig{InitBackoff: time.Hour}, "test", func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, fmt.Errorf("429 too many requests")
	})
	if errors.Code(err) != errors.ErrCodeCanceled {
		t.Errorf("code = %v", errors.Code(err))
	}
	if calls != 1 {
		t.Errorf("calls = %d", calls)
	}
}

func TestConvertToGeminiSchema(t *testing.T) {
	schema := convertToGeminiSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"markdown_content": map[string]interface{}{
				"type":        []interface{}{"string", "object"},
				"description": "résumé markdown",
			},
			"count": map[string]interface{}{"type": "integer"},
		},
		"required": []string{"markdown_content"},
	})

	if schema.Type != genai.TypeObject {
		t.Errorf("Type = %v", schema.Type)
	}
	if got := schema.Properties["markdown_content"]; got == nil || got.Type != genai.TypeString {
		t.Errorf("union type should collapse to string, got %+v", got)
	}
	if schema.Properties["count"].Type != genai.TypeInteger {
		t.Error("count should be integer")
	}
	if len(schema.Required) != 1 || schema.Required[0] != "markdown_content" {
		t.Errorf("Required = %v", schema.Required)
	}
}
