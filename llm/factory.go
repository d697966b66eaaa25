package llm

import (
	"fmt"
	"strings"
)

// NewProvider builds the provider named by cfg.Provider. An empty provider
// is inferred from the model name.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	if cfg.Provider == "" {
		cfg.Provider = InferProviderFromModel(cfg.Model)
	}
	if cfg.Provider == "" {
		return nil, fmt.Errorf("cannot infer provider for model %q", cfg.Model)
	}

	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicProvider(cfg)
	case "openai":
		return NewOpenAIProvider(cfg)
	case "google", "gemini":
		return NewGoogleProvider(cfg)
	case "groq", "mistral", "openrouter", "ollama", "ollama-local", "lmstudio", "openai-compat", "litellm":
		return NewOpenAICompatProvider(cfg)
	}
	return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
}

// InferProviderFromModel guesses the provider from well-known model prefixes.
// It returns "" when nothing matches.
func InferProviderFromModel(model string) string {
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "claude"):
		return "anthropic"
	case strings.HasPrefix(m, "gpt"), strings.HasPrefix(m, "o1"), strings.HasPrefix(m, "o3"), strings.HasPrefix(m, "o4"):
		return "openai"
	case strings.HasPrefix(m, "gemini"):
		return "google"
	case strings.HasPrefix(m, "mistral"), strings.HasPrefix(m, "codestral"):
		return "mistral"
	case strings.HasPrefix(m, "llama"), strings.HasPrefix(m, "mixtral"):
		return "groq"
	case strings.Contains(m, "/"):
		return "openrouter"
	}
	return ""
}
