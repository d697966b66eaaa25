package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GoogleProvider talks to Gemini models.
type GoogleProvider struct {
	client    *genai.Client
	modelName string
	maxTokens int
	retry     RetryConfig
}

// NewGoogleProvider creates a Gemini provider.
func NewGoogleProvider(cfg ProviderConfig) (*GoogleProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api_key is required for google")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required for google")
	}
	if cfg.MaxTokens == 0 {
		return nil, fmt.Errorf("max_tokens is required for google")
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	return &GoogleProvider{
		client:    client,
		modelName: cfg.Model,
		maxTokens: cfg.MaxTokens,
		retry:     cfg.Retry,
	}, nil
}

// Close closes the underlying client.
func (p *GoogleProvider) Close() error {
	return p.client.Close()
}

// Chat implements Provider. Each call builds its own model handle so agents
// sharing the provider do not see each other's system prompts or tools.
func (p *GoogleProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := p.client.GenerativeModel(p.modelName)
	maxTokens := int32(pickMaxTokens(req.MaxTokens, p.maxTokens))
	model.MaxOutputTokens = &maxTokens

	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  convertToGeminiSchema(t.Parameters),
			})
		}
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	cs := model.StartChat()
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(m.Content)}}
		case "user":
			cs.History = append(cs.History, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(m.Content)},
			})
		case "assistant":
			content := &genai.Content{Role: "model"}
			if m.Content != "" {
				content.Parts = append(content.Parts, genai.Text(m.Content))
			}
			for _, tc := range m.ToolCalls {
				content.Parts = append(content.Parts, genai.FunctionCall{Name: tc.Name, Args: tc.Args})
			}
			cs.History = append(cs.History, content)
		case "tool":
			name := m.Name
			if name == "" {
				name = m.ToolCallID
			}
			cs.History = append(cs.History, &genai.Content{
				Role: "user",
				Parts: []genai.Part{genai.FunctionResponse{
					Name:     name,
					Response: map[string]interface{}{"result": m.Content},
				}},
			})
		}
	}

	// The trailing user turn is sent as the message itself.
	var prompt []genai.Part
	if n := len(cs.History); n > 0 && cs.History[n-1].Role == "user" {
		prompt = cs.History[n-1].Parts
		cs.History = cs.History[:n-1]
	}
	if len(prompt) == 0 {
		prompt = []genai.Part{genai.Text("")}
	}

	resp, err := withRetry(ctx, p.retry, "google", func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		return cs.SendMessage(ctx, prompt...)
	})
	if err != nil {
		return nil, err
	}

	result := &ChatResponse{Model: p.modelName}
	if len(resp.Candidates) > 0 {
		candidate := resp.Candidates[0]
		if candidate.FinishReason != 0 {
			result.StopReason = candidate.FinishReason.String()
		}
		if candidate.Content != nil {
			for i, part := range candidate.Content.Parts {
				switch v := part.(type) {
				case genai.Text:
					result.Content += string(v)
				case genai.FunctionCall:
					result.ToolCalls = append(result.ToolCalls, ToolCallResponse{
						ID:   fmt.Sprintf("call_%s_%d", v.Name, i),
						Name: v.Name,
						Args: v.Args,
					})
				}
			}
		}
	}
	if resp.UsageMetadata != nil {
		result.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}

// convertToGeminiSchema converts a JSON Schema object to Gemini's Schema type.
func convertToGeminiSchema(params map[string]interface{}) *genai.Schema {
	schema := &genai.Schema{Type: genai.TypeObject}
	if props, ok := params["properties"].(map[string]interface{}); ok {
		schema.Properties = convertProperties(props)
	}
	schema.Required = stringList(params["required"])
	return schema
}

func convertProperties(props map[string]interface{}) map[string]*genai.Schema {
	out := make(map[string]*genai.Schema, len(props))
	for name, prop := range props {
		if propMap, ok := prop.(map[string]interface{}); ok {
			out[name] = convertPropertyToSchema(propMap)
		}
	}
	return out
}

// convertPropertyToSchema converts one property. Gemini has no union types,
// so a list of types collapses to its first entry.
func convertPropertyToSchema(prop map[string]interface{}) *genai.Schema {
	schema := &genai.Schema{}

	var typ string
	switch v := prop["type"].(type) {
	case string:
		typ = v
	case []interface{}:
		if len(v) > 0 {
			typ, _ = v[0].(string)
		}
	case []string:
		if len(v) > 0 {
			typ = v[0]
		}
	}

	switch typ {
	case "string":
		schema.Type = genai.TypeString
	case "number":
		schema.Type = genai.TypeNumber
	case "integer":
		schema.Type = genai.TypeInteger
	case "boolean":
		schema.Type = genai.TypeBoolean
	case "array":
		schema.Type = genai.TypeArray
		if items, ok := prop["items"].(map[string]interface{}); ok {
			schema.Items = convertPropertyToSchema(items)
		}
	case "object":
		schema.Type = genai.TypeObject
		if props, ok := prop["properties"].(map[string]interface{}); ok {
			schema.Properties = convertProperties(props)
		}
	}

	if desc, ok := prop["description"].(string); ok {
		schema.Description = desc
	}
	schema.Enum = stringList(prop["enum"])
	return schema
}

func stringList(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		var out []string
		for _, e := range list {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
