// Package tools holds the model-callable tools of the pipeline and the
// registry that validates and dispatches calls to them.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/vinayprograms/resumematch/errors"
	"github.com/vinayprograms/resumematch/logging"
	"github.com/vinayprograms/resumematch/telemetry"
)

// Tool is an executable tool.
type Tool interface {
	// Name returns the tool name.
	Name() string
	// Description returns a description for the model.
	Description() string
	// Parameters returns the JSON schema of the arguments.
	Parameters() map[string]interface{}
	// Execute runs the tool.
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// ToolDefinition is the model-facing tool definition.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// CredentialProvider provides API keys for tools.
type CredentialProvider interface {
	GetAPIKey(provider string) string
}

// Registry holds the registered tools.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	order   []string
	schemas map[string]*gojsonschema.Schema
	logger  *logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.New()
	}
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*gojsonschema.Schema),
		logger:  logger.WithComponent("tools"),
	}
}

// Register adds a tool, replacing any tool with the same name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
	delete(r.schemas, t.Name())
}

// Get returns a tool by name, or nil if not found.
func (r *Registry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Has reports whether a tool is registered under name.
func (r *Registry) Has(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Definitions returns definitions for the named tools, or for every tool when
// no names are given. Unknown names are skipped.
func (r *Registry) Definitions(names ...string) []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(names) == 0 {
		names = r.order
	}
	defs := make([]ToolDefinition, 0, len(names))
	for _, name := range names {
		t, ok := r.tools[name]
		if !ok {
			continue
		}
		defs = append(defs, ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Execute validates args against the tool's schema and runs it.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	t := r.Get(name)
	if t == nil {
		return nil, errors.NotFound(fmt.Sprintf("unknown tool: %s", name))
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	if err := r.validate(t, args); err != nil {
		return nil, err
	}

	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartToolSpan(ctx, name)

	r.logger.ToolCall(name, args)
	start := time.Now()
	result, err := t.Execute(ctx, args)
	r.logger.ToolResult(name, time.Since(start), err)

	tracer.EndToolSpan(span, args, fmt.Sprint(result), err)
	return result, err
}

func (r *Registry) validate(t Tool, args map[string]interface{}) error {
	schema, err := r.schema(t)
	if err != nil {
		return errors.Internal(fmt.Sprintf("invalid schema for tool %s", t.Name()), errors.WithCause(err))
	}

	res, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return errors.InvalidInput(fmt.Sprintf("arguments for %s are not valid JSON", t.Name()), errors.WithCause(err))
	}
	if res.Valid() {
		return nil
	}

	problems := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		problems = append(problems, e.String())
	}
	sort.Strings(problems)
	return errors.InvalidInput(fmt.Sprintf("invalid arguments for %s: %s", t.Name(), strings.Join(problems, "; ")))
}

func (r *Registry) schema(t Tool) (*gojsonschema.Schema, error) {
	r.mu.RLock()
	s, ok := r.schemas[t.Name()]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(t.Parameters()))
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.schemas[t.Name()] = s
	r.mu.Unlock()
	return s, nil
}
