package crew

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vinayprograms/resumematch/errors"
	"github.com/vinayprograms/resumematch/llm"
	"github.com/vinayprograms/resumematch/logging"
	"github.com/vinayprograms/resumematch/ratelimit"
	"github.com/vinayprograms/resumematch/security"
	"github.com/vinayprograms/resumematch/tools"
)

const finalAnswerPrompt = "You have reached the maximum number of steps. " +
	"Do not call any more tools. Give your best final answer now."

// agent runs tasks for one AgentConfig.
type agent struct {
	cfg       AgentConfig
	provider  llm.Provider
	registry  *tools.Registry
	toolDefs  []llm.ToolDef
	allowed   map[string]bool
	limiter   ratelimit.RateLimiter
	guard     *security.Guard
	logger    *logging.Logger
	maxTokens int
}

func newAgent(cfg AgentConfig, provider llm.Provider, registry *tools.Registry, limiter ratelimit.RateLimiter, guard *security.Guard, logger *logging.Logger, maxTokens int) *agent {
	if tp, ok := provider.(*llm.TracingProvider); ok {
		provider = tp.ForAgent(cfg.Name)
	}

	a := &agent{
		cfg:       cfg,
		provider:  provider,
		registry:  registry,
		allowed:   make(map[string]bool),
		limiter:   limiter,
		guard:     guard,
		logger:    logger.WithComponent(cfg.Name),
		maxTokens: maxTokens,
	}

	var bound []string
	for _, name := range cfg.Tools {
		if !registry.Has(name) {
			a.logger.Warn("tool not registered; agent runs without it", map[string]interface{}{"tool": name})
			continue
		}
		bound = append(bound, name)
		a.allowed[name] = true
	}
	for _, def := range registry.Definitions(bound...) {
		a.toolDefs = append(a.toolDefs, llm.ToolDef{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Parameters,
		})
	}

	if limiter != nil && cfg.MaxRPM > 0 {
		limiter.SetCapacity(cfg.Name, cfg.MaxRPM, time.Minute)
	}
	return a
}

func (a *agent) systemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.\n", a.cfg.Role)
	if a.cfg.Backstory != "" {
		b.WriteString(a.cfg.Backstory)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nYour personal goal is: %s\n", a.cfg.Goal)
	if len(a.toolDefs) > 0 {
		b.WriteString("\nUse the tools you are given by calling them. Do not describe tool calls in text.\n")
		if a.guard != nil {
			b.WriteString(security.FramingNote + "\n")
		}
	}
	return b.String()
}

func (a *agent) throttle(ctx context.Context) error {
	if a.limiter == nil || a.cfg.MaxRPM <= 0 {
		return nil
	}
	if err := a.limiter.Acquire(ctx, a.cfg.Name); err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), "waiting for rate limit")
		}
		return errors.Wrap(err, "waiting for rate limit")
	}
	return nil
}

// run executes one attempt of a task and returns the final answer.
func (a *agent) run(ctx context.Context, task TaskConfig, prompt string, emit func(Event)) (string, error) {
	messages := []llm.Message{
		{Role: "system", Content: a.systemPrompt()},
		{Role: "user", Content: prompt},
	}

	for iter := 0; iter < a.cfg.MaxIter; iter++ {
		if err := a.throttle(ctx); err != nil {
			return "", err
		}
		resp, err := a.provider.Chat(ctx, llm.ChatRequest{
			Messages:  messages,
			Tools:     a.toolDefs,
			MaxTokens: a.maxTokens,
		})
		if err != nil {
			return "", err
		}

		if len(resp.ToolCalls) == 0 {
			return a.narrate(task, resp.Content, emit)
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			output, ok, err := a.invoke(ctx, task, tc, emit)
			if err != nil {
				return "", err
			}
			if ok && a.guard != nil {
				output = a.guard.Wrap("tool:"+tc.Name, output).Frame()
			}
			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    output,
				ToolCallID: tc.ID,
				Name:       tc.Name,
			})
		}
	}

	a.logger.Warn("max iterations reached; forcing final answer", map[string]interface{}{
		"task":     task.Name,
		"max_iter": a.cfg.MaxIter,
	})
	messages = append(messages, llm.Message{Role: "user", Content: finalAnswerPrompt})
	if err := a.throttle(ctx); err != nil {
		return "", err
	}
	resp, err := a.provider.Chat(ctx, llm.ChatRequest{Messages: messages, MaxTokens: a.maxTokens})
	if err != nil {
		return "", err
	}
	return a.narrate(task, resp.Content, emit)
}

func (a *agent) narrate(task TaskConfig, text string, emit func(Event)) (string, error) {
	ev := StepNarrated{Task: task.Name, Agent: a.cfg.Name, Text: text, MimicsToolCall: mimicsToolCall(text)}
	emit(ev)
	a.logger.StepNarrated(a.cfg.Name, text)
	if ev.MimicsToolCall {
		a.logger.Warn("tool narrated, not invoked", map[string]interface{}{"task": task.Name})
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New(errors.ErrCodeTaskFailed, "model returned an empty answer", errors.WithAgent(a.cfg.Name), errors.WithTask(task.Name))
	}
	return text, nil
}

// invoke runs one tool call. Tool failures are reported back to the model as
// text, with ok false; only cancellation aborts the attempt.
func (a *agent) invoke(ctx context.Context, task TaskConfig, tc llm.ToolCallResponse, emit func(Event)) (string, bool, error) {
	start := time.Now()
	var (
		output string
		err    error
	)
	if !a.allowed[tc.Name] {
		err = errors.NotFound(fmt.Sprintf("tool %s is not available to %s", tc.Name, a.cfg.Name))
	} else {
		var result interface{}
		result, err = a.registry.Execute(ctx, tc.Name, tc.Args)
		if err == nil {
			output = stringify(result)
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", false, errors.Wrap(ctx.Err(), "tool "+tc.Name)
		}
		output = "Error: " + err.Error()
	}

	if a.cfg.Verbose {
		a.logger.Info("tool invoked", map[string]interface{}{"task": task.Name, "tool": tc.Name})
	}
	emit(ToolInvoked{
		Task:     task.Name,
		Agent:    a.cfg.Name,
		Name:     tc.Name,
		Args:     tc.Args,
		Output:   output,
		Err:      err,
		Duration: time.Since(start),
	})
	return output, err == nil, nil
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
