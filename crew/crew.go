// Package crew runs a sequence of tasks, each handled by an LLM agent bound
// to a subset of tools. Every task sees the outputs of the tasks before it.
package crew

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vinayprograms/resumematch/errors"
	"github.com/vinayprograms/resumematch/llm"
	"github.com/vinayprograms/resumematch/logging"
	"github.com/vinayprograms/resumematch/memory"
	"github.com/vinayprograms/resumematch/ratelimit"
	"github.com/vinayprograms/resumematch/security"
	"github.com/vinayprograms/resumematch/telemetry"
	"github.com/vinayprograms/resumematch/tools"
)

// CallbackAnnounce is the built-in callback that logs task completion.
const CallbackAnnounce = "announce"

// recallLimit is the number of notes added to a task prompt.
const recallLimit = 3

// TaskOutput is the result of one completed task.
type TaskOutput struct {
	Name        string
	Description string
	Agent       string
	Raw         string
	OutputFile  string
	Attempts    int
	Duration    time.Duration
}

// Output is the result of a crew run.
type Output struct {
	Tasks []TaskOutput
}

// Raw returns the final task's answer.
func (o *Output) Raw() string {
	if len(o.Tasks) == 0 {
		return ""
	}
	return o.Tasks[len(o.Tasks)-1].Raw
}

// TaskCallback is called after a task completes.
type TaskCallback func(TaskOutput)

// Crew runs tasks in order.
type Crew struct {
	defs      *Definitions
	provider  llm.Provider
	registry  *tools.Registry
	limiter   ratelimit.RateLimiter
	guard     *security.Guard
	notes     *memory.NoteStore
	logger    *logging.Logger
	outputDir string
	maxTokens int
	handlers  []EventHandler
	callbacks map[string]TaskCallback
	agents    map[string]*agent
}

// Option configures a Crew.
type Option func(*Crew)

// WithEventHandler subscribes h to tool and narration events.
func WithEventHandler(h EventHandler) Option {
	return func(c *Crew) {
		c.handlers = append(c.handlers, h)
	}
}

// WithMemory enables note recall and indexing through store.
func WithMemory(store *memory.NoteStore) Option {
	return func(c *Crew) {
		c.notes = store
	}
}

// WithOutputDir sets where task report files are written.
func WithOutputDir(dir string) Option {
	return func(c *Crew) {
		c.outputDir = dir
	}
}

// WithLimiter replaces the per-agent request limiter.
func WithLimiter(l ratelimit.RateLimiter) Option {
	return func(c *Crew) {
		c.limiter = l
	}
}

// WithGuard frames tool output as untrusted data and scans it for planted
// instructions.
func WithGuard(g *security.Guard) Option {
	return func(c *Crew) {
		c.guard = g
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Crew) {
		c.logger = l
	}
}

// WithMaxTokens caps the tokens per model answer.
func WithMaxTokens(n int) Option {
	return func(c *Crew) {
		c.maxTokens = n
	}
}

// WithCallback registers a named callback tasks can refer to.
func WithCallback(name string, cb TaskCallback) Option {
	return func(c *Crew) {
		c.callbacks[name] = cb
	}
}

// New builds a crew. Every task callback must be registered.
func New(defs *Definitions, provider llm.Provider, registry *tools.Registry, opts ...Option) (*Crew, error) {
	if err := defs.Validate(); err != nil {
		return nil, err
	}

	c := &Crew{
		defs:      defs,
		provider:  provider,
		registry:  registry,
		limiter:   ratelimit.NewLimiter(),
		logger:    logging.New(),
		outputDir: "output",
		callbacks: make(map[string]TaskCallback),
		agents:    make(map[string]*agent),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("crew")
	if _, ok := c.callbacks[CallbackAnnounce]; !ok {
		c.callbacks[CallbackAnnounce] = c.announce
	}

	for _, t := range defs.Tasks {
		if t.Callback != "" {
			if _, ok := c.callbacks[t.Callback]; !ok {
				return nil, errors.InvalidInput(fmt.Sprintf("task %s: unknown callback %q", t.Name, t.Callback))
			}
		}
	}
	for name, cfg := range defs.Agents {
		c.agents[name] = newAgent(cfg, provider, registry, c.limiter, c.guard, c.logger, c.maxTokens)
	}
	return c, nil
}

func (c *Crew) announce(out TaskOutput) {
	c.logger.Info("task completed", map[string]interface{}{
		"task":  out.Description,
		"agent": out.Agent,
	})
}

func (c *Crew) emit(ev Event) {
	for _, h := range c.handlers {
		h(ev)
	}
}

// Kickoff runs every task in order. inputs fill the {name} placeholders of
// task descriptions. The first task that exhausts its retries aborts the run.
func (c *Crew) Kickoff(ctx context.Context, inputs map[string]string) (*Output, error) {
	out := &Output{}
	var previous []TaskOutput

	for _, task := range c.defs.Tasks {
		if err := ctx.Err(); err != nil {
			return out, errors.Wrap(err, "crew run interrupted", errors.WithTask(task.Name))
		}

		task.Description = Interpolate(task.Description, inputs)
		task.ExpectedOutput = Interpolate(task.ExpectedOutput, inputs)

		result, err := c.runTask(ctx, task, previous)
		if err != nil {
			return out, err
		}
		out.Tasks = append(out.Tasks, *result)
		previous = append(previous, *result)
	}
	return out, nil
}

func (c *Crew) runTask(ctx context.Context, task TaskConfig, previous []TaskOutput) (*TaskOutput, error) {
	a := c.agents[task.Agent]
	start := time.Now()

	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartTaskSpan(ctx, task.Name, task.Agent)

	c.logger.TaskStart(task.Name, task.Agent)
	prompt := c.buildPrompt(ctx, task, previous)

	var (
		answer   string
		err      error
		attempts int
	)
	for attempts = 1; attempts <= a.cfg.MaxRetryLimit+1; attempts++ {
		answer, err = a.run(ctx, task, prompt, c.emit)
		if err == nil {
			break
		}
		if ctx.Err() != nil || errors.Is(err, errors.ErrCodeQuotaExceeded) {
			break
		}
		c.logger.Warn("task attempt failed", map[string]interface{}{
			"task":    task.Name,
			"attempt": attempts,
			"error":   err.Error(),
		})
	}
	if err != nil {
		if attempts > a.cfg.MaxRetryLimit+1 {
			attempts = a.cfg.MaxRetryLimit + 1
		}
		tracer.EndTaskSpan(span, attempts, err)
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "task "+task.Name+" interrupted", errors.WithTask(task.Name), errors.WithAgent(task.Agent))
		}
		return nil, errors.TaskFailed(task.Name, fmt.Sprintf("gave up after %d attempts", attempts),
			errors.WithAgent(task.Agent), errors.WithCause(err))
	}

	result := &TaskOutput{
		Name:        task.Name,
		Description: task.Description,
		Agent:       task.Agent,
		Raw:         answer,
		Attempts:    attempts,
		Duration:    time.Since(start),
	}

	if task.OutputFile != "" {
		path, werr := c.writeReport(task.OutputFile, answer)
		if werr != nil {
			tracer.EndTaskSpan(span, attempts, werr)
			return nil, werr
		}
		result.OutputFile = path
	}
	c.remember(ctx, task, answer)

	if task.Callback != "" {
		c.callbacks[task.Callback](*result)
	}

	c.logger.TaskComplete(task.Name, task.Agent, result.Duration)
	tracer.EndTaskSpan(span, attempts, nil)
	return result, nil
}

func (c *Crew) buildPrompt(ctx context.Context, task TaskConfig, previous []TaskOutput) string {
	var b strings.Builder
	b.WriteString(task.Description)
	b.WriteString("\n")
	if task.ExpectedOutput != "" {
		fmt.Fprintf(&b, "\nThis is the expected criteria for your final answer: %s\n", task.ExpectedOutput)
	}

	if len(previous) > 0 {
		b.WriteString("\nThis is the context you're working with:\n")
		for _, p := range previous {
			fmt.Fprintf(&b, "\n## %s (%s)\n%s\n", p.Name, p.Agent, p.Raw)
		}
	}

	if notes := c.recall(ctx, task); len(notes) > 0 {
		b.WriteString("\nNotes from earlier runs:\n")
		for _, n := range notes {
			fmt.Fprintf(&b, "- [%s] %s\n", n.Task, oneLine(n.Content, 300))
		}
	}
	return b.String()
}

func (c *Crew) recall(ctx context.Context, task TaskConfig) []memory.Note {
	if c.notes == nil {
		return nil
	}
	notes, err := c.notes.Recall(ctx, task.Description, recallLimit)
	if err != nil {
		c.logger.Warn("memory recall failed", map[string]interface{}{"task": task.Name, "error": err.Error()})
		return nil
	}
	return notes
}

func (c *Crew) remember(ctx context.Context, task TaskConfig, answer string) {
	if c.notes == nil {
		return
	}
	if _, err := c.notes.Remember(ctx, task.Name, task.Agent, answer); err != nil {
		c.logger.Warn("memory index failed", map[string]interface{}{"task": task.Name, "error": err.Error()})
	}
}

func (c *Crew) writeReport(name, content string) (string, error) {
	path := filepath.Join(c.outputDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", errors.Wrap(err, "failed to create report directory")
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", errors.Wrap(err, "failed to write report "+path)
	}
	c.logger.Debug("report written", map[string]interface{}{"path": path, "bytes": len(content)})
	return path, nil
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
