// Package shutdown runs cleanup handlers in phase order when a run ends or
// the process receives SIGINT or SIGTERM.
//
// Lower phases run first. A typical run registers:
//
//	coord := shutdown.New(logger, 10*time.Second)
//	ctx, stop := coord.WatchSignals(context.Background())
//	defer stop()
//	coord.Register("memory", shutdown.PhaseStorage, store.Close)
//	coord.Register("telemetry", shutdown.PhaseTelemetry, provider.Shutdown)
//	...
//	result := coord.Shutdown(context.Background())
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/vinayprograms/resumematch/logging"
)

// Standard phases.
const (
	PhaseWork      = 10
	PhaseStorage   = 20
	PhaseTelemetry = 30
)

// ErrTimeout indicates handlers did not finish before the deadline.
var ErrTimeout = errors.New("shutdown timeout exceeded")

// ErrHandlerFailed indicates one or more handlers returned an error.
var ErrHandlerFailed = errors.New("one or more shutdown handlers failed")

// HandlerFunc releases one resource.
type HandlerFunc func(ctx context.Context) error

// HandlerResult is the outcome of one handler.
type HandlerResult struct {
	Name     string
	Phase    int
	Duration time.Duration
	Err      error
}

// Result is the outcome of a shutdown.
type Result struct {
	Interrupted   bool
	TotalDuration time.Duration
	Results       []HandlerResult
	Err           error
}

// FailedHandlers returns the names of handlers that failed.
func (r *Result) FailedHandlers() []string {
	var failed []string
	for _, hr := range r.Results {
		if hr.Err != nil {
			failed = append(failed, hr.Name)
		}
	}
	return failed
}

type registration struct {
	name  string
	phase int
	seq   int
	fn    HandlerFunc
}

// Coordinator collects handlers and runs them once.
type Coordinator struct {
	logger  *logging.Logger
	timeout time.Duration

	mu          sync.Mutex
	handlers    []registration
	once        sync.Once
	result      *Result
	interrupted bool
	signals     chan os.Signal
}

// New creates a coordinator. A zero timeout means 30 seconds.
func New(logger *logging.Logger, timeout time.Duration) *Coordinator {
	if logger == nil {
		logger = logging.New()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Coordinator{
		logger:  logger.WithComponent("shutdown"),
		timeout: timeout,
		signals: make(chan os.Signal, 1),
	}
}

// Register adds a handler. Handlers in the same phase run in registration order.
func (c *Coordinator) Register(name string, phase int, fn HandlerFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, registration{name: name, phase: phase, seq: len(c.handlers), fn: fn})
}

// WatchSignals returns a context cancelled on SIGINT or SIGTERM. The stop
// function releases the signal subscription.
func (c *Coordinator) WatchSignals(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	signal.Notify(c.signals, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-c.signals:
			c.mu.Lock()
			c.interrupted = true
			c.mu.Unlock()
			c.logger.Warn("signal received", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-done:
		}
	}()

	var stopOnce sync.Once
	return ctx, func() {
		stopOnce.Do(func() {
			signal.Stop(c.signals)
			close(done)
			cancel()
		})
	}
}

// Interrupted reports whether a signal was received.
func (c *Coordinator) Interrupted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interrupted
}

// Trigger simulates SIGINT. Used by tests.
func (c *Coordinator) Trigger() {
	select {
	case c.signals <- syscall.SIGINT:
	default:
	}
}

// Shutdown runs every handler once, lowest phase first. Handler failures do
// not stop later handlers. Repeated calls return the first result.
func (c *Coordinator) Shutdown(ctx context.Context) *Result {
	c.once.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		c.result = c.run(ctx)
	})
	return c.result
}

func (c *Coordinator) run(ctx context.Context) *Result {
	start := time.Now()

	c.mu.Lock()
	handlers := make([]registration, len(c.handlers))
	copy(handlers, c.handlers)
	result := &Result{Interrupted: c.interrupted}
	c.mu.Unlock()

	sort.SliceStable(handlers, func(i, j int) bool {
		if handlers[i].phase != handlers[j].phase {
			return handlers[i].phase < handlers[j].phase
		}
		return handlers[i].seq < handlers[j].seq
	})

	for _, h := range handlers {
		if ctx.Err() != nil {
			result.Err = ErrTimeout
			break
		}
		hstart := time.Now()
		err := h.fn(ctx)
		hr := HandlerResult{Name: h.name, Phase: h.phase, Duration: time.Since(hstart), Err: err}
		result.Results = append(result.Results, hr)

		if err != nil {
			c.logger.Error("shutdown handler failed", map[string]interface{}{"handler": h.name, "error": err.Error()})
			if result.Err == nil {
				result.Err = ErrHandlerFailed
			}
			continue
		}
		c.logger.Debug("shutdown handler done", map[string]interface{}{
			"handler":  h.name,
			"duration": hr.Duration.Round(time.Millisecond).String(),
		})
	}

	result.TotalDuration = time.Since(start)
	return result
}
