// Package logging provides leveled console logging for pipeline runs.
// Lines are rendered as "LEVEL TIMESTAMP [component] message key=value ...".
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var logrusLevels = map[Level]logrus.Level{
	LevelDebug: logrus.DebugLevel,
	LevelInfo:  logrus.InfoLevel,
	LevelWarn:  logrus.WarnLevel,
	LevelError: logrus.ErrorLevel,
}

// ParseLevel parses a case-insensitive level name.
func ParseLevel(s string) (Level, error) {
	level := Level(strings.ToUpper(strings.TrimSpace(s)))
	if level == "WARNING" {
		level = LevelWarn
	}
	if _, ok := logrusLevels[level]; !ok {
		return "", fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

const (
	fieldComponent = "component"
	fieldTraceID   = "trace_id"
)

// Logger writes structured log lines. Loggers derived with WithComponent or
// WithTraceID share output and level with their parent.
type Logger struct {
	base  *logrus.Logger
	entry *logrus.Entry
}

// New creates a Logger writing INFO and above to stdout.
func New() *Logger {
	base := logrus.New()
	base.SetOutput(os.Stdout)
	base.SetLevel(logrus.InfoLevel)
	base.SetFormatter(&lineFormatter{})
	return &Logger{base: base, entry: logrus.NewEntry(base)}
}

// WithComponent returns a logger tagged with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{base: l.base, entry: l.entry.WithField(fieldComponent, component)}
}

// WithTraceID returns a logger tagged with the given trace ID.
func (l *Logger) WithTraceID(traceID string) *Logger {
	return &Logger{base: l.base, entry: l.entry.WithField(fieldTraceID, traceID)}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	if lv, ok := logrusLevels[level]; ok {
		l.base.SetLevel(lv)
	}
}

// SetOutput sets the output writer.
func (l *Logger) SetOutput(w io.Writer) {
	l.base.SetOutput(w)
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.with(fields).Debug(msg)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.with(fields).Info(msg)
}

// Warn logs a warning.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.with(fields).Warn(msg)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.with(fields).Error(msg)
}

func (l *Logger) with(fields []map[string]interface{}) *logrus.Entry {
	if len(fields) == 0 || fields[0] == nil {
		return l.entry
	}
	return l.entry.WithFields(logrus.Fields(fields[0]))
}

// lineFormatter renders entries as LEVEL TIMESTAMP [component] message k=v.
type lineFormatter struct{}

func (f *lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer

	level := strings.ToUpper(e.Level.String())
	if level == "WARNING" {
		level = "WARN"
	}
	fmt.Fprintf(&b, "%-5s %s ", level, e.Time.UTC().Format("2006-01-02T15:04:05.000Z"))

	if component, ok := e.Data[fieldComponent]; ok {
		fmt.Fprintf(&b, "[%v] ", component)
	}
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		if k != fieldComponent {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// --- Event helpers ---

// RunStart logs the start of a pipeline run.
func (l *Logger) RunStart(runID string, inputs map[string]string) {
	fields := map[string]interface{}{"run": runID}
	for k, v := range inputs {
		fields["input."+k] = v
	}
	l.Info("run_start", fields)
}

// RunComplete logs the end of a pipeline run.
func (l *Logger) RunComplete(duration time.Duration, status string) {
	l.Info("run_complete", map[string]interface{}{
		"duration": duration.Round(time.Millisecond).String(),
		"status":   status,
	})
}

// TaskStart logs the start of a crew task.
func (l *Logger) TaskStart(task, agent string) {
	l.Info("task_start", map[string]interface{}{
		"task":  task,
		"agent": agent,
	})
}

// TaskComplete logs the completion of a crew task.
func (l *Logger) TaskComplete(task, agent string, duration time.Duration) {
	l.Info("task_complete", map[string]interface{}{
		"task":     task,
		"agent":    agent,
		"duration": duration.Round(time.Millisecond).String(),
	})
}

// ToolCall logs a tool invocation.
func (l *Logger) ToolCall(tool string, args map[string]interface{}) {
	fields := map[string]interface{}{"tool": tool}
	for k, v := range args {
		fields["arg."+k] = truncate(fmt.Sprint(v), 80)
	}
	l.Debug("tool_call", fields)
}

// ToolResult logs the outcome of a tool invocation.
func (l *Logger) ToolResult(tool string, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"tool":     tool,
		"duration": duration.Round(time.Millisecond).String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		l.Error("tool_error", fields)
		return
	}
	l.Debug("tool_result", fields)
}

// StepNarrated logs a model answer that carried no tool call.
func (l *Logger) StepNarrated(agent, text string) {
	l.Debug("step_narrated", map[string]interface{}{
		"agent": agent,
		"text":  truncate(text, 120),
	})
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
