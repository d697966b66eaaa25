package crew

import (
	"regexp"
	"time"
)

// Event is emitted by the task loop. It is one of ToolInvoked or StepNarrated.
type Event interface {
	event()
}

// ToolInvoked reports a tool call the agent made, with its output.
type ToolInvoked struct {
	Task     string
	Agent    string
	Name     string
	Args     map[string]interface{}
	Output   string
	Err      error
	Duration time.Duration
}

// StepNarrated reports a model answer that carried no tool call.
type StepNarrated struct {
	Task  string
	Agent string
	Text  string
	// MimicsToolCall is set when the text reads like a tool call that was
	// described instead of invoked.
	MimicsToolCall bool
}

func (ToolInvoked) event()  {}
func (StepNarrated) event() {}

// EventHandler receives crew events synchronously.
type EventHandler func(Event)

var narratedAction = regexp.MustCompile(`(?m)^\s*Action( Input)?:`)

// mimicsToolCall reports whether text contains "Action:" lines.
func mimicsToolCall(text string) bool {
	return narratedAction.MatchString(text)
}
