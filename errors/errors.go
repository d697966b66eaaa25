package errors

import (
	"fmt"
	"time"
)

// Error is a structured error with a code, a category and an optional cause.
type Error struct {
	code      ErrorCode
	category  ErrorCategory
	message   string
	cause     error
	metadata  map[string]string
	retryable *bool // nil: derived from category
	timestamp time.Time
	agent     string
	task      string
}

// Error returns the message, followed by the cause when there is one.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Message returns the message without the cause.
func (e *Error) Message() string {
	return e.message
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Category returns the error category.
func (e *Error) Category() ErrorCategory {
	return e.category
}

// Retryable reports whether the failed operation may succeed on retry.
func (e *Error) Retryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	return e.category.IsRetryable()
}

// Metadata returns a copy of the error metadata. Never nil.
func (e *Error) Metadata() map[string]string {
	out := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		out[k] = v
	}
	return out
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Timestamp returns when the error was created.
func (e *Error) Timestamp() time.Time {
	return e.timestamp
}

// Agent returns the agent role the error originated from, if set.
func (e *Error) Agent() string {
	return e.agent
}

// Task returns the task name the error relates to, if set.
func (e *Error) Task() string {
	return e.task
}

// Option configures an Error.
type Option func(*Error)

// WithCategory overrides the default category.
func WithCategory(cat ErrorCategory) Option {
	return func(e *Error) {
		e.category = cat
	}
}

// WithRetryable explicitly sets whether the error is retryable.
func WithRetryable(retryable bool) Option {
	return func(e *Error) {
		e.retryable = &retryable
	}
}

// WithMetadata adds a metadata key-value pair.
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// WithAgent records the agent role.
func WithAgent(role string) Option {
	return func(e *Error) {
		e.agent = role
	}
}

// WithTask records the task name.
func WithTask(name string) Option {
	return func(e *Error) {
		e.task = name
	}
}

// WithCause sets the underlying cause.
func WithCause(cause error) Option {
	return func(e *Error) {
		e.cause = cause
	}
}

// New creates an Error with the given code and message.
func New(code ErrorCode, message string, opts ...Option) *Error {
	e := &Error{
		code:      code,
		category:  code.DefaultCategory(),
		message:   message,
		timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Newf creates an Error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// FromCode creates an error using the code's default description.
func FromCode(code ErrorCode, opts ...Option) *Error {
	return New(code, code.Description(), opts...)
}

// NotFound creates a not found error.
func NotFound(message string, opts ...Option) *Error {
	return New(ErrCodeNotFound, message, opts...)
}

// InvalidInput creates an invalid input error.
func InvalidInput(message string, opts ...Option) *Error {
	return New(ErrCodeInvalidInput, message, opts...)
}

// Internal creates an internal error.
func Internal(message string, opts ...Option) *Error {
	return New(ErrCodeInternal, message, opts...)
}

// InputMissing creates an input-missing error.
func InputMissing(message string, opts ...Option) *Error {
	return New(ErrCodeInputMissing, message, opts...)
}

// ExtractionFailed creates an extraction failure.
func ExtractionFailed(message string, opts ...Option) *Error {
	return New(ErrCodeExtraction, message, opts...)
}

// MalformedInput creates a malformed tool input error.
func MalformedInput(message string, opts ...Option) *Error {
	return New(ErrCodeMalformedInput, message, opts...)
}

// TaskFailed creates a task failure for the named task.
func TaskFailed(task, reason string, opts ...Option) *Error {
	opts = append([]Option{WithTask(task)}, opts...)
	return New(ErrCodeTaskFailed, fmt.Sprintf("task %s failed: %s", task, reason), opts...)
}
