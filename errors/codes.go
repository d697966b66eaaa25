package errors

// ErrorCategory classifies errors by their retry semantics.
type ErrorCategory string

const (
	// CategoryTransient covers failures a retry may fix (timeouts, 5xx).
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent covers failures a retry will not fix (bad input, missing files).
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryResource covers quota and rate limit exhaustion.
	CategoryResource ErrorCategory = "resource"

	// CategoryInternal covers bugs and unexpected state.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable reports whether errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	return c == CategoryTransient || c == CategoryResource
}

// ErrorCode identifies a specific failure.
type ErrorCode string

const (
	// Transient
	ErrCodeTimeout     ErrorCode = "TIMEOUT"
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE"
	ErrCodeNetworkErr  ErrorCode = "NETWORK_ERR"

	// Permanent
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeUnsupported  ErrorCode = "UNSUPPORTED"
	ErrCodeCanceled     ErrorCode = "CANCELED"
	ErrCodeTaskFailed   ErrorCode = "TASK_FAILED"

	// Pipeline
	ErrCodeInputMissing   ErrorCode = "INPUT_MISSING"
	ErrCodeExtraction     ErrorCode = "EXTRACTION_FAILED"
	ErrCodeRenderFailed   ErrorCode = "RENDER_FAILED"
	ErrCodeMalformedInput ErrorCode = "MALFORMED_INPUT"

	// Resource
	ErrCodeRateLimit     ErrorCode = "RATE_LIMITED"
	ErrCodeQuotaExceeded ErrorCode = "QUOTA_EXCEEDED"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL"
	ErrCodePanic    ErrorCode = "PANIC"
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the category an error with this code gets unless
// overridden with WithCategory.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeTimeout, ErrCodeUnavailable, ErrCodeNetworkErr:
		return CategoryTransient
	case ErrCodeNotFound, ErrCodeInvalidInput, ErrCodeUnauthorized, ErrCodeUnsupported,
		ErrCodeCanceled, ErrCodeTaskFailed, ErrCodeInputMissing, ErrCodeExtraction,
		ErrCodeMalformedInput, ErrCodeRenderFailed:
		return CategoryPermanent
	case ErrCodeRateLimit, ErrCodeQuotaExceeded:
		return CategoryResource
	default:
		return CategoryInternal
	}
}

var codeDescriptions = map[ErrorCode]string{
	ErrCodeTimeout:        "operation timed out",
	ErrCodeUnavailable:    "service temporarily unavailable",
	ErrCodeNetworkErr:     "network connectivity error",
	ErrCodeNotFound:       "resource not found",
	ErrCodeInvalidInput:   "invalid input provided",
	ErrCodeUnauthorized:   "authentication required",
	ErrCodeUnsupported:    "operation not supported",
	ErrCodeCanceled:       "operation canceled",
	ErrCodeTaskFailed:     "task execution failed",
	ErrCodeInputMissing:   "input file missing or invalid",
	ErrCodeExtraction:     "no machine-readable content",
	ErrCodeRenderFailed:   "pdf rendering failed",
	ErrCodeMalformedInput: "malformed tool input",
	ErrCodeRateLimit:      "rate limit exceeded",
	ErrCodeQuotaExceeded:  "quota exceeded",
	ErrCodeInternal:       "internal error",
	ErrCodePanic:          "recovered from panic",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}
