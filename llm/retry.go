package llm

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/vinayprograms/resumematch/errors"
)

const (
	defaultMaxRetries  = 5
	defaultInitBackoff = time.Second
	defaultMaxBackoff  = 60 * time.Second
	backoffFactor      = 2.0
)

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.InitBackoff <= 0 {
		c.InitBackoff = defaultInitBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaultMaxBackoff
	}
	return c
}

// withRetry runs call until it succeeds, fails with a non-retryable error, or
// the retry budget is spent. Billing errors abort immediately.
func withRetry[T any](ctx context.Context, rc RetryConfig, provider string, call func(context.Context) (T, error)) (T, error) {
	rc = rc.withDefaults()
	backoff := rc.InitBackoff

	var zero T
	for attempt := 0; ; attempt++ {
		out, err := call(ctx)
		if err == nil {
			return out, nil
		}

		switch {
		case isBillingError(err):
			return zero, errors.WrapWithCode(err, errors.ErrCodeQuotaExceeded,
				provider+" billing/payment error (fatal)", errors.WithRetryable(false))
		case !isRetryableError(err):
			return zero, errors.Wrap(err, provider+" request failed")
		case attempt == rc.MaxRetries:
			return zero, errors.WrapWithCode(err, errors.ErrCodeRateLimit,
				provider+" request failed after retries",
				errors.WithMetadata("retries", strconv.Itoa(rc.MaxRetries)))
		}

		select {
		case <-ctx.Done():
			return zero, errors.Wrap(ctx.Err(), provider+" request interrupted")
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * backoffFactor)
		if backoff > rc.MaxBackoff {
			backoff = rc.MaxBackoff
		}
	}
}

func containsAny(err error, needles ...string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, n := range needles {
		if strings.Contains(msg, n) {
			return true
		}
	}
	return false
}

func isRateLimitError(err error) bool {
	return containsAny(err, "rate limit", "too many requests", "429", "overloaded", "capacity")
}

func isServerError(err error) bool {
	return containsAny(err, "500", "502", "503", "504", "internal server error",
		"bad gateway", "service unavailable", "gateway timeout", "temporarily unavailable")
}

func isRetryableError(err error) bool {
	return isRateLimitError(err) || isServerError(err)
}

// isBillingError reports payment and quota failures, which never recover by retrying.
func isBillingError(err error) bool {
	return containsAny(err, "billing", "payment", "credits", "quota exceeded",
		"insufficient", "402", "subscription")
}
