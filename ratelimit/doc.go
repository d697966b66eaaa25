// Package ratelimit throttles requests per named resource.
//
// The crew registers one resource per agent role with the agent's
// requests-per-minute budget and acquires a token before every model call:
//
//	limiter := ratelimit.NewLimiter()
//	limiter.SetCapacity("resume_analyst", 10, time.Minute)
//	if err := limiter.Acquire(ctx, "resume_analyst"); err != nil {
//	    return err
//	}
package ratelimit
