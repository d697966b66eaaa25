package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrClosed          = errors.New("limiter closed")
	ErrResourceUnknown = errors.New("unknown resource")
)

// RateLimiter throttles requests per resource.
type RateLimiter interface {
	// Acquire blocks until a token is available for the resource or ctx ends.
	Acquire(ctx context.Context, resource string) error
	// TryAcquire takes a token without blocking.
	TryAcquire(resource string) bool
	// SetCapacity allows capacity requests per window. A non-positive
	// capacity or window removes the limit.
	SetCapacity(resource string, capacity int, window time.Duration)
	// GetCapacity returns the current state, or nil for unknown resources.
	GetCapacity(resource string) *Capacity
	Close() error
}

// Capacity describes the limit configured for a resource.
type Capacity struct {
	Resource  string
	Available int
	Total     int
	Window    time.Duration
}

type bucket struct {
	lim      *rate.Limiter
	capacity int
	window   time.Duration
}

// Limiter is an in-process RateLimiter. Tokens refill evenly across the
// window and the bucket starts full. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	closed  bool
}

var _ RateLimiter = (*Limiter)(nil)

// NewLimiter creates an empty limiter.
func NewLimiter() *Limiter {
	return &Limiter{buckets: make(map[string]*bucket)}
}

// SetCapacity configures the limit for a resource.
func (l *Limiter) SetCapacity(resource string, capacity int, window time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if capacity <= 0 || window <= 0 {
		delete(l.buckets, resource)
		return
	}

	every := rate.Every(window / time.Duration(capacity))
	if b, ok := l.buckets[resource]; ok {
		b.lim.SetLimit(every)
		b.lim.SetBurst(capacity)
		b.capacity = capacity
		b.window = window
		return
	}
	l.buckets[resource] = &bucket{
		lim:      rate.NewLimiter(every, capacity),
		capacity: capacity,
		window:   window,
	}
}

func (l *Limiter) bucket(resource string) (*bucket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}
	b, ok := l.buckets[resource]
	if !ok {
		return nil, ErrResourceUnknown
	}
	return b, nil
}

// Acquire blocks until a token is available.
func (l *Limiter) Acquire(ctx context.Context, resource string) error {
	b, err := l.bucket(resource)
	if err != nil {
		return err
	}
	return b.lim.Wait(ctx)
}

// TryAcquire takes a token if one is available right now.
func (l *Limiter) TryAcquire(resource string) bool {
	b, err := l.bucket(resource)
	if err != nil {
		return false
	}
	return b.lim.Allow()
}

// GetCapacity returns the limit state for a resource.
func (l *Limiter) GetCapacity(resource string) *Capacity {
	b, err := l.bucket(resource)
	if err != nil {
		return nil
	}
	return &Capacity{
		Resource:  resource,
		Available: int(b.lim.Tokens()),
		Total:     b.capacity,
		Window:    b.window,
	}
}

// Close drops all buckets. Later calls fail with ErrClosed.
func (l *Limiter) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.buckets = nil
	return nil
}
