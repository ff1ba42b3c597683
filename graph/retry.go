package graph

import (
	"context"
	"errors"
	"strings"
	"time"
)

// BackoffStrategy defines different backoff strategies
type BackoffStrategy int

const (
	FixedBackoff BackoffStrategy = iota
	ExponentialBackoff
	LinearBackoff
)

// RetryPolicy defines how to handle node failures. Graphs run without one
// unless SetRetryPolicy is called.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int

	BackoffStrategy BackoffStrategy

	// BaseDelay defaults to one second.
	BaseDelay time.Duration

	// MaxDelay caps a single backoff. It defaults to one minute, or to
	// BaseDelay when that is larger.
	MaxDelay time.Duration

	// RetryableErrors lists substrings of retryable error messages.
	RetryableErrors []string

	// Retryable, when set, decides instead of RetryableErrors.
	Retryable func(error) bool
}

func (p *RetryPolicy) attempts() int {
	if p == nil || p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

func (p *RetryPolicy) isRetryable(err error) bool {
	if p == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	msg := err.Error()
	for _, pattern := range p.RetryableErrors {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

const defaultMaxDelay = time.Minute

func (p *RetryPolicy) backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	limit := p.MaxDelay
	if limit <= 0 {
		limit = defaultMaxDelay
	}
	limit = max(limit, base)
	attempt = max(attempt, 0)

	switch p.BackoffStrategy {
	case ExponentialBackoff:
		// 1x, 2x, 4x, ... up to limit
		d := base
		for i := 0; i < attempt && d < limit; i++ {
			if d > limit/2 {
				return limit
			}
			d *= 2
		}
		return min(d, limit)
	case LinearBackoff:
		// 1x, 2x, 3x, ...
		if int64(attempt) >= int64(limit/base) {
			return limit
		}
		return min(base*time.Duration(attempt+1), limit)
	default:
		return base
	}
}

// runWithRetry calls fn until it succeeds, the policy gives up or ctx is done.
func runWithRetry[S any](ctx context.Context, policy *RetryPolicy, fn func() (S, error)) (S, error) {
	var zero S
	var lastErr error

	attempts := policy.attempts()
	for attempt := 0; attempt < attempts; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}
		lastErr = err

		if attempt == attempts-1 || !policy.isRetryable(err) {
			break
		}

		select {
		case <-time.After(policy.backoff(attempt)):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}
