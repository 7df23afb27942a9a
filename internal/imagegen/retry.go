package imagegen

import (
	"errors"
	"time"
)

var (
	// ErrRateLimited is wrapped by providers when the upstream answered 429.
	ErrRateLimited = errors.New("imagegen: rate limited")
	// ErrNotConfigured means no configured provider can serve the requested mode.
	ErrNotConfigured = errors.New("imagegen: no image provider configured")
)

// RetryPolicy decides how often a single provider is called for one slot.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	IsRetryable func(error) bool
}

// DefaultRetryPolicy retries once, after 2s, and only when rate limited.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 2,
		Backoff:     2 * time.Second,
		IsRetryable: IsRateLimited,
	}
}

// IsRateLimited reports whether err wraps ErrRateLimited.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) retryable(err error) bool {
	if p.IsRetryable == nil {
		return IsRateLimited(err)
	}
	return p.IsRetryable(err)
}
