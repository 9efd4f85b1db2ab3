package governance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net"
	"strings"
	"time"
)

// ErrMaxRetriesExceeded is returned when all retry attempts have been exhausted.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// RetryConfig defines how a polling loop backs off after transient errors.
type RetryConfig struct {
	// MaxRetries is the maximum number of consecutive retries (0 = unlimited).
	MaxRetries int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff is the maximum delay between retries.
	MaxBackoff time.Duration
	// BackoffMultiplier is the factor by which backoff increases.
	BackoffMultiplier float64
	// Jitter adds up to 25% of randomness to each delay.
	Jitter bool
}

// DefaultRetryConfig sleeps a flat 60 seconds after every transient error,
// forever.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialBackoff:    60 * time.Second,
		MaxBackoff:        60 * time.Second,
		BackoffMultiplier: 1.0,
	}
}

// RetryPolicy determines whether and when a failed poll is retried.
type RetryPolicy struct {
	config      RetryConfig
	isTransient func(error) bool
}

// NewRetryPolicy creates a retry policy. A nil classifier uses
// IsRetryableError.
func NewRetryPolicy(config RetryConfig, isTransient func(error) bool) *RetryPolicy {
	defaults := DefaultRetryConfig()
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = defaults.InitialBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = defaults.MaxBackoff
	}
	if config.MaxBackoff < config.InitialBackoff {
		config.MaxBackoff = config.InitialBackoff
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = defaults.BackoffMultiplier
	}
	if isTransient == nil {
		isTransient = IsRetryableError
	}

	return &RetryPolicy{config: config, isTransient: isTransient}
}

// Config returns a copy of the current retry configuration.
func (rp *RetryPolicy) Config() RetryConfig {
	return rp.config
}

// ShouldRetry reports whether err after attempt consecutive failures is
// worth another poll.
func (rp *RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil || !rp.isTransient(err) {
		return false
	}
	return rp.config.MaxRetries == 0 || attempt < rp.config.MaxRetries
}

// CalculateBackoff returns the delay before the next retry attempt.
func (rp *RetryPolicy) CalculateBackoff(attempt int) time.Duration {
	backoff := time.Duration(float64(rp.config.InitialBackoff) * math.Pow(rp.config.BackoffMultiplier, float64(attempt)))

	if backoff > rp.config.MaxBackoff || backoff <= 0 {
		backoff = rp.config.MaxBackoff
	}

	if rp.config.Jitter && backoff >= 4 {
		// #nosec G404 - Non-cryptographic random is acceptable for jitter
		backoff += time.Duration(rand.Int64N(int64(backoff / 4)))
	}

	return backoff
}

// Wait sleeps for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Exhausted wraps the last transient error once retries run out.
func Exhausted(err error) error {
	return fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, err)
}

// IsRetryableError reports whether err looks like a transient network
// failure talking to the platform.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"timeout",
		"temporary failure",
		"service unavailable",
		"too many requests",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
