// Package resilience provides the retry and circuit-breaking wrappers the
// Dispatch Worker (C7) and Scheduler (C6) apply to outbound SPI calls, per
// spec.md §7's capped exponential backoff requirement.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
)

// RetryConfig holds exponential-backoff retry behavior.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64
}

// DefaultRetryConfig matches spec.md §7's capped exponential backoff: a
// handful of attempts, seconds-scale initial delay, minutes-scale cap.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 2 * time.Second,
		MaxDelay:     2 * time.Minute,
		Multiplier:   2.0,
		Jitter:       0.2,
	}
}

// RetryError wraps the last failure of a retry loop that gave up, either
// after MaxAttempts or on a non-retryable error.
type RetryError struct {
	Attempts int
	LastErr  error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *RetryError) Unwrap() error { return e.LastErr }

// Retryer retries a dispatch-path call, stopping early on a non-retryable
// domain.DispatchError (per §4.7 step 8's retryable/non-retryable split).
type Retryer struct {
	config RetryConfig
	rand   *rand.Rand
}

// NewRetryer creates a Retryer from config.
func NewRetryer(config RetryConfig) *Retryer {
	return &Retryer{config: config, rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Do runs fn, retrying on retryable failures until MaxAttempts is reached or
// fn succeeds.
func (r *Retryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	attempts := 0
	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(ctx)
		attempts++
		if err == nil {
			return nil
		}
		lastErr = err

		if !shouldRetry(err) || attempt == r.config.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.calculateDelay(attempt)):
		}
	}
	return &RetryError{Attempts: attempts, LastErr: lastErr}
}

// shouldRetry consults domain.DispatchError.Retryable when the failure
// carries one; any other error is retried, matching the conservative
// default the teacher's retryer used for unclassified errors.
func shouldRetry(err error) bool {
	var dispatchErr *domain.DispatchError
	if errors.As(err, &dispatchErr) {
		return dispatchErr.Retryable()
	}
	return true
}

func (r *Retryer) calculateDelay(attempt int) time.Duration {
	delay := float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt))
	if r.config.Jitter > 0 {
		span := delay * r.config.Jitter
		delay += (r.rand.Float64() * 2 * span) - span
	}
	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}
	if delay < 0 {
		delay = float64(r.config.InitialDelay)
	}
	return time.Duration(delay)
}
