// Package resilience provides fault-tolerance patterns:
// retry with exponential backoff, circuit breaker, and bulkhead.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Config holds resilience parameters.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int
}

// retryable is implemented by errors that know whether a retry can help,
// e.g. upstream 4xx responses.
type retryable interface {
	Retryable() bool
}

// IsRetryable reports whether err is worth another attempt.
// Context errors and errors that declare themselves permanent are not.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

// RetryWithBackoff executes fn with exponential backoff + jitter.
// It respects context cancellation and stops early on non-retryable errors.
func RetryWithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}

		if attempt < cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(cfg.InitialBackoff, attempt)):
			}
		}
	}
	return lastErr
}

func backoff(initial time.Duration, attempt int) time.Duration {
	wait := time.Duration(math.Pow(2, float64(attempt))) * initial
	if half := int64(wait / 2); half > 0 {
		wait += time.Duration(rand.Int63n(half))
	}
	return wait
}

// NewCircuitBreaker creates a circuit breaker with sensible defaults.
// State transitions are logged so an open breaker is visible in the logs.
// 4xx answers mean the breaker's target is healthy; 5xx and transport
// errors count as failures.
func NewCircuitBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(breakerSettings(name, logger, func(err error) bool {
		return err == nil || !IsRetryable(err)
	}))
}

// NewTransportCircuitBreaker creates a breaker that only trips on transport
// failures. Any HTTP status the upstream answered with counts as success, so
// one bad resource cannot open the circuit for its healthy siblings.
func NewTransportCircuitBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(breakerSettings(name, logger, func(err error) bool {
		return err == nil || !IsRetryable(err) || answered(err)
	}))
}

func breakerSettings(name string, logger *zap.Logger, isSuccessful func(error) bool) gobreaker.Settings {
	return gobreaker.Settings{
		Name:         name,
		MaxRequests:  3,                // half-open: allow 3 requests
		Interval:     30 * time.Second, // closed: reset counters every 30s
		Timeout:      10 * time.Second, // open -> half-open after 10s
		IsSuccessful: isSuccessful,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
}

// answered reports whether err carries an upstream response status.
func answered(err error) bool {
	var r retryable
	return errors.As(err, &r)
}

// IsOpen reports whether err was produced by a breaker refusing the call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// Bulkhead limits concurrent access to a resource.
type Bulkhead struct {
	sem chan struct{}
}

// NewBulkhead creates a bulkhead with the given max concurrency.
// A non-positive value means a single slot.
func NewBulkhead(maxConcurrency int) *Bulkhead {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Bulkhead{sem: make(chan struct{}, maxConcurrency)}
}

// Acquire blocks until a slot is available or context is cancelled.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot.
func (b *Bulkhead) Release() {
	<-b.sem
}
