// Package retry runs remote operations with exponential backoff. Rate-limited failures back
// off on a steeper curve with random jitter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/at-ishikawa/wandrr/internal/failure"
	"github.com/at-ishikawa/wandrr/internal/logger"
	"github.com/at-ishikawa/wandrr/internal/metrics"
	retrygo "github.com/avast/retry-go"
)

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = time.Second
	DefaultMaxJitter   = time.Second
	DefaultDeadline    = 60 * time.Second
)

type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxJitter   time.Duration
	// Deadline bounds the whole loop including sleeps. Zero disables it.
	Deadline time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxJitter:   DefaultMaxJitter,
		Deadline:    DefaultDeadline,
	}
}

// ExhaustedError is returned when every attempt failed. It unwraps to the last attempt's error.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

type Retrier struct {
	config  Config
	log     *logger.Logger
	metrics *metrics.Recorder
	jitter  func(max time.Duration) time.Duration
}

type Option func(*Retrier)

func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Retrier) {
		r.metrics = m
	}
}

// WithJitter replaces the uniform random jitter source.
func WithJitter(f func(max time.Duration) time.Duration) Option {
	return func(r *Retrier) {
		r.jitter = f
	}
}

func New(config Config, log *logger.Logger, opts ...Option) *Retrier {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if log == nil {
		log = logger.NewNop()
	}
	r := &Retrier{
		config: config,
		log:    log,
		jitter: uniformJitter,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retrier) Config() Config {
	return r.config
}

func uniformJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max) + 1))
}

// Delay is the wait after the failed attempt (1-based). It does not include jitter.
func (r *Retrier) Delay(attempt int, kind failure.Kind) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	factor := 2.0
	if kind == failure.RateLimited {
		factor = 3.0
	}
	return time.Duration(float64(r.config.BaseDelay) * math.Pow(factor, float64(attempt-1)))
}

// Do invokes op until it succeeds, the attempts are used up, the deadline passes or ctx is
// cancelled. Attempts are sequential.
func (r *Retrier) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	if r.config.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Deadline)
		defer cancel()
	}

	var (
		attempts int
		lastErr  error
	)
	err := retrygo.Do(
		func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			attempts++
			r.log.Debug("remote operation attempt", "op", name, "attempt", attempts, "maxAttempts", r.config.MaxAttempts)
			err := op(ctx)
			if err != nil {
				lastErr = err
			}
			return err
		},
		retrygo.Context(ctx),
		retrygo.Attempts(uint(r.config.MaxAttempts)),
		retrygo.LastErrorOnly(true),
		retrygo.RetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
		retrygo.DelayType(func(n uint, err error, _ *retrygo.Config) time.Duration {
			kind := failure.Classify(err)
			delay := r.Delay(int(n)+1, kind)
			if kind == failure.RateLimited {
				delay += r.jitter(r.config.MaxJitter)
			}
			r.log.Warn("remote operation failed, backing off",
				"op", name,
				"attempt", int(n)+1,
				"kind", kind.String(),
				"delay", delay,
				"error", err)
			return delay
		}),
		retrygo.OnRetry(func(n uint, err error) {
			r.metrics.RetryAttempt(name, failure.Classify(err).String())
		}),
	)
	if err == nil {
		if attempts > 1 {
			r.log.Info("remote operation succeeded after retry", "op", name, "attempts", attempts)
		}
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if lastErr == nil || errors.Is(ctxErr, context.Canceled) {
			return fmt.Errorf("%s > %w", name, ctxErr)
		}
		return &ExhaustedError{Op: name, Attempts: attempts, Err: lastErr}
	}
	if lastErr == nil {
		lastErr = err
	}
	r.log.Error("remote operation exhausted retries", "op", name, "attempts", attempts, "error", lastErr)
	return &ExhaustedError{Op: name, Attempts: attempts, Err: lastErr}
}

// Value is Do for operations that produce a result.
func Value[T any](ctx context.Context, r *Retrier, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, name, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
