// Package degrade decides what happens after a remote operation fails: fail hard or switch
// the session to local-only operation.
package degrade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/at-ishikawa/wandrr/internal/failure"
	"github.com/at-ishikawa/wandrr/internal/logger"
	"github.com/at-ishikawa/wandrr/internal/metrics"
	"github.com/at-ishikawa/wandrr/internal/retry"
)

type Operation string

const (
	OpLogin          Operation = "login"
	OpSignup         Operation = "signup"
	OpFetchUser      Operation = "fetch-user"
	OpSubmitAnswer   Operation = "submit-answer"
	OpFetchLesson    Operation = "fetch-lesson"
	OpGenerateLesson Operation = "generate-lesson"
	OpLeaderboard    Operation = "leaderboard"
)

type State int

const (
	Attempting State = iota
	Succeeded
	FailedHard
	DegradedLocal
)

func (s State) String() string {
	switch s {
	case Attempting:
		return "attempting"
	case Succeeded:
		return "succeeded"
	case DegradedLocal:
		return "degraded_local"
	default:
		return "failed_hard"
	}
}

// RetryAfter is the hint returned to clients when the store is rate limiting.
const RetryAfter = 30 * time.Second

// Decide maps the kind of the final failure to the terminal state for op.
func Decide(op Operation, kind failure.Kind) State {
	if kind != failure.TransientStoreError {
		return FailedHard
	}
	switch op {
	case OpLogin, OpSignup:
		return DegradedLocal
	default:
		return FailedHard
	}
}

// Failure is the terminal error of a policy run.
type Failure struct {
	Op       Operation
	State    State
	Kind     failure.Kind
	Attempts int
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s %s (%s): %v", f.Op, f.State, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// RetryAfter is non-zero only for rate-limited failures.
func (f *Failure) RetryAfter() time.Duration {
	if f.Kind == failure.RateLimited {
		return RetryAfter
	}
	return 0
}

// StateOf returns the terminal state carried by err, Succeeded for nil and FailedHard for
// errors that did not come out of a policy run.
func StateOf(err error) State {
	if err == nil {
		return Succeeded
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.State
	}
	return FailedHard
}

// ShouldDegrade reports whether err ended in DegradedLocal.
func ShouldDegrade(err error) bool {
	return StateOf(err) == DegradedLocal
}

// OptimisticSignup reports whether a failed uniqueness pre-check during signup resolves to
// an unverified success. The new account may already exist remotely.
func OptimisticSignup(err error) bool {
	var f *Failure
	return errors.As(err, &f) && f.Op == OpSignup && f.State == DegradedLocal
}

type Policy struct {
	retrier *retry.Retrier
	log     *logger.Logger
	metrics *metrics.Recorder
}

func NewPolicy(retrier *retry.Retrier, log *logger.Logger, m *metrics.Recorder) *Policy {
	if log == nil {
		log = logger.NewNop()
	}
	return &Policy{retrier: retrier, log: log, metrics: m}
}

// Run retries fn under the backoff retrier and converts a final failure into *Failure.
// name identifies the underlying remote call in logs.
func (p *Policy) Run(ctx context.Context, op Operation, name string, fn func(ctx context.Context) error) error {
	err := p.retrier.Do(ctx, name, fn)
	if err == nil {
		p.metrics.PolicyOutcome(string(op), Succeeded.String())
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	kind := failure.Classify(err)
	attempts := 0
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		attempts = exhausted.Attempts
	}
	state := Decide(op, kind)
	p.metrics.PolicyOutcome(string(op), state.String())
	p.log.Warn("remote operation gave up",
		"operation", string(op),
		"call", name,
		"kind", kind.String(),
		"state", state.String(),
		"attempts", attempts)

	return &Failure{Op: op, State: state, Kind: kind, Attempts: attempts, Err: err}
}

// Value is Run for operations that produce a result.
func Value[T any](ctx context.Context, p *Policy, op Operation, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := p.Run(ctx, op, name, func(ctx context.Context) error {
		v, err := fn(ctx)
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
