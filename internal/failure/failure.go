// Package failure defines the closed set of failure kinds produced at the remote store
// boundary and the mapping from errors to those kinds.
package failure

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	Unclassified Kind = iota
	RateLimited
	TransientStoreError
	NotFound
)

func (k Kind) String() string {
	switch k {
	case RateLimited:
		return "rate_limited"
	case TransientStoreError:
		return "transient_store_error"
	case NotFound:
		return "not_found"
	default:
		return "unclassified"
	}
}

// ErrNotFound reports a lookup that matched zero records.
var ErrNotFound = errors.New("no matching record")

// Error is the typed error every store adapter returns. Everything above the adapter
// only inspects Kind.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with an explicit kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Classify maps an error to its kind. It never inspects message text: untyped errors are
// Unclassified, and the message vocabulary is applied only by adapters via FromMessage.
func Classify(err error) Kind {
	if err == nil {
		return Unclassified
	}
	if errors.Is(err, ErrNotFound) {
		return NotFound
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return TransientStoreError
	}
	return Unclassified
}

var (
	rateLimitedMarkers = []string{
		"Capacity temporarily exceeded",
		"rate limit",
		"3040",
	}
	transientMarkers = []string{
		"9002",
		"unknown internal error",
		"connection",
		"timeout",
		"Search service is temporarily unavailable",
	}
)

// KindOfMessage applies the store's message vocabulary. Matching is case-sensitive.
func KindOfMessage(msg string) Kind {
	for _, m := range rateLimitedMarkers {
		if strings.Contains(msg, m) {
			return RateLimited
		}
	}
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return TransientStoreError
		}
	}
	return Unclassified
}

// FromMessage converts a raw store error message into a typed Error.
func FromMessage(op, msg string) *Error {
	return &Error{Kind: KindOfMessage(msg), Op: op, Message: msg}
}
