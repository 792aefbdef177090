package failure

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfMessage(t *testing.T) {
	tests := []struct {
		msg  string
		want Kind
	}{
		{msg: "Capacity temporarily exceeded, please retry", want: RateLimited},
		{msg: "hit the rate limit for project", want: RateLimited},
		{msg: "error code 3040", want: RateLimited},
		{msg: "D1_ERROR 9002", want: TransientStoreError},
		{msg: "unknown internal error occurred", want: TransientStoreError},
		{msg: "connection reset by peer", want: TransientStoreError},
		{msg: "request timeout", want: TransientStoreError},
		{msg: "Search service is temporarily unavailable", want: TransientStoreError},
		{msg: "Rate Limit", want: Unclassified},
		{msg: "invalid api key", want: Unclassified},
		{msg: "", want: Unclassified},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOfMessage(tt.msg))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: Unclassified},
		{name: "typed", err: New(RateLimited, "find", errors.New("busy")), want: RateLimited},
		{name: "wrapped typed", err: fmt.Errorf("gateway > %w", FromMessage("add", "connection refused")), want: TransientStoreError},
		{name: "not found", err: fmt.Errorf("lookup > %w", ErrNotFound), want: NotFound},
		{name: "deadline", err: context.DeadlineExceeded, want: TransientStoreError},
		// untyped text is never sniffed above the adapter boundary
		{name: "untyped rate limit text", err: errors.New("rate limit"), want: Unclassified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestError_Error(t *testing.T) {
	err := FromMessage("users.find", "Capacity temporarily exceeded")
	assert.Equal(t, "users.find: rate_limited: Capacity temporarily exceeded", err.Error())

	wrapped := New(TransientStoreError, "", errors.New("dial tcp: i/o timeout"))
	assert.Equal(t, "transient_store_error: dial tcp: i/o timeout", wrapped.Error())
}
