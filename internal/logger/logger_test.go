package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   []interface{}
		want []interface{}
	}{
		{
			name: "empty",
			in:   nil,
			want: nil,
		},
		{
			name: "plain keys are kept",
			in:   []interface{}{"attempt", 2, "op", "login"},
			want: []interface{}{"attempt", 2, "op", "login"},
		},
		{
			name: "credentials are redacted",
			in:   []interface{}{"hashedPassword", "$2a$10$abc", "Email", "a@b.com", "jwt_token", "x.y.z"},
			want: []interface{}{"hashedPassword", "[REDACTED]", "Email", "[REDACTED]", "jwt_token", "[REDACTED]"},
		},
		{
			name: "dangling key is kept",
			in:   []interface{}{"op", "signup", "dangling"},
			want: []interface{}{"op", "signup", "dangling"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitize(tt.in))
		})
	}
}

func TestLogger_Info(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("component", "gateway").Info("user lookup", "email", "a@b.com", "attempt", 1)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "gateway", fields["component"])
	assert.Equal(t, "[REDACTED]", fields["email"])
	assert.EqualValues(t, 1, fields["attempt"])
}

func TestNew(t *testing.T) {
	for _, mode := range []string{"dev", "prod"} {
		t.Run(mode, func(t *testing.T) {
			l, err := New(mode)
			require.NoError(t, err)
			assert.NotNil(t, l.SugaredLogger)
		})
	}
}
