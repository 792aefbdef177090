package usercache

import (
	"testing"
	"time"

	"github.com/at-ishikawa/wandrr/internal/logger"
	"github.com/at-ishikawa/wandrr/internal/user"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestCache(ttl time.Duration) (*Cache, *testclock.Clock) {
	clk := testclock.NewClock(testNow)
	return NewCache(ttl, clk, logger.NewNop(), nil), clk
}

func TestCache_Get(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		wantHit bool
	}{
		{
			name:    "fresh entry",
			elapsed: 0,
			wantHit: true,
		},
		{
			name:    "just under ttl",
			elapsed: 5*time.Minute - time.Millisecond,
			wantHit: true,
		},
		{
			name:    "at ttl",
			elapsed: 5 * time.Minute,
		},
		{
			name:    "long expired",
			elapsed: time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, clock := newTestCache(5 * time.Minute)
			c.Set("user:user-1", "value")
			clock.Advance(tt.elapsed)

			got, ok := c.Get("user:user-1")
			assert.Equal(t, tt.wantHit, ok)
			if tt.wantHit {
				assert.Equal(t, "value", got)
			} else {
				assert.Nil(t, got)
				assert.Equal(t, 0, c.Stats().Total)
			}
		})
	}
}

func TestCache_TypedEntries(t *testing.T) {
	c, _ := newTestCache(time.Minute)

	_, ok := c.GetUser("user-1")
	assert.False(t, ok)

	u := user.User{ID: "user-1", Username: "a", XP: 20}
	c.SetUser(u)
	got, ok := c.GetUser("user-1")
	require.True(t, ok)
	assert.Equal(t, u, got)

	c.SetStoreID("user-1", "")
	_, ok = c.GetStoreID("user-1")
	assert.False(t, ok)

	c.SetStoreID("user-1", "rec-1")
	id, ok := c.GetStoreID("user-1")
	require.True(t, ok)
	assert.Equal(t, "rec-1", id)

	c.Set(UserKey("user-2"), "not a user")
	_, ok = c.GetUser("user-2")
	assert.False(t, ok)

	c.Invalidate("user-1")
	_, ok = c.GetUser("user-1")
	assert.False(t, ok)
	_, ok = c.GetStoreID("user-1")
	assert.False(t, ok)
}

func TestCache_SweepAndStats(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	c.Set(UserKey("old"), "a")
	c.Set(StoreIDKey("old"), "b")
	clock.Advance(2 * time.Minute)
	c.Set(UserKey("new"), "c")

	_, _ = c.Get(UserKey("new"))
	_, _ = c.Get(UserKey("missing"))

	assert.Equal(t, Stats{
		Total:   3,
		Valid:   1,
		Expired: 2,
		Hits:    1,
		Misses:  1,
		HitRate: 0.5,
	}, c.Stats())

	assert.Equal(t, 2, c.Sweep())
	assert.Equal(t, 0, c.Sweep())
	stats := c.Stats()
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 0, stats.Expired)
}

func TestCache_Clear(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	c.Set(UserKey("a"), 1)
	c.Set(UserKey("b"), 2)
	c.Set(StoreIDKey("a"), "rec-a")

	c.Clear("user:")
	assert.Equal(t, 1, c.Stats().Total)
	_, ok := c.GetStoreID("a")
	assert.True(t, ok)

	c.Clear("")
	assert.Equal(t, 0, c.Stats().Total)
}

func TestCache_StartStop(t *testing.T) {
	c, clk := newTestCache(time.Minute)
	c.Set(UserKey("a"), 1)
	c.Start(5 * time.Minute)

	clk.Advance(30 * time.Second)
	assert.Equal(t, 1, c.Stats().Total)

	// The first wait fires the sweep; the second returns once the loop waits again.
	require.NoError(t, clk.WaitAdvance(5*time.Minute, time.Second, 1))
	require.NoError(t, clk.WaitAdvance(0, time.Second, 1))
	assert.Equal(t, 0, c.Stats().Total)

	c.Stop()
	c.Stop()
}

func TestCache_StopWithoutStart(t *testing.T) {
	c := NewCache(0, nil, nil, nil)
	assert.NotPanics(t, c.Stop)
	assert.Equal(t, DefaultTTL, c.ttl)
	assert.NotNil(t, c.clock)
}
