package memory

import (
	"context"
	"testing"

	"github.com/at-ishikawa/wandrr/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	XP    int    `json:"xp"`
}

func TestBackend(t *testing.T) {
	ctx := context.Background()
	b := New()

	resp, err := b.Add(ctx, "users", item{ID: "user-1", Email: "a@example.com", XP: 10})
	require.NoError(t, err)
	assert.Equal(t, true, resp["success"])
	storeID := store.AssignedID(resp, "user-1")
	assert.NotEqual(t, "temp-user-1", storeID)

	_, err = b.Add(ctx, "users", item{ID: "user-2", Email: "b@example.com", XP: 20})
	require.NoError(t, err)

	got, err := b.Find(ctx, "users", map[string]any{"email": "a@example.com"}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, storeID, got[0].ID)

	got, err = b.Find(ctx, "users", map[string]any{"xp": 20}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)

	all, err := b.Find(ctx, "users", nil, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, b.Update(ctx, "users", storeID, item{ID: "user-1", Email: "a@example.com", XP: 40}))
	got, err = b.Find(ctx, "users", map[string]any{"xp": 40}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	decoded, err := store.DecodeValue[item](got[0])
	require.NoError(t, err)
	assert.Equal(t, "user-1", decoded.ID)

	assert.Error(t, b.Update(ctx, "users", "missing", item{}))

	empty, err := b.Find(ctx, "lessons", nil, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
