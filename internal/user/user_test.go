package user

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsLocalID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{id: "local-user-1717000000000", want: true},
		{id: "user-1717000000000", want: false},
		{id: "local-lesson-japan-greetings-1", want: false},
		{id: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLocalID(tt.id))
		})
	}
}

func TestNewRemote(t *testing.T) {
	now := time.UnixMilli(1717000000123)
	u := NewRemote("hana@example.com", "hash", now)

	assert.Equal(t, "user-1717000000123", u.ID)
	assert.Equal(t, "hana", u.Username)
	assert.Equal(t, 0, u.XP)
	assert.Equal(t, 0, u.Streak)
	assert.Equal(t, []string{"greetings", "dining"}, u.Preferences)
	assert.Empty(t, u.CompletedLessons)
	assert.False(t, u.IsLocalUser)
	assert.NoError(t, u.Validate())
}

func TestNewLocal(t *testing.T) {
	now := time.UnixMilli(1717000000123)
	u := NewLocal(NewLocalID(now), "", now)

	assert.Equal(t, "local-user-1717000000123", u.ID)
	assert.Equal(t, LocalUsername, u.Username)
	assert.True(t, u.IsLocalUser)
	assert.NoError(t, u.Validate())
}

func TestNewStarter(t *testing.T) {
	now := time.UnixMilli(1717000000123)
	u := NewStarter("user-1", now)

	assert.Equal(t, StarterUsername, u.Username)
	assert.Equal(t, DefaultPreferences, u.Preferences)
	assert.Zero(t, u.XP)
	assert.NoError(t, u.Validate())
}

func TestUser_Validate(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		wantErr bool
	}{
		{name: "remote", user: User{ID: "user-1"}},
		{name: "local", user: User{ID: "local-user-1", IsLocalUser: true}},
		{name: "empty id", user: User{}, wantErr: true},
		{name: "local prefix without flag", user: User{ID: "local-user-1"}, wantErr: true},
		{name: "flag without local prefix", user: User{ID: "user-1", IsLocalUser: true}, wantErr: true},
		{name: "local with password", user: User{ID: "local-user-1", IsLocalUser: true, HashedPassword: "x"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestUser_Public(t *testing.T) {
	u := User{ID: "user-1", HashedPassword: "secret"}
	assert.Empty(t, u.Public().HashedPassword)
	assert.Equal(t, "secret", u.HashedPassword)
}

func TestUser_MarshalLastUpdated(t *testing.T) {
	now := time.UnixMilli(1717000000123).UTC()
	tests := []struct {
		name     string
		user     User
		wantSeen bool
	}{
		{name: "never updated", user: NewRemote("hana@example.com", "hash", now)},
		{name: "updated", user: NewLocal(NewLocalID(now), "", now), wantSeen: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.user)
			require.NoError(t, err)

			var fields map[string]any
			require.NoError(t, json.Unmarshal(b, &fields))
			_, ok := fields["lastUpdated"]
			assert.Equal(t, tt.wantSeen, ok)
			assert.Contains(t, fields, "created_at")
		})
	}
}
