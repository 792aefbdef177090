package localstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/at-ishikawa/wandrr/internal/lesson"
	"github.com/at-ishikawa/wandrr/internal/logger"
	mock_localstore "github.com/at-ishikawa/wandrr/internal/mocks/localstore"
	"github.com/at-ishikawa/wandrr/internal/user"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const localID = "local-user-1717000000000"

func newStore(t *testing.T, substrate Substrate, maxLessons int) (*Store, *testclock.Clock) {
	t.Helper()
	content, err := lesson.LoadContent()
	require.NoError(t, err)
	c := testclock.NewClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	s := New(substrate, content, logger.NewNop(), maxLessons)
	s.clock = c
	s.intn = func(int) int { return 0 }
	return s, c
}

func TestNextStreak(t *testing.T) {
	tests := []struct {
		name           string
		streak         int
		lastLessonDate string
		want           int
	}{
		{name: "first lesson", streak: 0, lastLessonDate: "", want: 1},
		{name: "same day", streak: 4, lastLessonDate: "2024-05-01", want: 4},
		{name: "next day", streak: 4, lastLessonDate: "2024-04-30", want: 5},
		{name: "across a month", streak: 2, lastLessonDate: "2024-04-30", want: 3},
		{name: "gap resets", streak: 4, lastLessonDate: "2024-04-28", want: 1},
		{name: "unparseable date", streak: 4, lastLessonDate: "Tue Apr 30 2024", want: 1},
		{name: "date in the future", streak: 4, lastLessonDate: "2024-05-03", want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStreak(tt.streak, tt.lastLessonDate, "2024-05-01"))
		})
	}
}

func TestStore_WithoutSubstrate(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, nil, 0)

	assert.False(t, s.Enabled())
	assert.Nil(t, s.GetUser(ctx, localID))
	assert.False(t, s.PutUser(ctx, user.NewLocal(localID, "", time.Now())))
	assert.False(t, s.PatchUser(ctx, localID, UserPatch{}))
	assert.False(t, s.AppendLessonResult(ctx, localID, "lesson-1", "a", true, 15))
	assert.Nil(t, s.PickDailyLesson(ctx, localID))
	assert.False(t, s.StoreLesson(ctx, localID, lesson.Lesson{}))
	assert.Empty(t, s.Lessons(ctx, localID))
	assert.False(t, s.Clear(ctx, localID))
	assert.False(t, s.ClearAll(ctx))
	assert.Empty(t, s.Users(ctx))

	u := s.EnsureUser(ctx, localID, "a@example.com")
	assert.Equal(t, localID, u.ID)
	assert.Equal(t, user.LocalUsername, u.Username)
}

func TestStore_RejectsRemoteIDs(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, NewMemorySubstrate(), 0)

	assert.False(t, s.PutUser(ctx, user.User{ID: "user-1"}))
	assert.Nil(t, s.GetUser(ctx, "user-1"))
	assert.False(t, s.AppendLessonResult(ctx, "user-1", "lesson-1", "a", true, 15))
	assert.Nil(t, s.PickDailyLesson(ctx, "user-1"))
}

func TestStore_Users(t *testing.T) {
	ctx := context.Background()
	s, c := newStore(t, NewMemorySubstrate(), 0)

	created := s.EnsureUser(ctx, localID, "a@example.com")
	assert.True(t, created.IsLocalUser)

	got := s.GetUser(ctx, localID)
	require.NotNil(t, got)
	assert.Equal(t, "a@example.com", got.Email)
	assert.Equal(t, c.Now(), got.LastUpdated)

	c.Advance(time.Hour)
	name := "Wanderer"
	xp := 30
	require.True(t, s.PatchUser(ctx, localID, UserPatch{Username: &name, XP: &xp}))
	got = s.GetUser(ctx, localID)
	require.NotNil(t, got)
	assert.Equal(t, "Wanderer", got.Username)
	assert.Equal(t, 30, got.XP)
	assert.Equal(t, user.DefaultPreferences, got.Preferences)
	assert.Equal(t, c.Now(), got.LastUpdated)

	assert.False(t, s.PatchUser(ctx, "local-user-2", UserPatch{XP: &xp}))

	again := s.EnsureUser(ctx, localID, "other@example.com")
	assert.Equal(t, "a@example.com", again.Email)
	assert.Len(t, s.Users(ctx), 1)
}

func TestStore_AppendLessonResult(t *testing.T) {
	ctx := context.Background()
	s, c := newStore(t, NewMemorySubstrate(), 0)
	s.EnsureUser(ctx, localID, "")

	steps := []struct {
		name       string
		advance    time.Duration
		lessonID   string
		answer     string
		correct    bool
		xp         int
		wantXP     int
		wantStreak int
		wantDone   []string
		wantMisses int
	}{
		{name: "first lesson", lessonID: "local-lesson-japan-greetings-1", answer: "Konnichiwa", correct: true, xp: 15, wantXP: 15, wantStreak: 1, wantDone: []string{"local-lesson-japan-greetings-1"}},
		{name: "same day, same lesson", advance: 2 * time.Hour, lessonID: "local-lesson-japan-greetings-1", answer: "Ohayo", xp: 5, wantXP: 20, wantStreak: 1, wantDone: []string{"local-lesson-japan-greetings-1"}, wantMisses: 1},
		{name: "next day", advance: 24 * time.Hour, lessonID: "local-lesson-india-greetings-1", answer: "Namaste", correct: true, xp: 15, wantXP: 35, wantStreak: 2, wantDone: []string{"local-lesson-japan-greetings-1", "local-lesson-india-greetings-1"}, wantMisses: 1},
		{name: "after a gap", advance: 72 * time.Hour, lessonID: "local-lesson-uk-social-1", answer: "true", correct: true, xp: 15, wantXP: 50, wantStreak: 1, wantDone: []string{"local-lesson-japan-greetings-1", "local-lesson-india-greetings-1", "local-lesson-uk-social-1"}, wantMisses: 1},
	}

	for _, step := range steps {
		c.Advance(step.advance)
		require.True(t, s.AppendLessonResult(ctx, localID, step.lessonID, step.answer, step.correct, step.xp), step.name)

		u := s.GetUser(ctx, localID)
		require.NotNil(t, u)
		assert.Equal(t, step.wantXP, u.XP, step.name)
		assert.Equal(t, step.wantStreak, u.Streak, step.name)
		assert.Equal(t, step.wantDone, u.CompletedLessons, step.name)
		assert.Len(t, u.Mistakes, step.wantMisses, step.name)
		assert.Equal(t, c.Now().Format("2006-01-02"), u.LastLessonDate, step.name)
	}

	u := s.GetUser(ctx, localID)
	require.NotNil(t, u)
	assert.Equal(t, "Ohayo", u.Mistakes[0].SubmittedAnswer)
	assert.Equal(t, "local-lesson-japan-greetings-1", u.Mistakes[0].LessonID)

	assert.False(t, s.AppendLessonResult(ctx, "local-user-2", "lesson-1", "a", true, 15))
}

func TestStore_PickDailyLesson(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, NewMemorySubstrate(), 0)
	s.EnsureUser(ctx, localID, "")

	first := s.PickDailyLesson(ctx, localID)
	require.NotNil(t, first)
	assert.True(t, first.IsLocal)
	assert.Equal(t, s.content.Pool[0].ID, first.ID)

	require.True(t, s.AppendLessonResult(ctx, localID, first.ID, string(first.Answer), true, 15))
	second := s.PickDailyLesson(ctx, localID)
	require.NotNil(t, second)
	assert.Equal(t, s.content.Pool[1].ID, second.ID)
}

func TestStore_Lessons(t *testing.T) {
	ctx := context.Background()
	s, c := newStore(t, NewMemorySubstrate(), 3)

	for i := 0; i < 5; i++ {
		c.Advance(time.Minute)
		require.True(t, s.StoreLesson(ctx, localID, lesson.Lesson{ID: fmt.Sprintf("lesson-%d", i), Country: "Japan"}))
	}
	require.True(t, s.StoreLesson(ctx, localID, lesson.Lesson{Country: "France"}))

	lessons := s.Lessons(ctx, localID)
	require.Len(t, lessons, 3)
	assert.Equal(t, "lesson-3", lessons[0].ID)
	assert.Equal(t, "lesson-4", lessons[1].ID)
	assert.Equal(t, fmt.Sprintf("lesson-%d", c.Now().UnixMilli()), lessons[2].ID)
	assert.Equal(t, c.Now(), lessons[2].Timestamp)
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	substrate := NewMemorySubstrate()
	s, _ := newStore(t, substrate, 0)

	other := "local-user-2"
	for _, id := range []string{localID, other} {
		s.EnsureUser(ctx, id, "")
		require.True(t, s.StoreLesson(ctx, id, lesson.Lesson{ID: "lesson-1"}))
	}

	require.True(t, s.Clear(ctx, localID))
	assert.Nil(t, s.GetUser(ctx, localID))
	assert.Empty(t, s.Lessons(ctx, localID))
	assert.NotNil(t, s.GetUser(ctx, other))
	assert.Len(t, s.Lessons(ctx, other), 1)

	require.True(t, s.ClearAll(ctx))
	assert.Empty(t, s.Users(ctx))
	keys, err := substrate.Keys(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStore_SubstrateFailures(t *testing.T) {
	ctx := context.Background()
	errStorage := errors.New("quota exceeded")

	tests := []struct {
		name  string
		setup func(m *mock_localstore.MockSubstrate)
		check func(t *testing.T, s *Store)
	}{
		{
			name: "read error",
			setup: func(m *mock_localstore.MockSubstrate) {
				m.EXPECT().Get(gomock.Any(), UsersKey).Return(nil, errStorage)
			},
			check: func(t *testing.T, s *Store) {
				assert.Nil(t, s.GetUser(ctx, localID))
			},
		},
		{
			name: "corrupted users",
			setup: func(m *mock_localstore.MockSubstrate) {
				m.EXPECT().Get(gomock.Any(), UsersKey).Return([]byte("{not json"), nil)
			},
			check: func(t *testing.T, s *Store) {
				assert.Nil(t, s.GetUser(ctx, localID))
			},
		},
		{
			name: "write error",
			setup: func(m *mock_localstore.MockSubstrate) {
				m.EXPECT().Get(gomock.Any(), UsersKey).Return(nil, nil)
				m.EXPECT().Set(gomock.Any(), UsersKey, gomock.Any()).Return(errStorage)
			},
			check: func(t *testing.T, s *Store) {
				assert.False(t, s.PutUser(ctx, user.NewLocal(localID, "", time.Now())))
			},
		},
		{
			name: "corrupted lessons",
			setup: func(m *mock_localstore.MockSubstrate) {
				m.EXPECT().Get(gomock.Any(), LessonsKey(localID)).Return([]byte("[{"), nil)
			},
			check: func(t *testing.T, s *Store) {
				assert.Empty(t, s.Lessons(ctx, localID))
			},
		},
		{
			name: "listing error",
			setup: func(m *mock_localstore.MockSubstrate) {
				m.EXPECT().Delete(gomock.Any(), UsersKey).Return(nil)
				m.EXPECT().Keys(gomock.Any(), LessonsKeyPrefix).Return(nil, errStorage)
			},
			check: func(t *testing.T, s *Store) {
				assert.False(t, s.ClearAll(ctx))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			substrate := mock_localstore.NewMockSubstrate(ctrl)
			tt.setup(substrate)
			s, _ := newStore(t, substrate, 0)
			tt.check(t, s)
		})
	}
}
