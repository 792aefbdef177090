// Package localstore mirrors local users and their lessons on the client so the product
// keeps working while the remote store is unavailable. Every operation is best-effort:
// storage and decoding errors are logged and reported as a zero result.
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/at-ishikawa/wandrr/internal/lesson"
	"github.com/at-ishikawa/wandrr/internal/logger"
	"github.com/at-ishikawa/wandrr/internal/user"
	"github.com/juju/clock"
)

const (
	UsersKey         = "local_users"
	LessonsKeyPrefix = "local_lessons_"

	DefaultMaxLessons = 50

	dateLayout = "2006-01-02"
)

func LessonsKey(userID string) string {
	return LessonsKeyPrefix + userID
}

// StoredLesson is a lesson kept in a user's local history.
type StoredLesson struct {
	lesson.Lesson
	Timestamp time.Time `json:"timestamp"`
}

// UserPatch lists the fields PatchUser may change. Nil fields are left as they are.
type UserPatch struct {
	Username         *string
	XP               *int
	Streak           *int
	CompletedLessons []string
	Mistakes         []user.Mistake
	Preferences      []string
	LastLessonDate   *string
}

type Store struct {
	mu         sync.Mutex
	substrate  Substrate
	content    *lesson.Content
	log        *logger.Logger
	maxLessons int

	clock clock.Clock
	intn  func(int) int
}

// New returns a store over substrate. A nil substrate turns every operation into a no-op.
func New(substrate Substrate, content *lesson.Content, log *logger.Logger, maxLessons int) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	if maxLessons <= 0 {
		maxLessons = DefaultMaxLessons
	}
	return &Store{
		substrate:  substrate,
		content:    content,
		log:        log.With("component", "localstore"),
		maxLessons: maxLessons,
		clock:      clock.WallClock,
		intn:       rand.IntN,
	}
}

// Enabled reports whether the store has a substrate.
func (s *Store) Enabled() bool {
	return s.substrate != nil
}

func (s *Store) usable(userID string) bool {
	return s.substrate != nil && user.IsLocalID(userID)
}

func (s *Store) readUsers(ctx context.Context) map[string]user.User {
	users := make(map[string]user.User)
	data, err := s.substrate.Get(ctx, UsersKey)
	if err != nil {
		s.log.Warn("failed to read local users", "error", err)
		return users
	}
	if len(data) == 0 {
		return users
	}
	if err := json.Unmarshal(data, &users); err != nil {
		s.log.Warn("failed to parse local users", "error", err)
		return make(map[string]user.User)
	}
	return users
}

func (s *Store) writeUsers(ctx context.Context, users map[string]user.User) bool {
	data, err := json.Marshal(users)
	if err != nil {
		s.log.Warn("failed to encode local users", "error", err)
		return false
	}
	if err := s.substrate.Set(ctx, UsersKey, data); err != nil {
		s.log.Warn("failed to write local users", "error", err)
		return false
	}
	return true
}

// Users returns every local user.
func (s *Store) Users(ctx context.Context) map[string]user.User {
	if s.substrate == nil {
		return map[string]user.User{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readUsers(ctx)
}

// GetUser returns the local user, or nil when it is unknown or id is not a local id.
func (s *Store) GetUser(ctx context.Context, userID string) *user.User {
	if !s.usable(userID) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.readUsers(ctx)[userID]
	if !ok {
		return nil
	}
	return &u
}

// PutUser stores u, replacing any previous copy.
func (s *Store) PutUser(ctx context.Context, u user.User) bool {
	if !s.usable(u.ID) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	users := s.readUsers(ctx)
	u.IsLocalUser = true
	u.HashedPassword = ""
	u.LastUpdated = s.clock.Now()
	users[u.ID] = u
	return s.writeUsers(ctx, users)
}

// EnsureUser returns the local user, creating it with default values when missing. Without a
// substrate the defaults are returned without being stored.
func (s *Store) EnsureUser(ctx context.Context, userID, email string) user.User {
	if existing := s.GetUser(ctx, userID); existing != nil {
		return *existing
	}
	u := user.NewLocal(userID, email, s.clock.Now())
	if s.usable(userID) {
		s.PutUser(ctx, u)
	}
	return u
}

// PatchUser applies patch to an existing local user.
func (s *Store) PatchUser(ctx context.Context, userID string, patch UserPatch) bool {
	if !s.usable(userID) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patch(ctx, userID, patch)
}

func (s *Store) patch(ctx context.Context, userID string, patch UserPatch) bool {
	users := s.readUsers(ctx)
	u, ok := users[userID]
	if !ok {
		return false
	}
	if patch.Username != nil {
		u.Username = *patch.Username
	}
	if patch.XP != nil {
		u.XP = *patch.XP
	}
	if patch.Streak != nil {
		u.Streak = *patch.Streak
	}
	if patch.CompletedLessons != nil {
		u.CompletedLessons = patch.CompletedLessons
	}
	if patch.Mistakes != nil {
		u.Mistakes = patch.Mistakes
	}
	if patch.Preferences != nil {
		u.Preferences = patch.Preferences
	}
	if patch.LastLessonDate != nil {
		u.LastLessonDate = *patch.LastLessonDate
	}
	u.LastUpdated = s.clock.Now()
	users[userID] = u
	return s.writeUsers(ctx, users)
}

// AppendLessonResult records an answered lesson. xp is added, the lesson is recorded once,
// an incorrect answer is kept as a mistake and the streak follows calendar days: unchanged
// on the same day, extended on the next day, otherwise restarted at 1.
func (s *Store) AppendLessonResult(ctx context.Context, userID, lessonID, answer string, isCorrect bool, xp int) bool {
	if !s.usable(userID) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.readUsers(ctx)
	u, ok := users[userID]
	if !ok {
		return false
	}

	now := s.clock.Now()
	today := now.Format(dateLayout)
	newXP := u.XP + xp
	streak := NextStreak(u.Streak, u.LastLessonDate, today)
	patch := UserPatch{
		XP:             &newXP,
		Streak:         &streak,
		LastLessonDate: &today,
	}
	if lessonID != "" && !slices.Contains(u.CompletedLessons, lessonID) {
		patch.CompletedLessons = append(slices.Clone(u.CompletedLessons), lessonID)
	}
	if !isCorrect && lessonID != "" {
		patch.Mistakes = append(slices.Clone(u.Mistakes), user.Mistake{
			LessonID:        lessonID,
			SubmittedAnswer: answer,
			Timestamp:       now,
		})
	}
	return s.patch(ctx, userID, patch)
}

// NextStreak applies the day-based streak law. Dates use the 2006-01-02 layout.
func NextStreak(streak int, lastLessonDate, today string) int {
	if lastLessonDate == today {
		return streak
	}
	last, err := time.Parse(dateLayout, lastLessonDate)
	if err != nil {
		return 1
	}
	current, err := time.Parse(dateLayout, today)
	if err != nil {
		return 1
	}
	days := int(current.Sub(last).Hours() / 24)
	switch {
	case days == 1:
		return streak + 1
	case days > 1:
		return 1
	default:
		return streak
	}
}

// PickDailyLesson returns a pool lesson the user has not completed yet, or any pool lesson
// once all of them are completed.
func (s *Store) PickDailyLesson(ctx context.Context, userID string) *lesson.Lesson {
	if !s.usable(userID) || s.content == nil {
		return nil
	}
	var completed []string
	if u := s.GetUser(ctx, userID); u != nil {
		completed = u.CompletedLessons
	}
	s.mu.Lock()
	picked := s.content.PickLocal(completed, s.intn)
	s.mu.Unlock()
	return &picked
}

// StoreLesson appends l to the user's history, keeping the most recent lessons only.
func (s *Store) StoreLesson(ctx context.Context, userID string, l lesson.Lesson) bool {
	if !s.usable(userID) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if l.ID == "" {
		l.ID = fmt.Sprintf("lesson-%d", now.UnixMilli())
	}
	lessons := append(s.readLessons(ctx, userID), StoredLesson{Lesson: l, Timestamp: now})
	if len(lessons) > s.maxLessons {
		lessons = lessons[len(lessons)-s.maxLessons:]
	}

	data, err := json.Marshal(lessons)
	if err != nil {
		s.log.Warn("failed to encode local lessons", "userId", userID, "error", err)
		return false
	}
	if err := s.substrate.Set(ctx, LessonsKey(userID), data); err != nil {
		s.log.Warn("failed to write local lessons", "userId", userID, "error", err)
		return false
	}
	return true
}

// Lessons returns the user's lesson history, oldest first.
func (s *Store) Lessons(ctx context.Context, userID string) []StoredLesson {
	if !s.usable(userID) {
		return []StoredLesson{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLessons(ctx, userID)
}

func (s *Store) readLessons(ctx context.Context, userID string) []StoredLesson {
	lessons := make([]StoredLesson, 0)
	data, err := s.substrate.Get(ctx, LessonsKey(userID))
	if err != nil {
		s.log.Warn("failed to read local lessons", "userId", userID, "error", err)
		return lessons
	}
	if len(data) == 0 {
		return lessons
	}
	if err := json.Unmarshal(data, &lessons); err != nil {
		s.log.Warn("failed to parse local lessons", "userId", userID, "error", err)
		return make([]StoredLesson, 0)
	}
	return lessons
}

// Clear removes one local user and their lessons.
func (s *Store) Clear(ctx context.Context, userID string) bool {
	if !s.usable(userID) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.readUsers(ctx)
	delete(users, userID)
	if !s.writeUsers(ctx, users) {
		return false
	}
	if err := s.substrate.Delete(ctx, LessonsKey(userID)); err != nil {
		s.log.Warn("failed to delete local lessons", "userId", userID, "error", err)
		return false
	}
	return true
}

// ClearAll removes every local user and lesson history.
func (s *Store) ClearAll(ctx context.Context) bool {
	if s.substrate == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.substrate.Delete(ctx, UsersKey); err != nil {
		s.log.Warn("failed to delete local users", "error", err)
		return false
	}
	keys, err := s.substrate.Keys(ctx, LessonsKeyPrefix)
	if err != nil {
		s.log.Warn("failed to list local lessons", "error", err)
		return false
	}
	for _, key := range keys {
		if err := s.substrate.Delete(ctx, key); err != nil {
			s.log.Warn("failed to delete local lessons", "key", key, "error", err)
			return false
		}
	}
	return true
}
