// Package user holds the user entity shared by the remote store and the local shadow store.
package user

import (
	"fmt"
	"strings"
	"time"
)

const (
	RemotePrefix = "user-"
	LocalPrefix  = "local-user-"

	Collection = "users"

	LocalUsername   = "Local User"
	StarterUsername = "NewWandrr"
)

var DefaultPreferences = []string{"greetings", "dining"}

type Mistake struct {
	LessonID        string    `json:"lessonId,omitempty"`
	QuestionID      string    `json:"questionId,omitempty"`
	SubmittedAnswer string    `json:"submittedAnswer"`
	Timestamp       time.Time `json:"timestamp"`
}

type User struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email,omitempty"`
	HashedPassword     string    `json:"hashedPassword,omitempty"`
	Username           string    `json:"username"`
	XP                 int       `json:"xp"`
	Streak             int       `json:"streak"`
	CompletedLessons   []string  `json:"completed_lessons"`
	CompletedQuestions []string  `json:"completed_questions,omitempty"`
	Mistakes           []Mistake `json:"mistakes"`
	Preferences        []string  `json:"preferences"`
	IsLocalUser        bool      `json:"isLocalUser,omitempty"`
	ShovID             string    `json:"shovId,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	LastUpdated        time.Time `json:"lastUpdated,omitzero"`
	LastLessonDate     string    `json:"lastLessonDate,omitempty"`
}

// IsLocalID reports whether id names a local-only identity. The prefix is the sole
// discriminator.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalPrefix)
}

func NewRemoteID(now time.Time) string {
	return fmt.Sprintf("%s%d", RemotePrefix, now.UnixMilli())
}

func NewLocalID(now time.Time) string {
	return fmt.Sprintf("%s%d", LocalPrefix, now.UnixMilli())
}

// UsernameFromEmail returns the part of the address before "@".
func UsernameFromEmail(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}

// NewRemote builds the record written on signup.
func NewRemote(email, hashedPassword string, now time.Time) User {
	return User{
		ID:               NewRemoteID(now),
		Email:            email,
		HashedPassword:   hashedPassword,
		Username:         UsernameFromEmail(email),
		CompletedLessons: []string{},
		Mistakes:         []Mistake{},
		Preferences:      append([]string(nil), DefaultPreferences...),
		CreatedAt:        now,
	}
}

// NewLocal builds the default record of a local identity. Local users never carry a password.
func NewLocal(id, email string, now time.Time) User {
	return User{
		ID:               id,
		Email:            email,
		Username:         LocalUsername,
		CompletedLessons: []string{},
		Mistakes:         []Mistake{},
		Preferences:      append([]string(nil), DefaultPreferences...),
		IsLocalUser:      true,
		CreatedAt:        now,
		LastUpdated:      now,
	}
}

// NewStarter builds the record created when a lesson is requested for a user the store
// does not know yet.
func NewStarter(id string, now time.Time) User {
	return User{
		ID:               id,
		Username:         StarterUsername,
		CompletedLessons: []string{},
		Mistakes:         []Mistake{},
		Preferences:      append([]string(nil), DefaultPreferences...),
		CreatedAt:        now,
	}
}

// Validate checks that the id prefix and the local flag agree.
func (u User) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("user id is empty")
	}
	if IsLocalID(u.ID) != u.IsLocalUser {
		return fmt.Errorf("user %s: isLocalUser=%t does not match id prefix", u.ID, u.IsLocalUser)
	}
	if u.IsLocalUser && u.HashedPassword != "" {
		return fmt.Errorf("local user %s carries a password hash", u.ID)
	}
	return nil
}

// Public strips the password hash before the user leaves the server.
func (u User) Public() User {
	u.HashedPassword = ""
	return u
}

func (u User) HasCompleted(lessonID string) bool {
	for _, id := range u.CompletedLessons {
		if id == lessonID {
			return true
		}
	}
	return false
}
