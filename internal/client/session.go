package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/at-ishikawa/wandrr/internal/lesson"
	"github.com/at-ishikawa/wandrr/internal/localstore"
)

const (
	sessionKey       = "session"
	currentLessonKey = "current_lesson"
)

// Session is the logged-in identity of the CLI. A local-mode session stays local until the
// user logs in again.
type Session struct {
	Token       string `json:"token"`
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	IsLocalMode bool   `json:"isLocalMode"`
}

// SessionStore keeps the session and the lesson being answered in the local substrate.
type SessionStore struct {
	substrate localstore.Substrate
}

func NewSessionStore(substrate localstore.Substrate) *SessionStore {
	return &SessionStore{substrate: substrate}
}

func (s *SessionStore) Load(ctx context.Context) (*Session, error) {
	var session Session
	ok, err := s.get(ctx, sessionKey, &session)
	if err != nil || !ok {
		return nil, err
	}
	return &session, nil
}

func (s *SessionStore) Save(ctx context.Context, session Session) error {
	return s.set(ctx, sessionKey, session)
}

func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.substrate.Delete(ctx, sessionKey); err != nil {
		return fmt.Errorf("substrate.Delete(%s) > %w", sessionKey, err)
	}
	if err := s.substrate.Delete(ctx, currentLessonKey); err != nil {
		return fmt.Errorf("substrate.Delete(%s) > %w", currentLessonKey, err)
	}
	return nil
}

func (s *SessionStore) CurrentLesson(ctx context.Context) (*lesson.Lesson, error) {
	var l lesson.Lesson
	ok, err := s.get(ctx, currentLessonKey, &l)
	if err != nil || !ok {
		return nil, err
	}
	return &l, nil
}

func (s *SessionStore) SetCurrentLesson(ctx context.Context, l lesson.Lesson) error {
	return s.set(ctx, currentLessonKey, l)
}

func (s *SessionStore) get(ctx context.Context, key string, v any) (bool, error) {
	raw, err := s.substrate.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("substrate.Get(%s) > %w", key, err)
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("json.Unmarshal(%s) > %w", key, err)
	}
	return true, nil
}

func (s *SessionStore) set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json.Marshal(%s) > %w", key, err)
	}
	if err := s.substrate.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("substrate.Set(%s) > %w", key, err)
	}
	return nil
}
