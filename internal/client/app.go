package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/at-ishikawa/wandrr/internal/lesson"
	"github.com/at-ishikawa/wandrr/internal/localstore"
	"github.com/at-ishikawa/wandrr/internal/logger"
	"github.com/at-ishikawa/wandrr/internal/user"
	"github.com/at-ishikawa/wandrr/internal/usercache"
)

// AnswerResult is the outcome of answering the current lesson.
type AnswerResult struct {
	Correct       bool
	CorrectAnswer string
	Explanation   string
	XPGained      int
	User          user.User
	LocalMode     bool
}

// App routes every command to the server or, for local-mode sessions, to the local shadow
// store.
type App struct {
	api      *APIClient
	users    *usercache.Facade
	local    *localstore.Store
	sessions *SessionStore
	log      *logger.Logger
}

func NewApp(api *APIClient, users *usercache.Facade, local *localstore.Store, sessions *SessionStore, log *logger.Logger) *App {
	if log == nil {
		log = logger.NewNop()
	}
	return &App{
		api:      api,
		users:    users,
		local:    local,
		sessions: sessions,
		log:      log.With("component", "app"),
	}
}

// session loads the saved session and authenticates the API client with it.
func (a *App) session(ctx context.Context) (Session, error) {
	s, err := a.sessions.Load(ctx)
	if err != nil {
		return Session{}, err
	}
	if s == nil {
		return Session{}, ErrNotLoggedIn
	}
	a.api.SetToken(s.Token)
	return *s, nil
}

func (a *App) Signup(ctx context.Context, email, password string) (SignupResponse, error) {
	return a.api.Signup(ctx, email, password)
}

// Login saves the session. When the server answers in local mode the local user is
// created in the shadow store.
func (a *App) Login(ctx context.Context, email, password string) (Session, error) {
	resp, err := a.api.Login(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	session := Session{
		Token:       resp.Token,
		UserID:      resp.User.ID,
		Email:       email,
		IsLocalMode: resp.IsLocalMode || user.IsLocalID(resp.User.ID),
	}
	if session.IsLocalMode {
		a.local.EnsureUser(ctx, session.UserID, email)
	}
	if err := a.sessions.Save(ctx, session); err != nil {
		return Session{}, err
	}
	a.api.SetToken(session.Token)
	return session, nil
}

func (a *App) Logout(ctx context.Context) error {
	return a.sessions.Clear(ctx)
}

func (a *App) Profile(ctx context.Context) (user.User, Session, error) {
	s, err := a.session(ctx)
	if err != nil {
		return user.User{}, Session{}, err
	}
	u, err := a.users.GetUser(ctx, s.UserID, true)
	if err != nil {
		return user.User{}, s, fmt.Errorf("users.GetUser() > %w", err)
	}
	return u, s, nil
}

// Lesson returns today's lesson and remembers it for Answer. Local sessions pick from the
// built-in pool.
func (a *App) Lesson(ctx context.Context) (lesson.Lesson, error) {
	s, err := a.session(ctx)
	if err != nil {
		return lesson.Lesson{}, err
	}

	var l lesson.Lesson
	if s.IsLocalMode {
		a.local.EnsureUser(ctx, s.UserID, s.Email)
		picked := a.local.PickDailyLesson(ctx, s.UserID)
		if picked == nil {
			return lesson.Lesson{}, errors.New("no local lessons available")
		}
		l = *picked
		a.local.StoreLesson(ctx, s.UserID, l)
	} else {
		l, err = a.api.TodayLesson(ctx, s.UserID)
		if err != nil {
			return lesson.Lesson{}, fmt.Errorf("api.TodayLesson() > %w", err)
		}
	}
	if err := a.sessions.SetCurrentLesson(ctx, l); err != nil {
		return lesson.Lesson{}, err
	}
	return l, nil
}

// CustomLesson asks the server for a lesson on a topic of the user's choosing.
func (a *App) CustomLesson(ctx context.Context, prompt string) (lesson.Lesson, error) {
	u, _, err := a.Profile(ctx)
	if err != nil {
		return lesson.Lesson{}, err
	}
	l, err := a.api.GenerateCustom(ctx, prompt, u)
	if err != nil {
		return lesson.Lesson{}, fmt.Errorf("api.GenerateCustom() > %w", err)
	}
	if err := a.sessions.SetCurrentLesson(ctx, l); err != nil {
		return lesson.Lesson{}, err
	}
	return l, nil
}

// Answer grades answer against the current lesson.
func (a *App) Answer(ctx context.Context, answer, questionID string) (AnswerResult, error) {
	s, err := a.session(ctx)
	if err != nil {
		return AnswerResult{}, err
	}
	l, err := a.sessions.CurrentLesson(ctx)
	if err != nil {
		return AnswerResult{}, err
	}
	if l == nil {
		return AnswerResult{}, errors.New("no lesson in progress, run `wandrr lesson` first")
	}
	if s.IsLocalMode {
		return a.answerLocal(ctx, s, *l, answer, questionID)
	}

	u, err := a.users.GetUser(ctx, s.UserID, true)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("users.GetUser() > %w", err)
	}
	result, err := a.api.Submit(ctx, u, *l, answer, questionID)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("api.Submit() > %w", err)
	}
	a.users.Invalidate(s.UserID)
	return AnswerResult{
		Correct:       result.Correct,
		CorrectAnswer: result.CorrectAnswer,
		Explanation:   result.Explanation,
		XPGained:      result.XPGained,
		User:          result.UpdatedUser,
	}, nil
}

// answerLocal grades on the client. The server only acknowledges the xp; when it cannot be
// reached the same xp is applied without it.
func (a *App) answerLocal(ctx context.Context, s Session, l lesson.Lesson, answer, questionID string) (AnswerResult, error) {
	q, err := l.FindQuestion(questionID)
	if err != nil {
		return AnswerResult{}, err
	}
	correct := q.Matches(answer)
	xp := lesson.LocalXP(correct)

	ack, err := a.api.SubmitLocal(ctx, s.UserID, l.ID, answer, correct)
	switch {
	case err == nil:
		xp = ack.XPGained
	case errors.Is(err, ErrUnavailable):
		a.log.Warn("server unreachable, applying local xp", "userId", s.UserID, "error", err)
	default:
		return AnswerResult{}, fmt.Errorf("api.SubmitLocal() > %w", err)
	}

	if !a.local.AppendLessonResult(ctx, s.UserID, l.ID, answer, correct, xp) {
		a.log.Warn("local lesson result was not saved", "userId", s.UserID, "lessonId", l.ID)
	}
	u := a.local.EnsureUser(ctx, s.UserID, s.Email)
	return AnswerResult{
		Correct:       correct,
		CorrectAnswer: string(q.Answer),
		Explanation:   q.Explanation,
		XPGained:      xp,
		User:          u,
		LocalMode:     true,
	}, nil
}

func (a *App) Leaderboard(ctx context.Context) ([]user.User, error) {
	return a.api.Leaderboard(ctx)
}

// LocalData returns every local user with their stored lessons.
func (a *App) LocalData(ctx context.Context) (map[string]user.User, map[string][]localstore.StoredLesson) {
	users := a.local.Users(ctx)
	lessons := make(map[string][]localstore.StoredLesson, len(users))
	for id := range users {
		lessons[id] = a.local.Lessons(ctx, id)
	}
	return users, lessons
}

// ClearLocal removes the local data of userID, or of every local user when userID is empty.
func (a *App) ClearLocal(ctx context.Context, userID string) bool {
	if userID == "" {
		return a.local.ClearAll(ctx)
	}
	return a.local.Clear(ctx, userID)
}
