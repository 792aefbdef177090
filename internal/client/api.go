// Package client talks to the wandrr API from the command line and keeps local-mode users
// working from the local shadow store.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/at-ishikawa/wandrr/internal/lesson"
	"github.com/at-ishikawa/wandrr/internal/logger"
	"github.com/at-ishikawa/wandrr/internal/user"
	"github.com/go-resty/resty/v2"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotLoggedIn  = errors.New("not logged in")
)

// APIError is a non-2xx response of the API.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%d: %s (retry after %ds)", e.StatusCode, e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return e.StatusCode == http.StatusServiceUnavailable
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

type LoginResponse struct {
	Message     string    `json:"message"`
	Token       string    `json:"token"`
	User        user.User `json:"user"`
	IsLocalMode bool      `json:"isLocalMode"`
}

type SignupResponse struct {
	Message    string `json:"message"`
	UserID     string `json:"userId"`
	Optimistic bool   `json:"optimistic"`
}

type LocalAck struct {
	Message   string `json:"message"`
	XPGained  int    `json:"xpGained"`
	IsCorrect bool   `json:"isCorrect"`
	LocalMode bool   `json:"localMode"`
}

type APIClient struct {
	http *resty.Client
	log  *logger.Logger
}

func NewAPIClient(baseURL string, timeout time.Duration, log *logger.Logger) *APIClient {
	if log == nil {
		log = logger.NewNop()
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &APIClient{
		http: httpClient,
		log:  log.With("component", "apiclient"),
	}
}

// SetToken sends token as a bearer token on every later request.
func (c *APIClient) SetToken(token string) {
	c.http.SetAuthToken(token)
}

// do sends the request and decodes a 2xx body into result. Transport failures are reported
// as ErrUnavailable.
func (c *APIClient) do(ctx context.Context, method, path string, body, result any) error {
	req := c.http.R().SetContext(ctx).SetError(&APIError{})
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	res, err := req.Execute(method, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("client.R.Execute(%s %s) > %w", method, path, errors.Join(ErrUnavailable, err))
	}
	if res.IsError() {
		apiErr, ok := res.Error().(*APIError)
		if !ok || apiErr == nil {
			apiErr = &APIError{Message: string(res.Body())}
		}
		apiErr.StatusCode = res.StatusCode()
		c.log.Debug("api error", "method", method, "path", path, "status", apiErr.StatusCode)
		return apiErr
	}
	return nil
}

func (c *APIClient) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var resp LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password}, &resp)
	return resp, err
}

func (c *APIClient) Signup(ctx context.Context, email, password string) (SignupResponse, error) {
	var resp SignupResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/signup", map[string]string{"email": email, "password": password}, &resp)
	return resp, err
}

// FetchUser returns nil without an error when the server does not know the user.
func (c *APIClient) FetchUser(ctx context.Context, userID string) (*user.User, error) {
	var u user.User
	err := c.do(ctx, http.MethodGet, "/api/user/"+userID, nil, &u)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *APIClient) TodayLesson(ctx context.Context, userID string) (lesson.Lesson, error) {
	var l lesson.Lesson
	err := c.do(ctx, http.MethodGet, "/api/lesson/today/"+userID, nil, &l)
	return l, err
}

func (c *APIClient) Submit(ctx context.Context, u user.User, l lesson.Lesson, answer, questionID string) (lesson.Result, error) {
	var result lesson.Result
	err := c.do(ctx, http.MethodPost, "/api/lesson/submit", map[string]any{
		"user":       u,
		"lesson":     l,
		"answer":     answer,
		"questionId": questionID,
	}, &result)
	return result, err
}

func (c *APIClient) SubmitLocal(ctx context.Context, userID, lessonID, answer string, isCorrect bool) (LocalAck, error) {
	var ack LocalAck
	err := c.do(ctx, http.MethodPost, "/api/lesson/submit-local", map[string]any{
		"lessonId":  lessonID,
		"userId":    userID,
		"answer":    answer,
		"isCorrect": isCorrect,
	}, &ack)
	return ack, err
}

func (c *APIClient) GenerateCustom(ctx context.Context, prompt string, u user.User) (lesson.Lesson, error) {
	var l lesson.Lesson
	err := c.do(ctx, http.MethodPost, "/api/lesson/generate", map[string]any{"prompt": prompt, "user": u}, &l)
	return l, err
}

func (c *APIClient) Leaderboard(ctx context.Context) ([]user.User, error) {
	var users []user.User
	err := c.do(ctx, http.MethodGet, "/api/leaderboard", nil, &users)
	return users, err
}
