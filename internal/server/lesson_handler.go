package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/at-ishikawa/wandrr/internal/degrade"
	"github.com/at-ishikawa/wandrr/internal/lesson"
	"github.com/at-ishikawa/wandrr/internal/user"
	"github.com/at-ishikawa/wandrr/internal/usercache"
	"github.com/gin-gonic/gin"
)

type submitRequest struct {
	User       *user.User     `json:"user"`
	Lesson     *lesson.Lesson `json:"lesson"`
	Answer     *lesson.Answer `json:"answer"`
	QuestionID string         `json:"questionId"`
}

type submitLocalRequest struct {
	LessonID  string         `json:"lessonId"`
	UserID    string         `json:"userId"`
	Answer    *lesson.Answer `json:"answer"`
	IsCorrect *bool          `json:"isCorrect"`
}

type submitLocalResponse struct {
	Message    string    `json:"message"`
	XPGained   int       `json:"xpGained"`
	NewTotalXP int       `json:"newTotalXp"`
	IsCorrect  bool      `json:"isCorrect"`
	LocalMode  bool      `json:"localMode"`
	LevelUp    *bool     `json:"levelUp,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type generateRequest struct {
	Prompt string     `json:"prompt"`
	User   *user.User `json:"user"`
}

// TodayLesson generates the daily lesson of a remote user. A user the store does not know
// yet is created with starter values first.
func (h *Handler) TodayLesson(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("userId")
	if user.IsLocalID(userID) {
		respondMessage(c, http.StatusBadRequest, "Local users receive lessons from local storage")
		return
	}

	u, err := h.users.GetUser(ctx, userID, true)
	if errors.Is(err, usercache.ErrUserNotFound) {
		u, err = h.createStarter(c, userID)
	}
	if err != nil {
		h.respondError(c, err, "")
		return
	}

	l, err := h.generator.Generate(ctx, h.generator.PersonalizedParams(u), u.Mistakes)
	if err != nil {
		h.respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *Handler) createStarter(c *gin.Context, userID string) (user.User, error) {
	starter := user.NewStarter(userID, h.clock.Now())
	storeID, err := h.gateway.Add(c.Request.Context(), degrade.OpFetchLesson, user.Collection, userID, starter)
	if err != nil {
		return user.User{}, err
	}
	h.log.Info("created starter user", "userId", userID, "storeId", storeID)
	starter.ShovID = storeID
	h.users.Put(starter)
	return starter, nil
}

// LocalLesson picks a lesson from the built-in pool for a local user.
func (h *Handler) LocalLesson(c *gin.Context) {
	userID := c.Param("userId")
	if !user.IsLocalID(userID) {
		respondMessage(c, http.StatusBadRequest, "Invalid local user ID")
		return
	}
	c.JSON(http.StatusOK, h.content.PickLocal(nil, h.intn))
}

func (h *Handler) Submit(c *gin.Context) {
	ctx := c.Request.Context()
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.User == nil || req.User.ID == "" || req.Lesson == nil || req.Answer == nil {
		respondMessage(c, http.StatusBadRequest, "Missing required fields: user object, lesson object, answer")
		return
	}
	userID := req.User.ID
	if user.IsLocalID(userID) {
		respondMessage(c, http.StatusBadRequest, "Local users submit answers to /api/lesson/submit-local")
		return
	}
	if claims := claimsFrom(c); claims != nil && claims.UserID != userID {
		respondMessage(c, http.StatusForbidden, "forbidden")
		return
	}

	storeID, err := h.users.StoreID(ctx, userID)
	if err != nil {
		h.respondError(c, err, "Could not retrieve user database ID.")
		return
	}
	current, err := h.users.GetUser(ctx, userID, true)
	if err != nil {
		h.respondError(c, err, "")
		return
	}

	result, err := lesson.Grade(current, *req.Lesson, req.QuestionID, string(*req.Answer), h.clock.Now())
	if err != nil {
		h.respondError(c, err, "")
		return
	}

	stored := result.UpdatedUser
	stored.ShovID = ""
	if err := h.gateway.Update(ctx, degrade.OpSubmitAnswer, user.Collection, storeID, stored); err != nil {
		h.users.Invalidate(userID)
		h.respondError(c, err, "")
		return
	}
	h.users.Put(result.UpdatedUser)

	result.UpdatedUser = result.UpdatedUser.Public()
	c.JSON(http.StatusOK, result)
}

// SubmitLocal acknowledges an answer of a local user. The client applies the xp to its
// shadow store.
func (h *Handler) SubmitLocal(c *gin.Context) {
	var req submitLocalRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.LessonID == "" || req.UserID == "" || req.Answer == nil || req.IsCorrect == nil {
		respondMessage(c, http.StatusBadRequest, "Missing required fields: lessonId, userId, answer, isCorrect")
		return
	}
	if !user.IsLocalID(req.UserID) {
		respondMessage(c, http.StatusBadRequest, "This endpoint is only for local users")
		return
	}

	correct := *req.IsCorrect
	xp := lesson.LocalXP(correct)
	resp := submitLocalResponse{
		Message:    "Not quite right, but keep learning!",
		XPGained:   xp,
		NewTotalXP: xp,
		IsCorrect:  correct,
		LocalMode:  true,
		Timestamp:  h.clock.Now().UTC(),
	}
	if correct {
		levelUp := false
		resp.Message = "Correct! Well done!"
		resp.LevelUp = &levelUp
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GenerateCustom(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Prompt == "" || req.User == nil {
		respondMessage(c, http.StatusBadRequest, "Missing required fields: prompt, user")
		return
	}

	l, err := h.generator.GenerateCustom(c.Request.Context(), req.Prompt, *req.User)
	if err != nil {
		h.respondError(c, err, "Failed to generate custom lesson after multiple attempts.")
		return
	}
	c.JSON(http.StatusOK, l)
}
