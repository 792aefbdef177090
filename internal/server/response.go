package server

import (
	"errors"
	"net/http"

	"github.com/at-ishikawa/wandrr/internal/degrade"
	"github.com/at-ishikawa/wandrr/internal/identity"
	"github.com/at-ishikawa/wandrr/internal/lesson"
	"github.com/at-ishikawa/wandrr/internal/usercache"
	"github.com/gin-gonic/gin"
)

const (
	msgInvalidCredentials = "Invalid credentials. Try refreshing page"
	msgUserExists         = "User with this email already exists."
	msgUnavailable        = "Service temporarily unavailable due to high demand. Please try again in a moment."
	msgInternal           = "Internal Server Error"
)

type errorResponse struct {
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, errorResponse{Message: message})
}

// respondError maps err to a status code. internalMessage is sent for errors no other
// mapping claims; the error text itself never reaches the client.
func (h *Handler) respondError(c *gin.Context, err error, internalMessage string) {
	var f *degrade.Failure
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		respondMessage(c, http.StatusUnauthorized, msgInvalidCredentials)
	case errors.Is(err, identity.ErrUserExists):
		respondMessage(c, http.StatusConflict, msgUserExists)
	case errors.Is(err, usercache.ErrUserNotFound):
		respondMessage(c, http.StatusNotFound, "User not found.")
	case errors.Is(err, lesson.ErrQuestionNotFound):
		respondMessage(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &f) && f.RetryAfter() > 0:
		h.log.Warn("remote store rate limited", "requestId", c.GetString(requestIDKey), "op", f.Op, "attempts", f.Attempts)
		c.JSON(http.StatusServiceUnavailable, errorResponse{
			Message:    msgUnavailable,
			RetryAfter: int(f.RetryAfter().Seconds()),
		})
	default:
		h.log.Error("request failed", "requestId", c.GetString(requestIDKey), "path", c.FullPath(), "error", err)
		if internalMessage == "" {
			internalMessage = msgInternal
		}
		respondMessage(c, http.StatusInternalServerError, internalMessage)
	}
}
