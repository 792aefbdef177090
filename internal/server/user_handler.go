package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/at-ishikawa/wandrr/internal/user"
	"github.com/at-ishikawa/wandrr/internal/usercache"
	"github.com/gin-gonic/gin"
)

type localUserResponse struct {
	user.User
	Note string `json:"note"`
}

func (h *Handler) GetUser(c *gin.Context) {
	userID := c.Param("userId")
	u, err := h.users.GetUser(c.Request.Context(), userID, true)
	if errors.Is(err, usercache.ErrUserNotFound) {
		respondMessage(c, http.StatusNotFound, fmt.Sprintf("User with id %s not found.", userID))
		return
	}
	if err != nil {
		h.respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, u.Public())
}

// GetLocalUser returns the default structure of a local user. The client fills it from
// its shadow store.
func (h *Handler) GetLocalUser(c *gin.Context) {
	userID := c.Param("userId")
	if !user.IsLocalID(userID) {
		respondMessage(c, http.StatusBadRequest, "Invalid local user ID")
		return
	}
	c.JSON(http.StatusOK, localUserResponse{
		User: user.NewLocal(userID, "", h.clock.Now()),
		Note: "This user operates in local mode. Data is stored on the client.",
	})
}

func (h *Handler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.users.Cache().Stats())
}
