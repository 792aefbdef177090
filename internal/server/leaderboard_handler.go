package server

import (
	"cmp"
	"net/http"
	"slices"

	"github.com/at-ishikawa/wandrr/internal/degrade"
	"github.com/at-ishikawa/wandrr/internal/store"
	"github.com/at-ishikawa/wandrr/internal/user"
	"github.com/gin-gonic/gin"
)

const leaderboardSize = 10

func (h *Handler) Leaderboard(c *gin.Context) {
	records, err := h.gateway.FindAll(c.Request.Context(), degrade.OpLeaderboard, user.Collection)
	if err != nil {
		h.respondError(c, err, "")
		return
	}

	users := make([]user.User, 0, len(records))
	for _, rec := range records {
		u, err := store.DecodeValue[user.User](rec)
		if err != nil {
			h.log.Warn("skipping undecodable user record", "storeId", rec.ID, "error", err)
			continue
		}
		users = append(users, u.Public())
	}
	slices.SortStableFunc(users, func(a, b user.User) int {
		return cmp.Compare(b.XP, a.XP)
	})
	if len(users) > leaderboardSize {
		users = users[:leaderboardSize]
	}
	c.JSON(http.StatusOK, users)
}
