package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// топ-100 игроков по победам
func (h *Handler) GetLeaderboard(c *gin.Context) {
	top, err := h.HistoryRepo.Leaderboard(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": top})
}
