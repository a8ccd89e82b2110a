package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Текущий профиль пользователя с балансами и последними матчами
func (h *Handler) MyProfile(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.UserRepo.GetByID(ctx, userID)
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	matches, _ := h.HistoryRepo.GetByPlayer(ctx, user.AccountID(), 50)

	c.JSON(http.StatusOK, gin.H{
		"id":             user.ID,
		"tg_id":          user.TgID,
		"username":       user.Username,
		"first_name":     user.FirstName,
		"created_at":     user.CreatedAt,
		"points":         user.Points,
		"ton_nano":       user.TonNano,
		"matches_played": user.MatchesPlayed,
		"matches_won":    user.MatchesWon,
		"matches":        matches,
	})
}

// Последние движения по балансу пользователя
func (h *Handler) GetHistory(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	transactions, err := h.TxRepo.GetByUserID(c.Request.Context(), userID, 200)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	var out []map[string]interface{}
	for _, tx := range transactions {
		out = append(out, map[string]interface{}{
			"id":       tx.ID,
			"kind":     tx.Kind,
			"currency": tx.Currency,
			"amount":   tx.Amount,
			"match_id": tx.MatchID,
			"balance":  tx.Balance,
			"date":     tx.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"history": out})
}
