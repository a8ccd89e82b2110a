package handlers

import (
	"errors"
	"net/http"

	"rps_arena/internal/session"

	"github.com/gin-gonic/gin"
)

// Снимок матча по id - для зрителей и ресинка клиента
func (h *Handler) GetMatch(c *gin.Context) {
	matchID := c.Param("id")

	m, err := h.Registry.GetMatch(matchID)
	if err != nil {
		if errors.Is(err, session.ErrMatchNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"match": m.View()})
}

// Текущий матч авторизованного игрока
func (h *Handler) MyMatch(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := h.UserRepo.GetByID(c.Request.Context(), userID)
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	m, err := h.Registry.GetPlayerMatch(user.AccountID())
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active match"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"match": m.View()})
}

// Счетчики движка: активные и ожидающие матчи, глубина очереди
func (h *Handler) EngineStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stats": h.Registry.Stats()})
}
