package handlers

import (
	"net/http"

	"rps_arena/internal/repository"

	"github.com/gin-gonic/gin"
)

// Обработка запросов с рефками
type ReferralHandler struct {
	repo        *repository.ReferralRepository
	botUsername string
}

func NewReferralHandler(repo *repository.ReferralRepository, botUsername string) *ReferralHandler {
	return &ReferralHandler{repo: repo, botUsername: botUsername}
}

// возвращает реферральный код пользователя
func (h *ReferralHandler) GetReferralCode(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	code, err := h.repo.GetOrCreateReferralCode(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get referral code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": code})
}

// статистика реферралов: сколько приглашено и сколько комки накапало
func (h *ReferralHandler) GetReferralStats(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	stats, err := h.repo.GetReferralStats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}

	referrals, err := h.repo.GetReferralsByUser(c.Request.Context(), userID)
	if err != nil {
		referrals = []repository.Referral{}
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":     stats,
		"referrals": referrals,
	})
}

type ApplyReferralRequest struct {
	Code string `json:"code" binding:"required"`
}

// Применяет реферральный код для текущего юзера
func (h *ReferralHandler) ApplyReferralCode(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req ApplyReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	// уже приглашен?
	if referrerID, err := h.repo.GetReferrerID(c.Request.Context(), userID); err == nil && referrerID != 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "already referred"})
		return
	}

	referrerID, err := h.repo.GetUserByReferralCode(c.Request.Context(), req.Code)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid referral code"})
		return
	}

	// не засчитывать создателя рефки
	if referrerID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot use your own code"})
		return
	}

	if err := h.repo.CreateReferral(c.Request.Context(), referrerID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply referral"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "referral applied successfully"})
}

// полная рефка для -> поделиться
func (h *ReferralHandler) GetReferralLink(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	code, err := h.repo.GetOrCreateReferralCode(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get referral code"})
		return
	}

	link := "https://t.me/" + h.botUsername + "?startapp=ref_" + code

	c.JSON(http.StatusOK, gin.H{
		"code": code,
		"link": link,
	})
}
