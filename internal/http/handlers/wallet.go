package handlers

import (
	"net/http"

	"rps_arena/internal/domain"
	"rps_arena/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/xssnick/tonutils-go/address"
)

// Привязка TON-кошелька для он-чейн выплат
type WalletHandler struct {
	wallets *repository.WalletRepository
	payouts *repository.PayoutRepository
}

func NewWalletHandler(wallets *repository.WalletRepository, payouts *repository.PayoutRepository) *WalletHandler {
	return &WalletHandler{wallets: wallets, payouts: payouts}
}

// возвращает привязанный кошелек пользователя, если есть
func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	w, err := h.wallets.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if w == nil {
		c.JSON(http.StatusOK, gin.H{"wallet": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": gin.H{
		"address":   w.Address,
		"linked_at": w.LinkedAt,
		"verified":  w.IsVerified,
	}})
}

type linkWalletRequest struct {
	Address string `json:"address" binding:"required"`
}

// LinkWallet привязывает адрес кошелька к пользователю. Выигрыши в TON
// уходят на этот адрес, без привязки остаются на кастодиальном балансе
func (h *WalletHandler) LinkWallet(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req linkWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address is required"})
		return
	}

	addr, err := address.ParseAddr(req.Address)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ton address"})
		return
	}

	ctx := c.Request.Context()

	// один адрес - один аккаунт
	taken, err := h.wallets.AddressExists(ctx, addr.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	existing, err := h.wallets.GetByUserID(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	if taken && (existing == nil || existing.Address != addr.String()) {
		c.JSON(http.StatusConflict, gin.H{"error": "address already linked to another account"})
		return
	}

	if existing != nil {
		existing.Address = addr.String()
		existing.RawAddress = addr.StringRaw()
		if err := h.wallets.Update(ctx, existing); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "wallet updated", "address": existing.Address})
		return
	}

	w := &domain.Wallet{
		UserID:     userID,
		Address:    addr.String(),
		RawAddress: addr.StringRaw(),
	}
	if err := h.wallets.Create(ctx, w); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "wallet linked", "address": w.Address})
}

// отвязывает кошелек, выплаты снова копятся на кастодиальном балансе
func (h *WalletHandler) UnlinkWallet(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.wallets.Delete(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "wallet unlinked"})
}

// история он-чейн выплат пользователя
func (h *WalletHandler) GetPayouts(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	payouts, err := h.payouts.GetByUserID(c.Request.Context(), userID, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payouts": payouts})
}
