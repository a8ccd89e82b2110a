package handlers

import (
	"encoding/json"
	"net/http"

	"rps_arena/internal/domain"
	"rps_arena/internal/repository"
	"rps_arena/internal/service"
	"rps_arena/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Handler держит зависимости HTTP-слоя
type Handler struct {
	DB       *pgxpool.Pool
	BotToken string
	Registry *session.Registry

	UserRepo    *repository.UserRepository
	HistoryRepo *repository.MatchHistoryRepository
	TxRepo      *repository.TransactionRepository
}

func NewHandler(db *pgxpool.Pool, botToken string, registry *session.Registry) *Handler {
	return &Handler{
		DB:          db,
		BotToken:    botToken,
		Registry:    registry,
		UserRepo:    repository.NewUserRepository(db),
		HistoryRepo: repository.NewMatchHistoryRepository(db),
		TxRepo:      repository.NewTransactionRepository(db),
	}
}

// id авторизованного пользователя из контекста (кладет JWT middleware)
func getUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

type authRequest struct {
	InitData string `json:"init_data" binding:"required"`
}

// Auth проверяет Telegram WebApp init_data, заводит пользователя при
// первом входе и выдает JWT
func (h *Handler) Auth(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "init_data is required"})
		return
	}

	values, ok := service.ValidateTelegramInitData(req.InitData, h.BotToken)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid init data"})
		return
	}

	var tgUser struct {
		ID        int64  `json:"id"`
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
	}
	if err := json.Unmarshal([]byte(values.Get("user")), &tgUser); err != nil || tgUser.ID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user payload"})
		return
	}

	user := &domain.User{
		TgID:      tgUser.ID,
		Username:  tgUser.Username,
		FirstName: tgUser.FirstName,
	}
	if err := h.UserRepo.Upsert(c.Request.Context(), user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	token, err := service.GenerateJWT(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":         user.ID,
			"tg_id":      user.TgID,
			"username":   user.Username,
			"first_name": user.FirstName,
			"points":     user.Points,
			"ton_nano":   user.TonNano,
		},
	})
}
