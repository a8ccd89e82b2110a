package ws

import (
	"net/http"
	"os"

	"rps_arena/internal/logger"
	"rps_arena/internal/service"
	"rps_arena/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// содержит зависимости для обработки WebSocket
type WSHandler struct {
	Registry *session.Registry
}

func NewWSHandler(registry *session.Registry) *WSHandler {
	return &WSHandler{Registry: registry}
}

// HandleWS апгрейдит соединение после проверки JWT и запускает клиента.
// Все игровые операции идут сообщениями внутри соединения.
func (h *WSHandler) HandleWS() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "токен обязателен"})
			return
		}

		userID, err := service.ParseJWT(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "неверный токен"})
			return
		}

		allowedOrigin := os.Getenv("ALLOWED_ORIGIN")
		upgrader := websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Error("ws upgrade failed", "user_id", userID, "error", err)
			return
		}

		client := NewClient(userID, conn, h.Registry)
		go client.Run()
	}
}
