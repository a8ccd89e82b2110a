package http

import (
	"time"

	"rps_arena/internal/http/handlers"
	"rps_arena/internal/http/middleware"
	"rps_arena/internal/ws"

	"github.com/gin-gonic/gin"
)

// SetupRoutes собирает все HTTP- и WS-маршруты приложения
func SetupRoutes(
	r *gin.Engine,
	h *handlers.Handler,
	referrals *handlers.ReferralHandler,
	wallets *handlers.WalletHandler,
	wsHandler *ws.WSHandler,
) {
	// healthchecks вне rate limit
	r.GET("/health", h.Health)
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)

	// вся игра идет через одно WS-соединение
	r.GET("/ws", wsHandler.HandleWS())

	api := r.Group("/api")
	api.Use(middleware.RedisRateLimit(120, time.Minute))

	// auth с более жестким лимитом - защита от перебора init_data
	auth := api.Group("/auth")
	auth.Use(middleware.RedisRateLimit(10, time.Minute))
	auth.POST("", h.Auth)

	// публичные ручки
	api.GET("/match/:id", h.GetMatch)
	api.GET("/stats", h.EngineStats)
	api.GET("/leaderboard", h.GetLeaderboard)

	// под JWT
	private := api.Group("")
	private.Use(middleware.JWT())
	{
		private.GET("/profile", h.MyProfile)
		private.GET("/history", h.GetHistory)
		private.GET("/match/me", h.MyMatch)

		ref := private.Group("/referral")
		{
			ref.GET("/code", referrals.GetReferralCode)
			ref.GET("/link", referrals.GetReferralLink)
			ref.GET("/stats", referrals.GetReferralStats)
			ref.POST("/apply", referrals.ApplyReferralCode)
		}

		wal := private.Group("/wallet")
		{
			wal.GET("", wallets.GetWallet)
			wal.POST("/link", wallets.LinkWallet)
			wal.DELETE("/link", wallets.UnlinkWallet)
			wal.GET("/payouts", wallets.GetPayouts)
		}
	}
}
