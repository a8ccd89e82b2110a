package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rps_arena/internal/bot"
	"rps_arena/internal/config"
	"rps_arena/internal/db"
	httpServer "rps_arena/internal/http"
	"rps_arena/internal/http/handlers"
	"rps_arena/internal/http/middleware"
	"rps_arena/internal/logger"
	"rps_arena/internal/repository"
	"rps_arena/internal/service"
	"rps_arena/internal/session"
	"rps_arena/internal/settlement"
	"rps_arena/internal/ton"
	"rps_arena/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Version устанавливается при сборке
var Version = "dev"

func main() {
	cfg := config.Load()

	// Инициализация структурированного логгера
	jsonLogs := os.Getenv("LOG_FORMAT") == "json"
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logger.Init(logLevel, jsonLogs)
	log := logger.Get()

	service.InitJWT()

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	userRepo := repository.NewUserRepository(dbPool)
	historyRepo := repository.NewMatchHistoryRepository(dbPool)
	referralRepo := repository.NewReferralRepository(dbPool)
	walletRepo := repository.NewWalletRepository(dbPool)
	payoutRepo := repository.NewPayoutRepository(dbPool)
	balances := service.NewBalanceService(dbPool)

	// TON кошелек платформы для он-чейн выплат победителям
	network := ton.NetworkMainnet
	if os.Getenv("TON_NETWORK") == "testnet" {
		network = ton.NetworkTestnet
	}
	var tonWallet *ton.Wallet
	var tonClient *ton.Client
	if mnemonic := os.Getenv("TON_WALLET_MNEMONIC"); mnemonic != "" {
		w, err := ton.NewWallet(mnemonic, network)
		if err != nil {
			log.Error("failed to init TON wallet, on-chain payouts disabled", "error", err)
		} else {
			tonWallet = w
			tonClient = ton.NewClient(network, os.Getenv("TON_API_KEY"))
			log.Info("TON wallet initialized", "address", w.GetAddress())
		}
	} else {
		log.Warn("TON_WALLET_MNEMONIC not set - TON winnings stay custodial")
	}

	dispatcher := settlement.NewDispatcher(
		balances, userRepo, referralRepo, walletRepo, payoutRepo, tonWallet, tonClient, nil,
	)

	engineCfg := session.Config{
		RoundTicks:             cfg.RoundTicks,
		TickInterval:           cfg.TickInterval,
		GraceWindow:            cfg.GraceWindow,
		TONFixedStake:          cfg.TONFixedStake,
		PlatformFeePercent:     cfg.PlatformFeePercent,
		AllowCurrencyDowngrade: true,
	}
	registry := session.NewRegistry(engineCfg, balances, dispatcher)

	r := gin.Default()

	// CORS для прода и связи фронта с бэкендом(разные домены)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handlers.NewHandler(dbPool, cfg.BotToken, registry)
	referralHandler := handlers.NewReferralHandler(referralRepo, cfg.BotUsername)
	walletHandler := handlers.NewWalletHandler(walletRepo, payoutRepo)
	wsHandler := ws.NewWSHandler(registry)
	httpServer.SetupRoutes(r, h, referralHandler, walletHandler, wsHandler)

	// Опс-бот для дежурных: статистика и алерты о проблемных расчетах
	var opsBot *bot.OpsBot
	if cfg.OpsBotEnabled && len(cfg.OpsTelegramIDs) > 0 {
		var err error
		opsBot, err = bot.NewOpsBot(cfg.BotToken, registry, userRepo, historyRepo, payoutRepo, tonWallet, cfg.OpsTelegramIDs)
		if err != nil {
			log.Error("failed to start ops bot", "error", err)
		} else {
			go opsBot.Start()
			dispatcher.SetOpsNotifier(opsBot)
			log.Info("ops bot started", "ops_ids", cfg.OpsTelegramIDs)
		}
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// фоновая уборка завершенных матчей и добор зависших выплат
	registry.StartSweeper(rootCtx, cfg.SweepInterval, cfg.SweepMaxAge)
	dispatcher.StartPayoutRetrier(rootCtx, ton.PayoutRetryInterval)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		log.Info("server started", "port", cfg.AppPort, "version", Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	cancelRoot()

	if opsBot != nil {
		opsBot.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
