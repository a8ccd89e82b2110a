package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"rps_arena/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort        string
	DatabaseURL    string
	BotToken       string
	BotUsername    string
	JWTSecret      string
	OpsTelegramIDs []int64 // tg id дежурных для опс-бота, через запятую в env
	OpsBotEnabled  bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Engine
	RoundTicks         int
	TickInterval       time.Duration
	GraceWindow        time.Duration
	TONFixedStake      int64
	PlatformFeePercent int64
	SweepInterval      time.Duration
	SweepMaxAge        time.Duration
}

// Загрузка конфига из env
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		logger.Fatal("BOT_TOKEN is not set")
	}

	botUsername := os.Getenv("BOT_USERNAME")
	if botUsername == "" {
		botUsername = "RPSArenaBot" // ! если не установлено в env !
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	// tg id дежурных !! ЧЕРЕЗ ЗАПЯТУЮ В ENV !!
	var opsIDs []int64
	if idsStr := os.Getenv("OPS_TELEGRAM_IDS"); idsStr != "" {
		for _, idStr := range strings.Split(idsStr, ",") {
			idStr = strings.TrimSpace(idStr)
			if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
				opsIDs = append(opsIDs, id)
			}
		}
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	cfg := &Config{
		AppPort:        port,
		DatabaseURL:    dbURL,
		BotToken:       botToken,
		BotUsername:    botUsername,
		JWTSecret:      jwtSecret,
		OpsTelegramIDs: opsIDs,
		OpsBotEnabled:  os.Getenv("OPS_BOT_ENABLED") == "true",
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        redisDB,

		RoundTicks:         envInt("ROUND_TICKS", 15),
		TickInterval:       envSeconds("TICK_INTERVAL_SECONDS", time.Second),
		GraceWindow:        envSeconds("GRACE_WINDOW_SECONDS", 5*time.Second),
		TONFixedStake:      envInt64("TON_FIXED_STAKE", 100),
		PlatformFeePercent: envInt64("PLATFORM_FEE_PERCENT", 5),
		SweepInterval:      envSeconds("SWEEP_INTERVAL_SECONDS", time.Minute),
		SweepMaxAge:        envSeconds("SWEEP_MAX_AGE_SECONDS", 10*time.Minute),
	}
	return cfg
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envSeconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}
