package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"castenobar/internal/account"
	"castenobar/internal/config"
	"castenobar/internal/database"
	httpserver "castenobar/internal/http"
	"castenobar/internal/logger"
	"castenobar/internal/storage"
	"castenobar/internal/store"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()

	lg, err := logger.New("cnb-api", cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	db, err := database.Connect(cfg, lg)
	if err != nil {
		lg.Fatal("database connect failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		lg.Fatal("database migrate failed", zap.Error(err))
	}
	tables := store.New(db)

	var (
		revoked account.Revocations    = account.NewMemoryRevocations()
		limiter httpserver.RateLimiter = httpserver.NewMemoryRateLimiter(cfg.RateLimitPerMin, time.Minute)
	)
	if cfg.RedisAddr != "" {
		rdb, err := database.NewRedis(cfg)
		if err != nil {
			lg.Fatal("redis connect failed", zap.Error(err))
		}
		defer rdb.Close()
		revoked = account.NewRedisRevocations(rdb.Client())
		limiter = httpserver.NewRedisRateLimiter(rdb, cfg.RateLimitPerMin, time.Minute)
		lg.Info("using redis for revocations and rate limits", zap.String("addr", cfg.RedisAddr))
	}

	blobs, err := storage.NewDisk(cfg.UploadDir, cfg.PublicBaseURL, cfg.MaxUploadMB<<20)
	if err != nil {
		lg.Fatal("upload dir", zap.Error(err))
	}

	accounts := account.New(tables, revoked, account.NewHub(), lg, cfg.JWTSecret, cfg.SessionTTL)
	r := httpserver.NewServer(cfg, httpserver.Deps{
		Accounts: accounts,
		Tables:   tables,
		Blobs:    blobs,
		Limiter:  limiter,
		Logger:   lg,
	})

	lg.Info("listening", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		lg.Fatal("server stopped", zap.Error(err))
	}
}
