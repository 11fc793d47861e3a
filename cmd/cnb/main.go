package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"castenobar/internal/cli"
	"castenobar/internal/client"
	"castenobar/internal/config"
	"castenobar/internal/logger"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.LoadClient()

	lg, err := logger.New("cnb", cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	backend := client.New(cfg.APIURL, client.NewFileTokenStore(cfg.SessionFile),
		client.WithHTTPClient(&http.Client{Timeout: cfg.ReqTimeout}),
		client.WithLogger(lg),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(cfg, backend, lg).ExecuteContext(ctx); err != nil {
		lg.Debug("command failed", zap.Error(err))
		stop()
		os.Exit(1)
	}
}
