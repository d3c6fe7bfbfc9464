// cmd/historian drains the round change queue into tysiac_round_history.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/tysiac/internal/cache"
	"github.com/jason-s-yu/tysiac/internal/config"
	"github.com/jason-s-yu/tysiac/internal/database"
	"github.com/jason-s-yu/tysiac/internal/historian"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.SetLevel(cfg.Level())
	if cfg.StoreDriver != config.DriverPostgres {
		logger.Fatalf("the historian writes to postgres; STORE_DRIVER is %q", cfg.StoreDriver)
	}
	if cfg.RedisAddr == "" {
		logger.Fatal("REDIS_ADDR is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("postgres: %v", err)
	}
	defer store.Close()

	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	svc := historian.New(rdb, historian.NewPostgresSink(store.Pool()), historian.Config{
		Queue:      cfg.HistorianQueueName,
		BatchSize:  cfg.HistorianBatchSize,
		FlushDelay: cfg.HistorianFlushDelay(),
	}, logger)

	if err := svc.Run(ctx); err != nil {
		logger.Fatalf("historian: %v", err)
	}
	logger.Info("Historian shutdown complete.")
}
