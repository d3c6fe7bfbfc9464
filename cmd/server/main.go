// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/tysiac/internal/auth"
	"github.com/jason-s-yu/tysiac/internal/cache"
	"github.com/jason-s-yu/tysiac/internal/config"
	"github.com/jason-s-yu/tysiac/internal/database"
	"github.com/jason-s-yu/tysiac/internal/handlers"
	"github.com/jason-s-yu/tysiac/internal/hub"
	"github.com/jason-s-yu/tysiac/internal/metrics"
	"github.com/jason-s-yu/tysiac/internal/middleware"
	_ "github.com/joho/godotenv/autoload"
)

const shutdownGrace = 10 * time.Second

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.SetLevel(cfg.Level())

	if err := run(logger, cfg); err != nil {
		logger.Fatal(err)
	}
}

// run owns every resource of the process; its deferred closes execute only after the
// HTTP server has drained.
func run(logger *logrus.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer store.Close()
	logger.WithField("driver", cfg.StoreDriver).Info("store ready")

	gate, err := auth.NewGate(cfg.AdminPasswordHash)
	if err != nil {
		return fmt.Errorf("admin gate: %w", err)
	}
	if !gate.Configured() {
		logger.Warn("ADMIN_PASSWORD_HASH is not set; all edits will be refused")
	}
	tokens, err := auth.NewTokenIssuer(cfg.AdminTokenTTL)
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	h := hub.New(hub.WithBuffer(cfg.SubscriberBuffer), hub.WithLogger(logger), hub.WithMetrics(m))

	recorder := cache.NewRecorder(nil, cfg.HistorianQueueName)
	if cfg.RedisAddr != "" {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		recorder = cache.NewRecorder(rdb, cfg.HistorianQueueName)
		logger.WithField("queue", cfg.HistorianQueueName).Info("round change history enabled")
	}

	gs := handlers.NewGameServer(store, h, gate, tokens,
		handlers.WithLogger(logger),
		handlers.WithMetrics(m),
		handlers.WithRecorder(recorder),
	)

	router := handlers.NewRouter(logger, gs, handlers.RouterOptions{
		Gatherer:       registry,
		LoginLimiter:   middleware.NewIPRateLimiter(cfg.LoginRatePerMin, cfg.LoginBurst),
		Ping:           store.Ping,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	// end event streams first so Shutdown does not wait on them
	return serve(ctx, srv, ln, shutdownGrace, h.Close, logger)
}

func openStore(ctx context.Context, cfg config.Config) (database.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		return database.OpenSQLite(cfg.SQLitePath)
	default:
		return database.ConnectPostgres(ctx, cfg.DatabaseURL)
	}
}
