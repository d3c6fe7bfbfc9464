// internal/handlers/api_server.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/tysiac/internal/middleware"
)

// RouterOptions carries the optional pieces of the HTTP surface.
type RouterOptions struct {
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// LoginLimiter throttles admin login attempts per client address. Nil disables throttling.
	LoginLimiter *middleware.IPRateLimiter
	// Ping checks the store for /healthz.
	Ping func(ctx context.Context) error
	// AllowedOrigins enables CORS for browser viewers served from other origins.
	AllowedOrigins []string
}

// NewRouter mounts every endpoint of the score tracker.
func NewRouter(logger *logrus.Logger, gs *GameServer, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.LogMiddleware(logger))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Location", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/", IndexHandler(logger, gs))
	r.Get("/healthz", healthHandler(logger, opts.Ping))
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/tysiac", func(r chi.Router) {
		r.Get("/games", ListGamesHandler(logger, gs))
		r.Post("/new", CreateGameHandler(logger, gs))
		r.Get("/events", EventsSSEHandler(logger, gs.Hub()))
		r.Get("/ws", EventsWSHandler(logger, gs.Hub()))

		login := r.With()
		if opts.LoginLimiter != nil {
			login = r.With(middleware.RateLimit(opts.LoginLimiter))
		}
		login.Post("/admin/login", LoginHandler(logger, gs))

		r.Get("/{id}", GetGameHandler(logger, gs))
		r.Post("/{id}/add-scores", AddScoresHandler(logger, gs))
		r.Post("/{id}/edit", EditHandler(logger, gs))
	})
	return r
}

func healthHandler(logger *logrus.Logger, ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				logger.WithError(err).Warn("health check failed")
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
