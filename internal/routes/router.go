package routes

import (
	"context"
	"net/http"
	"os"
	"time"

	"seafarer/bosun/internal/api"
	"seafarer/bosun/internal/common"
	"seafarer/bosun/internal/db"
	"seafarer/bosun/internal/jobs"
	"seafarer/bosun/internal/logging"
	"seafarer/bosun/internal/metrics"
	"seafarer/bosun/internal/middleware"
	"seafarer/bosun/internal/workers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

func RegisterRoutes(upSince time.Time) http.Handler {

	// initialize Chi router
	r := chi.NewRouter()

	// Initialize metrics registry
	metricsReg := metrics.NewMetricsRegistry()

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.MetricsMiddleware(metricsReg))
	if os.Getenv("BOSUN_DEBUG_HTTP") != "" {
		r.Use(middleware.Logging)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://localhost:8081"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	logging.Info("Router initialized with metrics and logging middleware")

	// Shared Redis client for queue, state tokens and health checks
	redisClient := common.NewRedisClient()

	// health check
	r.Get("/healthCheck", api.HealthCheckHandler(db.DB, redisClient, upSince))

	// Initialize dependencies using DI pattern
	deps, err := api.InitDependencies(metricsReg, redisClient)
	if err != nil {
		panic("Failed to initialize dependencies: " + err.Error())
	}

	// Initialize handlers with dependencies
	handlers := api.NewHandlers(deps)

	// Background jobs: scheduled reconcile plus the opportunistic trigger
	jobsContainer := jobs.InitializeJobs(
		context.Background(),
		deps.Services.Sync,
		deps.Repo.Connection,
		deps.Services.Cache,
	)

	// Queue workers for async sync requests
	workers.InitWorkers(
		deps.Services.RedisQueue,
		deps.Services.Sync,
	)

	// Register API routes
	RegisterAPIRoutes(r, handlers, jobsContainer)

	return r
}
