package routes

import (
	"os"

	"seafarer/bosun/internal/api"
	"seafarer/bosun/internal/jobs"
	"seafarer/bosun/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// RegisterAPIRoutes registers all API v1 routes and handlers
// This keeps API route registration separate from the main router setup
func RegisterAPIRoutes(r chi.Router, handlers *api.Handlers, jobsContainer *jobs.JobsContainer) {

	jwtSecret := []byte(os.Getenv("API_JWT_SECRET"))

	// API v1 routes
	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(middleware.RateLimitMiddleware)
		v1.Use(middleware.AuthMiddleware(jwtSecret)) // global: all routes must be authenticated

		// Connection lifecycle
		v1.Get("/connections/url", handlers.GetConnectURL())
		v1.Get("/connections/callback", handlers.OAuthCallback(jobsContainer.Trigger))
		v1.Get("/connections/status", handlers.GetConnectionStatus())
		v1.Delete("/connections", handlers.DeleteConnection())

		// Sync triggers and status
		v1.Post("/sync/full", handlers.TriggerFullSync())
		v1.Post("/sync/historic", handlers.TriggerHistoricExtract())
		v1.Post("/sync/{entityType}", handlers.TriggerSync())
		v1.Post("/sync/{entityType}/async", handlers.TriggerSyncAsync())
		v1.Get("/sync/status", handlers.GetSyncStatus())

		// Mirrored records
		v1.Get("/workitems", handlers.ListWorkItems())
		v1.Get("/workitems/{pelagicId}", handlers.GetWorkItem())
		v1.Get("/assets", handlers.ListAssets())
		v1.Get("/flows", handlers.ListFlows())
		v1.Get("/vessels/{vesselId}/assessments", handlers.ListVesselAssessments())
	})
}
