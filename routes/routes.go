package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/retrieval-gateway/app"
	"github.com/upb/retrieval-gateway/handlers"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthHandler := handlers.NewHealthHandler(deps.AuditDB, deps.Store, deps.Logger)
	queryHandler := handlers.NewQueryHandler(deps.Pipeline, deps.Logger)
	documentHandler := handlers.NewDocumentHandler(deps.Ingest, deps.Logger)
	statsHandler := handlers.NewStatsHandler(deps.Store, deps.Embedder, deps.Logger)
	violationsHandler := handlers.NewViolationsHandler(deps.Guardrails, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", healthHandler.HandleHealth)
	r.Get("/readyz", healthHandler.HandleReadiness)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(deps.IdentityMiddleware.ResolveIdentity)

		r.Post("/query", queryHandler.HandleQuery)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", documentHandler.HandleIngest)
			r.Post("/bulk", documentHandler.HandleIngestBulk)
			r.Delete("/{id}", documentHandler.HandleDelete)
		})

		r.Get("/stats", statsHandler.HandleStats)
		r.Get("/violations/summary", violationsHandler.HandleSummary)

		r.Post("/admin/clear", statsHandler.HandleClear)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
