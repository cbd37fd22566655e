package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dinehub/assignment-api/internal/assignment"
	"github.com/dinehub/assignment-api/internal/config"
	"github.com/dinehub/assignment-api/internal/database"
	"github.com/dinehub/assignment-api/internal/enum"
	"github.com/dinehub/assignment-api/internal/handler"
	mw "github.com/dinehub/assignment-api/internal/middleware"
	"github.com/dinehub/assignment-api/internal/ws"
)

// New creates a Chi router with all assignment routes wired up. Applies
// authentication, branch scoping, and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, engine *assignment.Engine, monitor *assignment.Monitor, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "https://staff.dinehub.app", "https://admin.dinehub.app"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Liveness probe; readiness is GET /assignment/system/health.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// WebSocket route (handles auth internally via query param).
	r.Get("/ws/assignment", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	r.Route("/assignment", func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		waiterHandler := handler.NewWaiterHandler(engine.Registry(), queries)
		r.Route("/waiters", func(r chi.Router) {
			r.Use(mw.RequireBranchAccess)
			waiterHandler.RegisterRoutes(r)
		})

		queueHandler := handler.NewQueueHandler(engine.Queue(), engine, engine.Store())
		r.Route("/queue", func(r chi.Router) {
			r.Use(mw.RequireBranchAccess)
			queueHandler.RegisterRoutes(r)
		})

		hierarchyHandler := handler.NewHierarchyHandler(queries)
		hierarchyHandler.RegisterRoutes(r)

		systemHandler := handler.NewSystemHandler(engine.Registry(), queries, monitor)
		r.Get("/stats", systemHandler.Stats)

		// Manual override and operator endpoints are admin-only.
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleSuperAdmin, enum.RoleHotelAdmin, enum.RoleBranchAdmin))

			assignHandler := handler.NewAssignHandler(engine)
			assignHandler.RegisterRoutes(r)

			r.Get("/system/health", systemHandler.Health)
			r.Get("/system/metrics", systemHandler.Metrics)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleSuperAdmin, enum.RoleHotelAdmin))

			r.Post("/system/reset-round-robin", systemHandler.ResetRoundRobin)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleSuperAdmin))

			r.Post("/system/force-monitoring", systemHandler.ForceMonitoring)
		})
	})

	return r
}
