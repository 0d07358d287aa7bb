/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/groups/{groupID}/events  Group schedule view (reconciles invitations)
  /api/events/*                 Event CRUD, occurrences, attendance
  /api/users/*                  Streaks and points history

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Group schedule view
		r.Get("/groups/{groupID}/events", h.ListGroupEvents)

		// Event routes
		r.Route("/events", func(r chi.Router) {
			r.Post("/", h.SaveEvent)
			r.Get("/{id}", h.GetEvent)
			r.Get("/{id}/occurrences", h.GetOccurrences)
			r.Post("/{id}/cancel", h.CancelOccurrence)
			r.Post("/{id}/truncate", h.TruncateSeries)
			r.Get("/{id}/invitations", h.ListInvitations)
			r.Post("/{id}/invitations/respond", h.RespondInvitation)
			r.Post("/{id}/attendance", h.SaveAttendance)
		})

		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Get("/{id}/streaks", h.GetUserStreaks)
			r.Get("/{id}/points", h.GetUserPoints)
		})
	})

	return r
}
