package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// The frontend is served cross-site and authenticates with a cookie,
	// so origins are reflected and credentials allowed.
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  func(r *http.Request, origin string) bool { return true },
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/auth/register", apiHandler.RegisterHandler)
		r.Post("/auth/login", apiHandler.LoginHandler)
		r.Post("/auth/logout", apiHandler.LogoutHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.Authenticate)

			r.Get("/auth/me", apiHandler.MeHandler)
			r.Post("/auth/update-profile", apiHandler.UpdateProfileHandler)

			// Transcript routes
			r.Get("/messages", apiHandler.ListMessagesHandler)
			r.Post("/messages", apiHandler.AppendMessageHandler)
			r.Delete("/messages", apiHandler.ClearMessagesHandler)

			// Chat turn against the generation service
			r.Post("/chat", apiHandler.ChatHandler)

			// Knowledge base is readable by any authenticated user
			r.Get("/knowledge", apiHandler.ListKnowledgeHandler)

			// Mutations are admin-gated
			r.Group(func(r chi.Router) {
				r.Use(apiHandler.RequireAdmin)

				r.Post("/knowledge", apiHandler.CreateKnowledgeHandler)
				r.Put("/knowledge/{id}", apiHandler.UpdateKnowledgeHandler)
				r.Delete("/knowledge/{id}", apiHandler.DeleteKnowledgeHandler)
			})
		})
	})

	return r
}
