package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/annotate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/annotate/internal/httpserver/handlers"
)

func init() { Register(registerComments) }

func registerComments(r chi.Router, d deps.Deps) {
	r.Get("/api/comments", handlers.ListComments(d))
	r.With(limited(d)).Post("/api/comments", handlers.CreateComment(d))
	r.With(admin(d)...).Delete("/api/comments/{id}", handlers.DeleteComment(d))
}
