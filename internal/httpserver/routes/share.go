package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/annotate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/annotate/internal/httpserver/handlers"
)

func init() { Register(registerShare) }

func registerShare(r chi.Router, d deps.Deps) {
	r.With(limited(d)).Post("/api/share", handlers.CreateShare(d))
	r.Get("/api/share/{id}", handlers.GetShare(d))
	r.Get("/s/{id}", handlers.ShareRedirect(d))
}
