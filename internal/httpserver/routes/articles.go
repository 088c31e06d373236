package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/annotate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/annotate/internal/httpserver/handlers"
)

func init() { Register(registerArticles) }

func registerArticles(r chi.Router, d deps.Deps) {
	r.Route("/api/articles", func(r chi.Router) {
		r.Get("/", handlers.ListArticles(d))
		r.Get("/{slug}/annotated", handlers.Annotated(d))
		r.Post("/{slug}/layout", handlers.Layout(d))
		r.Get("/{slug}/locate", handlers.Locate(d))
	})
}
