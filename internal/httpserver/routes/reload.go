package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/annotate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/annotate/internal/httpserver/handlers"
)

func init() { Register(registerReload) }

func registerReload(r chi.Router, d deps.Deps) {
	r.With(admin(d)...).Post("/reload", handlers.Reload(d))
}
