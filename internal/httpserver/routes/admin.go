package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
	"github.com/MrSnakeDoc/portal/internal/httpserver/handlers"
)

func init() { Register("admin", registerAdmin) }

func registerAdmin(r chi.Router, d deps.Deps) {
	admin := r.With(adminGuard(d)...)
	admin.Get("/infra", handlers.Infra(d))
	admin.Post("/reload", handlers.Reload(d))
}
