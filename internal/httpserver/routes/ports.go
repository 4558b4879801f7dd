package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
	"github.com/MrSnakeDoc/portal/internal/httpserver/handlers"
)

func init() { Register("ports", registerPorts) }

func registerPorts(r chi.Router, d deps.Deps) {
	r.Get("/api/ports", handlers.Ports(d))
}
