package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/portal/internal/auth"
	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
	"github.com/MrSnakeDoc/portal/internal/index"
)

type portsResponse struct {
	BuiltAt     time.Time     `json:"built_at"`
	Routes      []index.Route `json:"routes"`
	PublicPorts []string      `json:"public_ports"`
	Domains     []string      `json:"domains,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Ports lists the merged directory for the owner.
func Ports(d deps.Deps) http.HandlerFunc {
	authn := d.Auth
	if authn == nil {
		authn = auth.Open{}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !authn.Authenticated(r) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}

		dir := d.Ports.Directory()
		if dir == nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "port directory not ready"})
			return
		}

		writeJSON(w, http.StatusOK, portsResponse{
			BuiltAt:     dir.BuiltAt(),
			Routes:      dir.Routes(),
			PublicPorts: dir.PublicPorts(),
			Domains:     d.Router.Suffixes,
		})
	}
}
