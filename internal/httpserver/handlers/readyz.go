package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready  bool `json:"ready"`
	Routes int  `json:"routes"`
}

// Readyz reports 503 until the first port directory has been published.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dir := d.Ports.Directory()
		if dir == nil {
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{})
			return
		}
		writeJSON(w, http.StatusOK, readyzResponse{Ready: true, Routes: dir.Len()})
	}
}
