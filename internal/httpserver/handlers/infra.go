package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
)

const timeLayout = "2006-01-02 15:04:05"

type componentStatus struct {
	OK          bool   `json:"ok"`
	Mode        string `json:"mode,omitempty"`
	Root        string `json:"root,omitempty"`
	Documents   *int   `json:"documents,omitempty"`
	Routes      *int   `json:"routes,omitempty"`
	LastRebuild string `json:"last_rebuild,omitempty"`
	LastSync    string `json:"last_sync,omitempty"`
	Impact      string `json:"impact,omitempty"`
	Error       string `json:"error,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"watcher":   watcherStatus(d),
			"directory": directoryStatus(d),
			"proxy": {
				OK:   d.Router.Enabled(),
				Mode: proxyMode(d),
			},
			"redis": checkRedis(r.Context(), d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Status:     overallStatus(components),
			Components: components,
		})
	}
}

func overallStatus(components map[string]componentStatus) string {
	if !components["directory"].OK || !components["watcher"].OK {
		return "starting"
	}
	if !components["redis"].OK || !components["proxy"].OK {
		return "degraded"
	}
	return "ok"
}

func watcherStatus(d deps.Deps) componentStatus {
	if d.Watcher == nil {
		return componentStatus{OK: false, Error: "not started"}
	}
	mode := string(d.Watcher.Mode())
	documents := d.Ports.Count()
	return componentStatus{
		OK:        mode != "",
		Mode:      mode,
		Root:      d.Watcher.Root(),
		Documents: &documents,
	}
}

func directoryStatus(d deps.Deps) componentStatus {
	dir := d.Ports.Directory()
	if dir == nil {
		return componentStatus{OK: false, LastRebuild: "never"}
	}
	routes := dir.Len()
	return componentStatus{
		OK:          true,
		Routes:      &routes,
		LastRebuild: dir.BuiltAt().Format(timeLayout),
	}
}

func proxyMode(d deps.Deps) string {
	if !d.Router.Enabled() {
		return "disabled"
	}
	return "host:" + string(d.Router.Separator)
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{OK: true, Mode: "disabled", Impact: "directory-mirror-disabled"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := componentStatus{OK: true, Mode: "mirror", Impact: "directory-mirror-enabled"}
	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		status.OK = false
		status.Impact = "directory-mirror-stale"
		status.Error = err.Error()
	}

	if d.Mirror != nil {
		lastSync, err := d.Mirror.Status()
		if !lastSync.IsZero() {
			status.LastSync = lastSync.Format(timeLayout)
		}
		if err != nil && status.Error == "" {
			status.OK = false
			status.Impact = "directory-mirror-stale"
			status.Error = err.Error()
		}
	}
	return status
}
