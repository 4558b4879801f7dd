package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/portal/internal/auth"
	"github.com/MrSnakeDoc/portal/internal/domain"
	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
	"github.com/MrSnakeDoc/portal/internal/logger"
	"github.com/MrSnakeDoc/portal/internal/proxy"
	"github.com/MrSnakeDoc/portal/internal/utils"
)

// PortProxy forwards requests whose Host names a port or alias under one
// of the proxy domains. Everything else goes to next.
func PortProxy(d deps.Deps) func(http.Handler) http.Handler {
	if !d.Router.Enabled() {
		return func(next http.Handler) http.Handler { return next }
	}

	authn := d.Auth
	if authn == nil {
		authn = auth.Open{}
	}
	selfPort := utils.PortOf(d.ListenPort)
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("proxy")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := d.Router.Match(r.Host)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			port, found := d.Ports.Resolve(token)
			if !found {
				port = token
			}

			req := domain.AccessRequest{
				Authenticated: authn.Authenticated(r),
				Public:        d.Ports.IsPublic(token),
				Path:          r.URL.Path,
				RawQuery:      r.URL.RawQuery,
				Method:        r.Method,
				Accept:        r.Header.Get("Accept"),
			}

			upgrade := proxy.IsUpgrade(r)
			var decision domain.Decision
			if upgrade {
				decision = domain.DecideUpgrade(req, d.Policy)
			} else {
				decision = domain.Decide(req, d.Policy)
			}

			switch decision.Kind {
			case domain.AllowLocal:
				next.ServeHTTP(w, r)
				return
			case domain.RedirectToLogin:
				http.Redirect(w, r, auth.LoginURL(decision.Target), http.StatusFound)
				return
			case domain.RejectUnauthorized:
				log.Debug("unauthorized proxy attempt",
					logger.String("token", token),
					logger.String("path", r.URL.Path),
					logger.Bool("upgrade", upgrade))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !utils.ValidPortNumber(port) {
				http.Error(w, "Not Found", http.StatusNotFound)
				return
			}
			if port == selfPort && isLoopback(d.Forwarder.BackendHost()) {
				log.Warn("refusing to proxy to the gateway itself", logger.String("token", token))
				http.Error(w, "Loop Detected", http.StatusLoopDetected)
				return
			}

			if upgrade {
				if err := d.Forwarder.ForwardUpgrade(w, r, port); err != nil {
					log.Warn("failed to forward upgrade",
						logger.String("token", token),
						logger.Error(err))
					http.Error(w, "Bad Request", http.StatusBadRequest)
				}
				return
			}
			d.Forwarder.Forward(w, r, port)
		})
	}
}

func isLoopback(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1", "0.0.0.0", "":
		return true
	}
	return false
}
