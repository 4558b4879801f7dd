package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
	"github.com/MrSnakeDoc/portal/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/portal/internal/httpserver/mw"
)

func init() { Register("login", registerLogin) }

func registerLogin(r chi.Router, d deps.Deps) {
	limiter := mw.NewRateLimiter(mw.RateLimitConfig{
		PerMinute:  d.LoginRate.PerMinute,
		PerHour:    d.LoginRate.PerHour,
		TrustProxy: d.TrustProxy,
	})

	r.Get("/login", handlers.LoginForm(d))
	r.With(limiter.Limit).Post("/login", handlers.Login(d, limiter.Penalize))
	r.Post("/logout", handlers.Logout(d))
	r.Handle(handlers.StaticPattern(d), handlers.Static(d))
}
