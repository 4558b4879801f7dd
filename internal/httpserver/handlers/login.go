package handlers

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/MrSnakeDoc/portal/internal/auth"
	"github.com/MrSnakeDoc/portal/internal/domain"
	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
	"github.com/MrSnakeDoc/portal/internal/logger"
)

//go:embed assets/login.html assets/static
var assets embed.FS

var loginTmpl = template.Must(template.ParseFS(assets, "assets/login.html"))

type loginPage struct {
	Host         string
	To           string
	Error        string
	StaticPrefix string
}

func staticPrefix(d deps.Deps) string {
	if d.Policy.StaticPrefix == "" {
		return domain.DefaultStaticPrefix
	}
	return d.Policy.StaticPrefix
}

// LoginForm renders the password form. Without auth, or with a live
// session, it sends the browser straight to its target.
func LoginForm(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		to := auth.SafeRedirect(r.URL.Query().Get("to"))
		if d.Sessions == nil || d.Sessions.Authenticated(r) {
			http.Redirect(w, r, to, http.StatusFound)
			return
		}
		renderLogin(w, d, http.StatusOK, loginPage{Host: r.Host, To: to})
	}
}

// Login checks the submitted password and issues a session cookie.
// onFailure is called for every rejected attempt.
func Login(d deps.Deps, onFailure func(*http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Sessions == nil || d.Passwords == nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		if err := r.ParseForm(); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		to := auth.SafeRedirect(r.PostForm.Get("to"))

		if !d.Passwords.Check(r.PostForm.Get("password")) {
			if onFailure != nil {
				onFailure(r)
			}
			d.Logger.Warn("failed login attempt",
				logger.String("host", r.Host),
				logger.String("remote_ip", r.RemoteAddr))
			renderLogin(w, d, http.StatusUnauthorized, loginPage{Host: r.Host, To: to, Error: "Wrong password."})
			return
		}

		if err := d.Sessions.Issue(w); err != nil {
			d.Logger.Error("failed to issue session", logger.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		d.Logger.Info("owner logged in", logger.String("host", r.Host))
		http.Redirect(w, r, to, http.StatusSeeOther)
	}
}

// Logout clears the session cookie.
func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Sessions != nil {
			d.Sessions.Clear(w)
		}
		http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
	}
}

// StaticPattern is the chi route pattern for Static.
func StaticPattern(d deps.Deps) string {
	return staticPrefix(d) + "*"
}

// Static serves the login page assets under the static prefix.
func Static(d deps.Deps) http.Handler {
	sub, err := fs.Sub(assets, "assets/static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix(staticPrefix(d), http.FileServer(http.FS(sub)))
}

func renderLogin(w http.ResponseWriter, d deps.Deps, status int, page loginPage) {
	page.StaticPrefix = staticPrefix(d)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := loginTmpl.Execute(w, page); err != nil {
		d.Logger.Debug("failed to render login page", logger.Error(err))
	}
}
