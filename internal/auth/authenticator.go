// Package auth decides whether a request belongs to the gateway owner.
package auth

import (
	"net/http"
	"net/url"
	"strings"
)

// Authenticator is the session predicate consumed by the proxy gate.
type Authenticator interface {
	Authenticated(r *http.Request) bool
}

// Open treats every request as authenticated (auth disabled).
type Open struct{}

func (Open) Authenticated(*http.Request) bool { return true }

// LoginPath is where unauthenticated browsers are sent.
const LoginPath = "/login"

// LoginURL builds the login redirect for a target path. An empty target
// sends the user back to the root after logging in.
func LoginURL(to string) string {
	if to == "" {
		return LoginPath
	}
	return LoginPath + "?to=" + url.QueryEscape(to)
}

// SafeRedirect returns to when it is a local absolute path, "/" otherwise.
func SafeRedirect(to string) string {
	if to == "" || to[0] != '/' {
		return "/"
	}
	if strings.HasPrefix(to, "//") || strings.HasPrefix(to, "/\\") {
		return "/"
	}
	return to
}
