package domain

import (
	"net/http"
	"path"
	"regexp"
	"strings"
)

const DefaultStaticPrefix = "/_static/"

var defaultLoginPath = regexp.MustCompile(`^/login/?$`)

// DecisionKind is the outcome of the authorization gate.
type DecisionKind int

const (
	// Allow forwards the request to the backend.
	Allow DecisionKind = iota
	// AllowLocal lets the gateway itself answer (login page and its assets).
	AllowLocal
	RedirectToLogin
	RejectUnauthorized
)

func (k DecisionKind) String() string {
	switch k {
	case Allow:
		return "allow"
	case AllowLocal:
		return "allow_local"
	case RedirectToLogin:
		return "redirect_to_login"
	default:
		return "reject_unauthorized"
	}
}

// Decision is computed per request and never cached.
type Decision struct {
	Kind   DecisionKind
	Target string // for RedirectToLogin; empty means the root path
}

// Allowed reports whether the request may proceed unauthenticated.
func (d Decision) Allowed() bool {
	return d.Kind == Allow || d.Kind == AllowLocal
}

// AccessRequest carries what the gate looks at.
type AccessRequest struct {
	Authenticated bool
	Public        bool
	Path          string
	RawQuery      string
	Method        string
	Accept        string
}

// AccessPolicy holds the paths an unauthenticated browser may reach.
type AccessPolicy struct {
	StaticPrefix string
	LoginPath    *regexp.Regexp
}

func DefaultAccessPolicy() AccessPolicy {
	return AccessPolicy{StaticPrefix: DefaultStaticPrefix, LoginPath: defaultLoginPath}
}

// Decide runs the authorization gate for a plain HTTP request.
// Path checks use the cleaned path so dot segments cannot reach
// the static or login exemptions.
func Decide(req AccessRequest, p AccessPolicy) Decision {
	if req.Authenticated || req.Public {
		return Decision{Kind: Allow}
	}

	clean := CleanPath(req.Path)

	if req.Method == http.MethodGet && p.StaticPrefix != "" && strings.HasPrefix(clean+"/", p.StaticPrefix) {
		return Decision{Kind: AllowLocal}
	}

	if strings.Contains(strings.ToLower(req.Accept), "text/html") {
		if p.LoginPath != nil && p.LoginPath.MatchString(clean) {
			return Decision{Kind: AllowLocal}
		}
		return Decision{Kind: RedirectToLogin, Target: redirectTarget(clean, req.RawQuery)}
	}

	return Decision{Kind: RejectUnauthorized}
}

// DecideUpgrade runs the same gate for a WebSocket handshake, where no
// redirect is possible: anything but Allow rejects.
func DecideUpgrade(req AccessRequest, p AccessPolicy) Decision {
	if d := Decide(req, p); d.Kind == Allow {
		return d
	}
	return Decision{Kind: RejectUnauthorized}
}

// CleanPath returns the rooted, dot-free form of p.
func CleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	return path.Clean(p)
}

func redirectTarget(clean, rawQuery string) string {
	// Root is the default landing page after login.
	if clean == "/" {
		return ""
	}
	if rawQuery != "" {
		return clean + "?" + rawQuery
	}
	return clean
}
