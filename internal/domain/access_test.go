package domain

import (
	"net/http"
	"testing"
)

func TestDecide(t *testing.T) {
	policy := DefaultAccessPolicy()
	const html = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	tests := []struct {
		name       string
		req        AccessRequest
		wantKind   DecisionKind
		wantTarget string
	}{
		{
			name:     "authenticated private port",
			req:      AccessRequest{Authenticated: true, Path: "/foo", Method: http.MethodPost, Accept: "application/json"},
			wantKind: Allow,
		},
		{
			name:     "unauthenticated public port",
			req:      AccessRequest{Public: true, Path: "/foo", Method: http.MethodGet, Accept: html},
			wantKind: Allow,
		},
		{
			name:       "browser navigation to private port",
			req:        AccessRequest{Path: "/foo", Method: http.MethodGet, Accept: html},
			wantKind:   RedirectToLogin,
			wantTarget: "/foo",
		},
		{
			name:       "redirect keeps the query",
			req:        AccessRequest{Path: "/foo/bar", RawQuery: "a=1&b=2", Method: http.MethodGet, Accept: html},
			wantKind:   RedirectToLogin,
			wantTarget: "/foo/bar?a=1&b=2",
		},
		{
			name:     "redirect to root omits target",
			req:      AccessRequest{Path: "/", Method: http.MethodGet, Accept: html},
			wantKind: RedirectToLogin,
		},
		{
			name:     "redirect to root with query omits target",
			req:      AccessRequest{Path: "/", RawQuery: "utm=mail", Method: http.MethodGet, Accept: html},
			wantKind: RedirectToLogin,
		},
		{
			name:     "redirect to normalised root with query omits target",
			req:      AccessRequest{Path: "//./", RawQuery: "a=1", Method: http.MethodGet, Accept: html},
			wantKind: RedirectToLogin,
		},
		{
			name:       "redirect target is normalised",
			req:        AccessRequest{Path: "//foo/./bar/../baz", Method: http.MethodGet, Accept: html},
			wantKind:   RedirectToLogin,
			wantTarget: "/foo/baz",
		},
		{
			name:     "login page",
			req:      AccessRequest{Path: "/login", Method: http.MethodGet, Accept: html},
			wantKind: AllowLocal,
		},
		{
			name:     "login page trailing slash",
			req:      AccessRequest{Path: "/login/", Method: http.MethodGet, Accept: html},
			wantKind: AllowLocal,
		},
		{
			name:       "login lookalike",
			req:        AccessRequest{Path: "/login/admin", Method: http.MethodGet, Accept: html},
			wantKind:   RedirectToLogin,
			wantTarget: "/login/admin",
		},
		{
			name:     "api request to private port",
			req:      AccessRequest{Path: "/foo", Method: http.MethodGet, Accept: "application/json"},
			wantKind: RejectUnauthorized,
		},
		{
			name:     "wildcard accept is not navigation",
			req:      AccessRequest{Path: "/foo", Method: http.MethodGet, Accept: "*/*"},
			wantKind: RejectUnauthorized,
		},
		{
			name:     "static asset",
			req:      AccessRequest{Path: "/_static/login.css", Method: http.MethodGet},
			wantKind: AllowLocal,
		},
		{
			name:     "static asset with post",
			req:      AccessRequest{Path: "/_static/login.css", Method: http.MethodPost},
			wantKind: RejectUnauthorized,
		},
		{
			name:     "static prefix traversal",
			req:      AccessRequest{Path: "/_static/../secret", Method: http.MethodGet, Accept: "application/json"},
			wantKind: RejectUnauthorized,
		},
		{
			name:     "static lookalike",
			req:      AccessRequest{Path: "/_staticfoo", Method: http.MethodGet},
			wantKind: RejectUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.req, policy)
			if d.Kind != tt.wantKind {
				t.Fatalf("Decide() kind = %v, want %v", d.Kind, tt.wantKind)
			}
			if d.Target != tt.wantTarget {
				t.Errorf("Decide() target = %q, want %q", d.Target, tt.wantTarget)
			}
		})
	}
}

func TestDecideLoginIsAllowed(t *testing.T) {
	d := Decide(AccessRequest{Path: "/login", Method: http.MethodGet, Accept: "text/html"}, DefaultAccessPolicy())
	if !d.Allowed() {
		t.Errorf("login page decision %v should be allowed", d.Kind)
	}
}

func TestDecideUpgrade(t *testing.T) {
	policy := DefaultAccessPolicy()

	tests := []struct {
		name string
		req  AccessRequest
		want DecisionKind
	}{
		{name: "authenticated", req: AccessRequest{Authenticated: true, Path: "/ws", Method: http.MethodGet}, want: Allow},
		{name: "public", req: AccessRequest{Public: true, Path: "/ws", Method: http.MethodGet}, want: Allow},
		{name: "browser accept", req: AccessRequest{Path: "/ws", Method: http.MethodGet, Accept: "text/html"}, want: RejectUnauthorized},
		{name: "login path", req: AccessRequest{Path: "/login", Method: http.MethodGet, Accept: "text/html"}, want: RejectUnauthorized},
		{name: "static path", req: AccessRequest{Path: "/_static/socket", Method: http.MethodGet}, want: RejectUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecideUpgrade(tt.req, policy); got.Kind != tt.want {
				t.Errorf("DecideUpgrade() = %v, want %v", got.Kind, tt.want)
			}
		})
	}
}

func TestCleanPath(t *testing.T) {
	tests := map[string]string{
		"":            "/",
		"/":           "/",
		"foo":         "/foo",
		"/a/../../b":  "/b",
		"/a//b/":      "/a/b",
		"/_static/..": "/",
	}
	for in, want := range tests {
		if got := CleanPath(in); got != want {
			t.Errorf("CleanPath(%q) = %q, want %q", in, got, want)
		}
	}
}
