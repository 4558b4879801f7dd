package mw

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/MrSnakeDoc/portal/internal/domain"
	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
	"github.com/MrSnakeDoc/portal/internal/index"
	"github.com/MrSnakeDoc/portal/internal/proxy"
	"github.com/MrSnakeDoc/portal/internal/sources/manifest"
)

type fixedAuth bool

func (a fixedAuth) Authenticated(*http.Request) bool { return bool(a) }

func newProxyDeps(t *testing.T, authed bool, entries ...string) deps.Deps {
	t.Helper()
	idx := index.NewPortIndex(nil)
	idx.Upsert("app/.portal/ports.yaml", manifest.Document{Entries: entries})
	idx.Rebuild()

	return deps.Deps{
		ListenPort: ":9999",
		Ports:      idx,
		Router:     domain.NewHostRouter([]string{"dev.example.com"}, '.'),
		Policy:     domain.DefaultAccessPolicy(),
		Forwarder:  proxy.NewForwarder("127.0.0.1", nil, nil),
		Auth:       fixedAuth(authed),
	}
}

func startBackend(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "backend:"+r.URL.RequestURI())
	}))
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("Failed to parse backend URL: %v", err)
	}
	return u.Port()
}

var localHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	_, _ = io.WriteString(w, "local")
})

func TestPortProxy(t *testing.T) {
	port := startBackend(t)

	tests := []struct {
		name       string
		authed     bool
		entries    []string
		host       string
		path       string
		accept     string
		wantStatus int
		wantBody   string
		wantLoc    string
	}{
		{
			name:       "public bare port is forwarded without a session",
			entries:    []string{port},
			host:       port + ".dev.example.com",
			path:       "/a/b?x=1",
			wantStatus: http.StatusOK,
			wantBody:   "backend:/a/b?x=1",
		},
		{
			name:       "alias is forwarded for the owner",
			authed:     true,
			entries:    []string{"api:" + port},
			host:       "api.dev.example.com",
			path:       "/health",
			wantStatus: http.StatusOK,
			wantBody:   "backend:/health",
		},
		{
			name:       "unlisted port is forwarded for the owner",
			authed:     true,
			host:       port + ".dev.example.com",
			path:       "/",
			wantStatus: http.StatusOK,
			wantBody:   "backend:/",
		},
		{
			name:       "browser without session is sent to login",
			entries:    []string{"api:" + port},
			host:       "api.dev.example.com",
			path:       "/dash?tab=2",
			accept:     "text/html,application/xhtml+xml",
			wantStatus: http.StatusFound,
			wantLoc:    "/login?to=%2Fdash%3Ftab%3D2",
		},
		{
			name:       "browser on root is sent to bare login",
			host:       port + ".dev.example.com",
			path:       "/",
			accept:     "text/html",
			wantStatus: http.StatusFound,
			wantLoc:    "/login",
		},
		{
			name:       "browser on root with query is sent to bare login",
			host:       port + ".dev.example.com",
			path:       "/?utm=mail",
			accept:     "text/html",
			wantStatus: http.StatusFound,
			wantLoc:    "/login",
		},
		{
			name:       "api client without session is rejected",
			entries:    []string{"api:" + port},
			host:       "api.dev.example.com",
			path:       "/data",
			accept:     "application/json",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "alias target is not public",
			entries:    []string{"api:" + port},
			host:       port + ".dev.example.com",
			path:       "/data",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "login page is served locally",
			host:       port + ".dev.example.com",
			path:       "/login",
			accept:     "text/html",
			wantStatus: http.StatusOK,
			wantBody:   "local",
		},
		{
			name:       "static assets are served locally",
			host:       port + ".dev.example.com",
			path:       "/_static/app.css",
			wantStatus: http.StatusOK,
			wantBody:   "local",
		},
		{
			name:       "foreign host goes to the gateway routes",
			host:       "other.example.com",
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   "local",
		},
		{
			name:       "unknown alias is not found",
			authed:     true,
			host:       "nope.dev.example.com",
			path:       "/",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "out of range port is not found",
			authed:     true,
			host:       "70000.dev.example.com",
			path:       "/",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "own port is a loop",
			authed:     true,
			host:       "9999.dev.example.com",
			path:       "/",
			wantStatus: http.StatusLoopDetected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := PortProxy(newProxyDeps(t, tt.authed, tt.entries...))(localHandler)

			req := httptest.NewRequest(http.MethodGet, "http://"+tt.host+tt.path, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %q)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if tt.wantLoc != "" && rec.Header().Get("Location") != tt.wantLoc {
				t.Errorf("Location = %q, want %q", rec.Header().Get("Location"), tt.wantLoc)
			}
		})
	}
}

func TestPortProxyRejectsUnauthenticatedUpgrade(t *testing.T) {
	d := newProxyDeps(t, false, "api:3000")
	h := PortProxy(d)(localHandler)

	req := httptest.NewRequest(http.MethodGet, "http://api.dev.example.com/ws", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestPortProxyDisabledWithoutDomains(t *testing.T) {
	d := newProxyDeps(t, true, "8000")
	d.Router = domain.NewHostRouter(nil, '.')
	h := PortProxy(d)(localHandler)

	req := httptest.NewRequest(http.MethodGet, "http://8000.dev.example.com/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Body.String() != "local" {
		t.Errorf("body = %q, want request to reach the gateway routes", rec.Body.String())
	}
}

func TestPortProxyForwardsAuthenticatedUpgrade(t *testing.T) {
	upgrader := websocket.Upgrader{}
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, append([]byte("echo:"), msg...)); err != nil {
				return
			}
		}
	}))
	defer backend.Close()

	u, err := url.Parse(backend.URL)
	if err != nil {
		t.Fatalf("Failed to parse backend URL: %v", err)
	}
	front := httptest.NewServer(PortProxy(newProxyDeps(t, true, "ws:"+u.Port()))(localHandler))
	defer front.Close()

	header := http.Header{}
	header.Set("Host", "ws.dev.example.com")
	wsURL := "ws" + strings.TrimPrefix(front.URL, "http") + "/socket"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("handshake status = %d, want 101", resp.StatusCode)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	_, reply, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if string(reply) != "echo:ping" {
		t.Errorf("reply = %q, want echo:ping", reply)
	}
}
