package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrSnakeDoc/portal/internal/config"
	"github.com/MrSnakeDoc/portal/internal/logger"
)

func testConfig(root string) *config.Config {
	return &config.Config{
		ListenPort:       ":0",
		ShutdownTimeout:  time.Second,
		WorkspaceRoot:    root,
		ManifestPattern:  "**/.portal/ports.yaml",
		ManifestIgnore:   "**/{node_modules,.git}/**",
		ManifestMaxDepth: 5,
		WatchMode:        "poll",
		PollInterval:     20 * time.Millisecond,
		ProxyDomains:     []string{"localtest.me"},
		ProxySeparator:   '.',
		ProxyBackendHost: "127.0.0.1",
		StaticPrefix:     "/_static/",
		AuthMode:         "password",
		Password:         "secret",
		SessionSecret:    "test-session-secret",
		SessionTTL:       time.Hour,
	}
}

func TestBuildServesManifestPorts(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "hello from "+r.URL.Path)
	}))
	defer backend.Close()
	u, _ := url.Parse(backend.URL)

	root := t.TempDir()
	dir := filepath.Join(root, "svc", ".portal")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create manifest dir: %v", err)
	}
	manifest := "ports:\n  - \"" + u.Port() + "\"\n"
	if err := os.WriteFile(filepath.Join(dir, "ports.yaml"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("Failed to write manifest: %v", err)
	}

	a, err := build(testConfig(root), logger.Nop())
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.watcher.Start(ctx); err != nil {
		t.Fatalf("watcher.Start() error = %v", err)
	}
	defer a.watcher.Stop()

	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/x", nil)
	req.Host = u.Port() + ".localtest.me"
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("proxied request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK || string(body) != "hello from /x" {
		t.Errorf("public port = %d %q, want 200 from the backend", resp.StatusCode, body)
	}
}

func TestBuildRejectsBadPasswordHash(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.HashedPassword = "not-a-bcrypt-hash"

	if _, err := build(cfg, logger.Nop()); err == nil {
		t.Error("build() with an invalid bcrypt hash should fail")
	}
}

func TestBuildWithoutAuth(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.AuthMode = "none"
	cfg.Password = ""

	a, err := build(cfg, logger.Nop())
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	if a.redisClient != nil {
		t.Error("redis client should stay nil without PORTAL_REDIS_ADDR")
	}
}
