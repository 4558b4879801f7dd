package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Manifest discovery
	WorkspaceRoot    string        // root of the tree scanned for manifests
	ManifestPattern  string        // glob of manifest files, relative to WorkspaceRoot
	ManifestIgnore   string        // glob of directories never descended into
	ManifestMaxDepth int           // directory depth limit (negative = unlimited)
	WatchMode        string        // "auto" | "notify" | "poll"
	PollInterval     time.Duration // rescan interval in poll mode (default: 2s)

	// Proxy
	ProxyDomains     []string // suffixes identifying proxy hosts (empty = proxy disabled)
	ProxySeparator   byte     // '.' => 8080.example.com, '-' => 8080-example.com
	ProxyBackendHost string   // host every port is forwarded to (default: localhost)
	StaticPrefix     string   // path prefix of login page assets

	// Auth
	AuthMode             string // "password" | "none"
	Password             string
	HashedPassword       string // bcrypt, wins over Password
	SessionSecret        string
	SessionSecretFromEnv bool // false => random secret, sessions end on restart
	SessionCookie        string
	SessionTTL           time.Duration
	CookieDomain         string // optional, share the session with proxy subdomains
	CookieSecure         bool

	// Redis (optional directory mirror)
	RedisAddr           string        // ex: "localhost:6379", empty disables the mirror
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisInstance       string        // key namespace of this gateway
	RedisTTL            time.Duration // expiry of mirrored keys

	AllowedHosts []string // optional, restrict admin routes to specific Host headers
	AllowedCIDRS []string // optional, restrict admin routes to specific IPs or CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("PORTAL_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("PORTAL_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("PORTAL_LOG_LEVEL", "info"),
		PrettyLog: mustBool("PORTAL_PRETTY_LOG", true),

		// Manifests
		WorkspaceRoot:    getenv("PORTAL_WORKSPACE_ROOT", "."),
		ManifestPattern:  getenv("PORTAL_MANIFEST_GLOB", "**/.portal/ports.yaml"),
		ManifestIgnore:   getenv("PORTAL_MANIFEST_IGNORE", "**/{node_modules,.git}/**"),
		ManifestMaxDepth: getenvInt("PORTAL_MANIFEST_MAX_DEPTH", 5),
		WatchMode:        mustOneOf("PORTAL_WATCH_MODE", "auto", "auto", "notify", "poll"),
		PollInterval:     mustDuration("PORTAL_POLL_INTERVAL", 2*time.Second),

		// Proxy
		ProxyDomains:     splitAndTrim(getenv("PORTAL_PROXY_DOMAINS", "")),
		ProxySeparator:   mustSeparator("PORTAL_PROXY_SEPARATOR"),
		ProxyBackendHost: getenv("PORTAL_PROXY_BACKEND_HOST", "localhost"),
		StaticPrefix:     getenv("PORTAL_STATIC_PREFIX", "/_static/"),

		// Auth
		AuthMode:       mustOneOf("PORTAL_AUTH", "password", "password", "none"),
		Password:       getenv("PORTAL_PASSWORD", ""),
		HashedPassword: getenv("PORTAL_HASHED_PASSWORD", ""),
		SessionSecret:  getenv("PORTAL_SESSION_SECRET", ""),
		SessionCookie:  getenv("PORTAL_SESSION_COOKIE", "portal_session"),
		SessionTTL:     mustDuration("PORTAL_SESSION_TTL", 7*24*time.Hour),
		CookieDomain:   getenv("PORTAL_COOKIE_DOMAIN", ""),
		CookieSecure:   mustBool("PORTAL_COOKIE_SECURE", false),

		// Redis settings
		RedisAddr:           getenv("PORTAL_REDIS_ADDR", ""),
		RedisUser:           getenv("PORTAL_REDIS_USERNAME", ""),
		RedisPassword:       getenv("PORTAL_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("PORTAL_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisInstance:       getenv("PORTAL_REDIS_INSTANCE", "default"),
		RedisTTL:            mustDuration("PORTAL_REDIS_TTL", 24*time.Hour),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("PORTAL_ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("PORTAL_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("PORTAL_TRUST_PROXY", false),
	}

	if cfg.AuthMode == "password" && cfg.Password == "" && cfg.HashedPassword == "" {
		panic("❌ FATAL: PORTAL_PASSWORD or PORTAL_HASHED_PASSWORD is required when PORTAL_AUTH=password")
	}

	cfg.SessionSecretFromEnv = cfg.SessionSecret != ""
	if !cfg.SessionSecretFromEnv {
		cfg.SessionSecret = randomSecret()
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	for _, s := range []*string{&cp.Password, &cp.HashedPassword, &cp.SessionSecret, &cp.RedisPassword} {
		if *s != "" {
			*s = "***REDACTED***"
		}
	}
	return cp
}

// ProxyEnabled reports whether any proxy domain is configured.
func (c *Config) ProxyEnabled() bool {
	return len(c.ProxyDomains) > 0
}

// RedisEnabled reports whether the directory mirror is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func mustOneOf(key, def string, allowed ...string) string {
	v := strings.ToLower(getenv(key, def))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	panic(fmt.Sprintf("❌ FATAL: Invalid value for %s: %s (expected one of %s)", key, v, strings.Join(allowed, ", ")))
}

func mustSeparator(key string) byte {
	switch v := getenv(key, "."); v {
	case ".", "-":
		return v[0]
	default:
		panic(fmt.Sprintf("❌ FATAL: Invalid value for %s: %q (expected \".\" or \"-\")", key, v))
	}
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("❌ FATAL: cannot generate session secret: %v", err))
	}
	return hex.EncodeToString(b)
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
