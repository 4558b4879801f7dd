package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/portal/internal/auth"
	"github.com/MrSnakeDoc/portal/internal/domain"
	"github.com/MrSnakeDoc/portal/internal/index"
	"github.com/MrSnakeDoc/portal/internal/logger"
	"github.com/MrSnakeDoc/portal/internal/proxy"
	"github.com/MrSnakeDoc/portal/internal/scheduler"
)

// WatcherStatus is the read side of the manifest watcher used by /infra.
type WatcherStatus interface {
	Mode() scheduler.WatchMode
	Root() string
}

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time // for testing, defaults to time.Now
	ListenPort   string           // own listen address, used by the proxy loop guard
	AllowedHosts []string         // Host headers allowed to reach admin routes
	AllowedCIDRS []string         // IPs allowed to reach admin routes
	TrustProxy   bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)

	Ports         *index.PortIndex       // merged port directory
	Watcher       WatcherStatus          // nil in tests that don't start one
	Mirror        *scheduler.RedisMirror // nil when the redis mirror is disabled
	RedisClient   *redis.Client          // nil when the redis mirror is disabled
	ReloadTrigger chan struct{}          // Channel to trigger a manual manifest rescan

	Router    domain.HostRouter
	Policy    domain.AccessPolicy
	Forwarder *proxy.Forwarder

	Auth      auth.Authenticator    // session predicate, auth.Open when auth is disabled
	Sessions  *auth.Sessions        // nil when auth is disabled
	Passwords *auth.PasswordChecker // nil when auth is disabled
	LoginRate LoginRateConfig
}

// LoginRateConfig bounds password attempts per client IP.
type LoginRateConfig struct {
	PerMinute int
	PerHour   int
}
