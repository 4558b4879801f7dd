package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/portal/internal/auth"
	"github.com/MrSnakeDoc/portal/internal/config"
	"github.com/MrSnakeDoc/portal/internal/domain"
	"github.com/MrSnakeDoc/portal/internal/httpserver"
	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
	"github.com/MrSnakeDoc/portal/internal/index"
	"github.com/MrSnakeDoc/portal/internal/logger"
	"github.com/MrSnakeDoc/portal/internal/proxy"
	"github.com/MrSnakeDoc/portal/internal/redis"
	"github.com/MrSnakeDoc/portal/internal/scheduler"
	redisstore "github.com/MrSnakeDoc/portal/internal/store/redis"
	"github.com/MrSnakeDoc/portal/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	watcher     *scheduler.ManifestWatcher
	refresher   *scheduler.MirrorRefresher // nil without redis
}

func New() *App {
	cfg := config.Load()
	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	a, err := build(cfg, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to initialize portal: %v", err)
		os.Exit(1)
	}
	return a
}

// build wires every component from cfg. Redis is optional: when it cannot
// be reached the gateway runs without the directory mirror.
func build(cfg *config.Config, loggerClient logger.Logger) (*App, error) {
	ports := index.NewPortIndex(loggerClient.Named("index"))

	var (
		redisClient *goredis.Client
		mirror      *scheduler.RedisMirror
		refresher   *scheduler.MirrorRefresher
		onRebuild   func(*index.Directory)
	)
	if cfg.RedisEnabled() {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.Connect(context.Background(), redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
		}, loggerClient.Named("redis"))
		if err != nil {
			loggerClient.Warn("redis unavailable, directory mirror disabled", logger.Error(err))
		} else {
			redisClient = client
			store := redisstore.NewStore(client, cfg.RedisInstance, cfg.RedisTTL)
			mirror = scheduler.NewRedisMirror(store, loggerClient.Named("mirror"), cfg.RedisWT)
			onRebuild = mirror.Publish
			refresher = scheduler.NewMirrorRefresher(mirror, ports, loggerClient.Named("mirror"),
				scheduler.RefreshInterval(cfg.RedisTTL))
			loggerClient.Info("Redis initialized successfully")
		}
	}

	// Create manual rescan trigger channel
	reloadTrigger := make(chan struct{}, 1)

	watcher, err := scheduler.NewManifestWatcher(scheduler.ManifestWatcherOptions{
		Root:         cfg.WorkspaceRoot,
		Pattern:      cfg.ManifestPattern,
		Ignore:       cfg.ManifestIgnore,
		MaxDepth:     cfg.ManifestMaxDepth,
		Mode:         scheduler.WatchMode(cfg.WatchMode),
		PollInterval: cfg.PollInterval,
		OnRebuild:    onRebuild,
		Trigger:      reloadTrigger,
	}, ports, loggerClient.Named("watcher"))
	if err != nil {
		closeRedis(redisClient, loggerClient)
		return nil, fmt.Errorf("failed to create manifest watcher: %w", err)
	}

	d := deps.Deps{
		Logger:        loggerClient,
		StartTime:     time.Now(),
		Version:       version.Version,
		Commit:        version.Commit,
		BuildDate:     version.BuildDate,
		GoVersion:     version.GoVersion,
		TimeNow:       time.Now,
		ListenPort:    cfg.ListenPort,
		AllowedHosts:  cfg.AllowedHosts,
		AllowedCIDRS:  cfg.AllowedCIDRS,
		TrustProxy:    cfg.TrustProxy,
		Ports:         ports,
		Watcher:       watcher,
		Mirror:        mirror,
		RedisClient:   redisClient,
		ReloadTrigger: reloadTrigger,
		Router:        domain.NewHostRouter(cfg.ProxyDomains, cfg.ProxySeparator),
		Policy:        domain.AccessPolicy{StaticPrefix: cfg.StaticPrefix, LoginPath: domain.DefaultAccessPolicy().LoginPath},
		Forwarder:     proxy.NewForwarder(cfg.ProxyBackendHost, nil, loggerClient.Named("forwarder")),
		LoginRate:     deps.LoginRateConfig{PerMinute: 2, PerHour: 12},
	}

	if err := wireAuth(cfg, &d); err != nil {
		closeRedis(redisClient, loggerClient)
		return nil, err
	}

	if !cfg.ProxyEnabled() {
		loggerClient.Warn("PORTAL_PROXY_DOMAINS is empty, port forwarding disabled")
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg, loggerClient, d),
		redisClient: redisClient,
		watcher:     watcher,
		refresher:   refresher,
	}, nil
}

func wireAuth(cfg *config.Config, d *deps.Deps) error {
	if cfg.AuthMode == "none" {
		d.Auth = auth.Open{}
		d.Logger.Warn("authentication disabled, every proxied port is reachable")
		return nil
	}

	sessions, err := auth.NewSessions(auth.SessionOptions{
		Secret:     []byte(cfg.SessionSecret),
		CookieName: cfg.SessionCookie,
		TTL:        cfg.SessionTTL,
		Domain:     cfg.CookieDomain,
		Secure:     cfg.CookieSecure,
	})
	if err != nil {
		return fmt.Errorf("failed to set up sessions: %w", err)
	}
	passwords, err := auth.NewPasswordChecker(cfg.Password, cfg.HashedPassword)
	if err != nil {
		return fmt.Errorf("failed to set up password check: %w", err)
	}
	if !cfg.SessionSecretFromEnv {
		d.Logger.Warn("PORTAL_SESSION_SECRET not set, sessions will not survive a restart")
	}

	d.Auth, d.Sessions, d.Passwords = sessions, sessions, passwords
	return nil
}

// Handler exposes the HTTP handler.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting portal v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The first scan completes before any request is served.
	if err := a.watcher.Start(ctx); err != nil {
		closeRedis(a.redisClient, a.logger)
		return fmt.Errorf("failed to start manifest watcher: %w", err)
	}
	if a.refresher != nil {
		a.refresher.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	a.watcher.Stop()
	if a.refresher != nil {
		a.refresher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	closeRedis(a.redisClient, a.logger)

	if runErr == nil {
		a.logger.Info("✅ portal stopped cleanly")
	}
	_ = a.logger.Sync()
	return runErr
}

func closeRedis(client *goredis.Client, log logger.Logger) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		log.Warnf("failed to close redis: %v", err)
	} else {
		log.Info("✅ Redis closed cleanly")
	}
}
