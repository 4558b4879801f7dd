package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/portal/internal/utils"
)

// RateLimitConfig bounds failed attempts per client IP with two buckets,
// a short burst window and a long one.
type RateLimitConfig struct {
	PerMinute  int
	PerHour    int
	MaxEntries int
	IdleTTL    time.Duration
	TrustProxy bool // resolve IP from proxy headers when true
}

type bucket struct {
	tokens   float64
	capacity float64
	rate     float64 // tokens per second
	lastRef  time.Time
}

func newBucket(capacity int, per time.Duration, now time.Time) bucket {
	return bucket{
		tokens:   float64(capacity),
		capacity: float64(capacity),
		rate:     float64(capacity) / per.Seconds(),
		lastRef:  now,
	}
}

func (b *bucket) refill(now time.Time) {
	if elapsed := now.Sub(b.lastRef).Seconds(); elapsed > 0 {
		b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.rate)
		b.lastRef = now
	}
}

// retryAfter is the wait until one token is available.
func (b *bucket) retryAfter() int {
	if b.tokens >= 1 {
		return 0
	}
	sec := int(math.Ceil((1 - b.tokens) / b.rate))
	if sec < 1 {
		sec = 1
	}
	return sec
}

type client struct {
	minute   bucket
	hour     bucket
	lastSeen time.Time
}

// RateLimiter only spends tokens on Penalize, so successful requests are
// never throttled.
type RateLimiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	clients map[string]*client
	now     func() time.Time
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.PerMinute < 1 {
		cfg.PerMinute = 2
	}
	if cfg.PerHour < 1 {
		cfg.PerHour = 12
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = time.Hour
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10000
	}
	return &RateLimiter{cfg: cfg, clients: make(map[string]*client), now: time.Now}
}

// Limit rejects requests from clients that used up their attempts.
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if retry := l.check(utils.ClientIP(r, l.cfg.TrustProxy)); retry > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			http.Error(w, "Login rate limited!", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Penalize spends one attempt for the client of r.
func (l *RateLimiter) Penalize(r *http.Request) {
	key := utils.ClientIP(r, l.cfg.TrustProxy)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.clientLocked(key, now)
	c.minute.tokens = math.Max(0, c.minute.tokens-1)
	c.hour.tokens = math.Max(0, c.hour.tokens-1)
}

// check returns 0 when key may try again, or the seconds to wait.
func (l *RateLimiter) check(key string) int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[key]
	if !ok {
		return 0
	}
	c.minute.refill(now)
	c.hour.refill(now)
	return max(c.minute.retryAfter(), c.hour.retryAfter())
}

func (l *RateLimiter) clientLocked(key string, now time.Time) *client {
	if len(l.clients) >= l.cfg.MaxEntries {
		l.sweepLocked(now)
	}
	c := l.clients[key]
	if c == nil {
		c = &client{
			minute: newBucket(l.cfg.PerMinute, time.Minute, now),
			hour:   newBucket(l.cfg.PerHour, time.Hour, now),
		}
		l.clients[key] = c
	}
	c.minute.refill(now)
	c.hour.refill(now)
	c.lastSeen = now
	return c
}

func (l *RateLimiter) sweepLocked(now time.Time) {
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > l.cfg.IdleTTL {
			delete(l.clients, key)
		}
	}
}
