package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/portal/internal/index"
	"github.com/MrSnakeDoc/portal/internal/logger"
)

// MinRefreshInterval is the floor applied to refresh intervals.
const MinRefreshInterval = time.Minute

// MirrorRefresher republishes the current directory on a fixed interval so
// mirrored keys outlive their TTL between rebuilds, and a publish that
// failed while Redis was down is retried.
type MirrorRefresher struct {
	mirror   *RedisMirror
	index    *index.PortIndex
	logger   logger.Logger
	interval time.Duration

	mu     sync.Mutex
	stopCh chan struct{}
	done   chan struct{}
}

// RefreshInterval derives a refresh period from the mirror TTL.
func RefreshInterval(ttl time.Duration) time.Duration {
	return max(ttl/3, MinRefreshInterval)
}

// NewMirrorRefresher creates a refresher for mirror.
func NewMirrorRefresher(mirror *RedisMirror, idx *index.PortIndex, log logger.Logger, interval time.Duration) *MirrorRefresher {
	if interval <= 0 {
		interval = MinRefreshInterval
	}
	return &MirrorRefresher{
		mirror:   mirror,
		index:    idx,
		logger:   log,
		interval: interval,
	}
}

// Start begins the periodic refresh. The watcher publishes the first
// directory itself, so nothing is sent immediately.
func (r *MirrorRefresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopCh != nil {
		return
	}

	stopCh, done := make(chan struct{}), make(chan struct{})
	r.stopCh, r.done = stopCh, done

	ticker := time.NewTicker(r.interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Refresh()
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the refresh loop and waits for it.
func (r *MirrorRefresher) Stop() {
	r.mu.Lock()
	stopCh, done := r.stopCh, r.done
	r.stopCh, r.done = nil, nil
	r.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done
}

// Refresh republishes the current directory, if one exists.
func (r *MirrorRefresher) Refresh() {
	dir := r.index.Directory()
	if dir == nil {
		r.logger.Debug("no directory to refresh yet")
		return
	}
	r.mirror.Publish(dir)
}
