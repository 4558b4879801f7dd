package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/portal/internal/index"
	"github.com/MrSnakeDoc/portal/internal/logger"
)

// DirectoryPublisher receives every published directory.
type DirectoryPublisher interface {
	PublishDirectory(ctx context.Context, dir *index.Directory) error
}

// RedisMirror pushes rebuilt directories to Redis, best effort. The
// in-memory index stays the only source the gateway reads from.
type RedisMirror struct {
	store   DirectoryPublisher
	logger  logger.Logger
	timeout time.Duration

	// publishMu serializes store writes; newest is the BuiltAt of the
	// latest directory sent so older snapshots never overwrite it.
	publishMu sync.Mutex
	newest    time.Time

	mu       sync.Mutex
	lastSync time.Time
	lastErr  error
}

// NewRedisMirror creates a mirror; timeout bounds each publish.
func NewRedisMirror(store DirectoryPublisher, log logger.Logger, timeout time.Duration) *RedisMirror {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RedisMirror{store: store, logger: log, timeout: timeout}
}

// Publish is meant to be used as the watcher's OnRebuild hook. A directory
// built before the last one published is dropped.
func (m *RedisMirror) Publish(dir *index.Directory) {
	m.publishMu.Lock()
	defer m.publishMu.Unlock()

	if dir.BuiltAt().Before(m.newest) {
		m.logger.Debug("skipping stale port directory",
			logger.Duration("age", m.newest.Sub(dir.BuiltAt())),
		)
		return
	}
	m.newest = dir.BuiltAt()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	err := m.store.PublishDirectory(ctx, dir)

	m.mu.Lock()
	m.lastErr = err
	if err == nil {
		m.lastSync = time.Now()
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("failed to mirror port directory to redis", logger.Error(err))
		// Don't fail - memory index is the primary source
		return
	}
	m.logger.Debug("port directory mirrored to redis", logger.Int("routes", dir.Len()))
}

// Status returns the time of the last successful publish and the error of
// the most recent attempt.
func (m *RedisMirror) Status() (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSync, m.lastErr
}
