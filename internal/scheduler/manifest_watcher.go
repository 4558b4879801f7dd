package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MrSnakeDoc/portal/internal/index"
	"github.com/MrSnakeDoc/portal/internal/logger"
	"github.com/MrSnakeDoc/portal/internal/sources/manifest"
)

// WatchMode selects how manifest changes are discovered.
type WatchMode string

const (
	WatchAuto   WatchMode = "auto"   // native events, polling when unavailable
	WatchNotify WatchMode = "notify" // native events only
	WatchPoll   WatchMode = "poll"
)

const DefaultPollInterval = 2 * time.Second

// ManifestWatcherOptions configures a ManifestWatcher.
type ManifestWatcherOptions struct {
	Root         string
	Pattern      string
	Ignore       string
	MaxDepth     int // 0 selects DefaultMaxDepth, negative is unlimited
	Mode         WatchMode
	PollInterval time.Duration

	// OnRebuild runs on the watcher goroutine after each published rebuild.
	OnRebuild func(*index.Directory)
	// Trigger forces a full rescan when it receives.
	Trigger <-chan struct{}
}

// ManifestWatcher keeps the tracked document set of a PortIndex in sync
// with the manifest files found under a workspace root.
type ManifestWatcher struct {
	opts    ManifestWatcherOptions
	matcher *manifestMatcher
	index   *index.PortIndex
	logger  logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	active WatchMode
}

// NewManifestWatcher validates options and returns a stopped watcher.
func NewManifestWatcher(opts ManifestWatcherOptions, idx *index.PortIndex, log logger.Logger) (*ManifestWatcher, error) {
	if opts.Root == "" {
		return nil, errors.New("manifest watcher: root is required")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("manifest watcher: resolve root: %w", err)
	}
	opts.Root = root

	if opts.MaxDepth == 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	switch opts.Mode {
	case "":
		opts.Mode = WatchAuto
	case WatchAuto, WatchNotify, WatchPoll:
	default:
		return nil, fmt.Errorf("manifest watcher: unknown mode %q", opts.Mode)
	}

	m, err := newManifestMatcher(opts.Pattern, opts.Ignore, opts.MaxDepth)
	if err != nil {
		return nil, fmt.Errorf("manifest watcher: %w", err)
	}

	if log == nil {
		log = logger.Nop()
	}

	return &ManifestWatcher{
		opts:    opts,
		matcher: m,
		index:   idx,
		logger:  log,
	}, nil
}

// Start scans the workspace, publishes the first directory and keeps
// watching in the background until ctx is done or Stop is called.
func (w *ManifestWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return errors.New("manifest watcher already running")
	}

	info, err := os.Stat(w.opts.Root)
	if err != nil {
		return fmt.Errorf("manifest watcher: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("manifest watcher: %s is not a directory", w.opts.Root)
	}

	mode := w.opts.Mode
	var fw *fsnotify.Watcher
	if mode != WatchPoll {
		fw, err = fsnotify.NewWatcher()
		if err != nil {
			if mode == WatchNotify {
				return fmt.Errorf("manifest watcher: %w", err)
			}
			w.logger.Warn("native file watching unavailable, falling back to polling", logger.Error(err))
			mode = WatchPoll
		}
	}

	_, watchErr := w.resync(fw)
	if watchErr != nil && mode == WatchAuto {
		w.logger.Warn("native file watching failed, falling back to polling", logger.Error(watchErr))
		_ = fw.Close()
		fw = nil
		mode = WatchPoll
	}
	if mode == WatchAuto {
		mode = WatchNotify
	}
	w.publish()

	w.logger.Info("manifest watcher started",
		logger.String("root", w.opts.Root),
		logger.String("mode", string(mode)),
		logger.Int("documents", w.index.Count()),
	)

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.cancel, w.done, w.active = cancel, done, mode

	go func() {
		defer close(done)
		if fw != nil {
			defer fw.Close()
			w.notifyLoop(loopCtx, fw)
			return
		}
		w.pollLoop(loopCtx)
	}()

	return nil
}

// Stop ends the background loop and waits for it. The watcher can be
// started again afterwards.
func (w *ManifestWatcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done, w.active = nil, nil, ""
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	w.logger.Info("manifest watcher stopped")
}

// Mode returns the effective mode of a running watcher, or "" when stopped.
func (w *ManifestWatcher) Mode() WatchMode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// Root returns the absolute workspace root.
func (w *ManifestWatcher) Root() string {
	return w.opts.Root
}

func (w *ManifestWatcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if changed, _ := w.resync(nil); changed {
				w.publish()
			}
		case <-w.opts.Trigger:
			w.logger.Info("manual manifest rescan triggered")
			w.resync(nil)
			w.publish()
		}
	}
}

// resync walks the whole workspace, refreshes every manifest found and
// forgets tracked paths that disappeared. When fw is set every walked
// directory is (re)registered with it; the first registration error is returned.
func (w *ManifestWatcher) resync(fw *fsnotify.Watcher) (changed bool, watchErr error) {
	seen := make(map[string]struct{})
	var unreadable []string

	changed, watchErr = w.walk(w.opts.Root, fw, seen, &unreadable)

	for _, p := range w.index.Paths() {
		if _, ok := seen[p]; ok || under(p, unreadable) {
			continue
		}
		if w.index.Remove(p) {
			w.logger.Info("manifest removed", logger.String("path", p))
			changed = true
		}
	}
	return changed, watchErr
}

// walk visits start and everything below it that the matcher allows.
func (w *ManifestWatcher) walk(start string, fw *fsnotify.Watcher, seen map[string]struct{}, unreadable *[]string) (changed bool, watchErr error) {
	_ = filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		rel := w.rel(p)
		if err != nil {
			w.logger.Warn("skipping unreadable workspace path",
				logger.String("path", rel),
				logger.Error(err),
			)
			if unreadable != nil {
				*unreadable = append(*unreadable, rel)
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if w.matcher.skipDir(rel) {
				return filepath.SkipDir
			}
			if fw != nil {
				if err := fw.Add(p); err != nil {
					w.logger.Warn("failed to watch directory",
						logger.String("path", rel),
						logger.Error(err),
					)
					if watchErr == nil {
						watchErr = err
					}
				}
			}
			return nil
		}

		if !w.matcher.matchFile(rel) {
			return nil
		}
		if seen != nil {
			seen[rel] = struct{}{}
		}
		if w.refresh(p, rel) {
			changed = true
		}
		return nil
	})
	return changed, watchErr
}

// refresh re-parses one manifest. Read failures keep the previous state.
func (w *ManifestWatcher) refresh(abs, rel string) bool {
	res, err := manifest.Load(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			w.logger.Debug("manifest vanished before it could be read", logger.String("path", rel))
		} else {
			w.logger.Warn("failed to read manifest, keeping previous state",
				logger.String("path", rel),
				logger.Error(err),
			)
		}
		return false
	}

	if res.Problem != nil {
		w.logger.Warn("ignoring malformed manifest",
			logger.String("path", rel),
			logger.Error(res.Problem),
		)
	}

	if !w.index.Upsert(rel, res.Document) {
		return false
	}
	w.logger.Debug("manifest updated",
		logger.String("path", rel),
		logger.Int("entries", len(res.Document.Entries)),
	)
	return true
}

func (w *ManifestWatcher) publish() {
	dir := w.index.Rebuild()
	w.logger.Info("port directory rebuilt",
		logger.Int("documents", w.index.Count()),
		logger.Int("routes", dir.Len()),
	)
	if w.opts.OnRebuild != nil {
		w.opts.OnRebuild(dir)
	}
}

func (w *ManifestWatcher) rel(p string) string {
	r, err := filepath.Rel(w.opts.Root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(r)
}

func under(p string, dirs []string) bool {
	for _, d := range dirs {
		if d == "." || p == d || strings.HasPrefix(p, d+"/") {
			return true
		}
	}
	return false
}
