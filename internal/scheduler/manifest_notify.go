package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/MrSnakeDoc/portal/internal/logger"
)

func (w *ManifestWatcher) notifyLoop(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if w.handleEvent(fw, ev) {
				w.publish()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", logger.Error(err))
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				if changed, _ := w.resync(fw); changed {
					w.publish()
				}
			}
		case <-w.opts.Trigger:
			w.logger.Info("manual manifest rescan triggered")
			w.resync(fw)
			w.publish()
		}
	}
}

// handleEvent applies one filesystem event to the index and reports
// whether the tracked set changed.
func (w *ManifestWatcher) handleEvent(fw *fsnotify.Watcher, ev fsnotify.Event) bool {
	rel := w.rel(ev.Name)
	if rel == "." || strings.HasPrefix(rel, "../") {
		return false
	}

	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		dropped := w.unwatchUnder(fw, ev.Name)
		removed := w.index.Remove(rel)
		if n := w.index.RemoveUnder(rel); n > 0 {
			removed = true
		}
		if removed {
			w.logger.Info("manifest removed", logger.String("path", rel))
		}
		if dropped > 0 {
			// A moved directory may share its watches with the new path.
			if changed, _ := w.resync(fw); changed {
				removed = true
			}
		}
		return removed

	case ev.Has(fsnotify.Create):
		info, err := os.Stat(ev.Name)
		if err != nil {
			return false
		}
		if info.IsDir() {
			if w.matcher.skipDir(rel) {
				return false
			}
			// Files created before the watch was added produce no event.
			changed, _ := w.walk(ev.Name, fw, nil, nil)
			return changed
		}
		return w.matcher.matchFile(rel) && w.refresh(ev.Name, rel)

	case ev.Has(fsnotify.Write):
		return w.matcher.matchFile(rel) && w.refresh(ev.Name, rel)
	}

	return false
}

// unwatchUnder drops every watch registered at or below name. Watches of a
// moved directory otherwise keep reporting events under the old path.
func (w *ManifestWatcher) unwatchUnder(fw *fsnotify.Watcher, name string) int {
	prefix := name + string(filepath.Separator)
	n := 0
	for _, p := range fw.WatchList() {
		if p != name && !strings.HasPrefix(p, prefix) {
			continue
		}
		_ = fw.Remove(p)
		n++
	}
	if n > 0 {
		w.logger.Debug("dropped stale directory watches",
			logger.String("path", w.rel(name)),
			logger.Int("watches", n),
		)
	}
	return n
}
