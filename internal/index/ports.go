package index

import (
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/MrSnakeDoc/portal/internal/logger"
	"github.com/MrSnakeDoc/portal/internal/sources/manifest"
)

// PortIndex owns the tracked document set and the directory merged from it.
// Writers serialize on mu; readers only load the published pointer.
type PortIndex struct {
	mu       sync.Mutex
	docs     map[string]manifest.Document // relative path -> document
	reported map[Dropped]struct{}
	current  atomic.Pointer[Directory]
	log      logger.Logger
}

// NewPortIndex creates an empty index. Nothing is published until the
// first Rebuild.
func NewPortIndex(log logger.Logger) *PortIndex {
	if log == nil {
		log = logger.Nop()
	}
	return &PortIndex{
		docs:     make(map[string]manifest.Document),
		reported: make(map[Dropped]struct{}),
		log:      log,
	}
}

// Upsert stores the document for path. It returns false when the stored
// document already declares the same entries.
func (idx *PortIndex) Upsert(p string, doc manifest.Document) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if prev, ok := idx.docs[p]; ok && prev.Equal(doc) {
		return false
	}
	idx.docs[p] = doc
	return true
}

// Remove forgets the document tracked at path.
func (idx *PortIndex) Remove(p string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.docs[p]; !ok {
		return false
	}
	delete(idx.docs, p)
	return true
}

// RemoveUnder forgets every document below dir and returns how many were removed.
func (idx *PortIndex) RemoveUnder(dir string) int {
	prefix := strings.TrimSuffix(path.Clean(dir), "/") + "/"

	idx.mu.Lock()
	defer idx.mu.Unlock()

	n := 0
	for p := range idx.docs {
		if strings.HasPrefix(p, prefix) {
			delete(idx.docs, p)
			n++
		}
	}
	return n
}

// Paths returns the tracked paths in sorted order.
func (idx *PortIndex) Paths() []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	paths := make([]string, 0, len(idx.docs))
	for p := range idx.docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Count returns the number of tracked documents.
func (idx *PortIndex) Count() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	return len(idx.docs)
}

// Rebuild merges the tracked set and publishes the result.
func (idx *PortIndex) Rebuild() *Directory {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	dir, dropped := Build(idx.docs)

	// Only report a dropped entry the first time it shows up.
	seen := make(map[Dropped]struct{}, len(dropped))
	for _, d := range dropped {
		seen[d] = struct{}{}
		if _, ok := idx.reported[d]; ok {
			continue
		}
		idx.log.Warn("dropping manifest entry",
			logger.String("path", d.Path),
			logger.String("entry", d.Raw),
			logger.String("reason", d.Reason),
		)
	}
	idx.reported = seen

	idx.current.Store(dir)
	return dir
}

// Directory returns the published directory, or nil before the first Rebuild.
func (idx *PortIndex) Directory() *Directory {
	return idx.current.Load()
}

// Ready reports whether a directory has been published.
func (idx *PortIndex) Ready() bool {
	return idx.current.Load() != nil
}

// Resolve looks token up in the published directory.
// It panics when called before the watcher has published anything.
func (idx *PortIndex) Resolve(token string) (string, bool) {
	return idx.mustDirectory().Resolve(token)
}

// IsPublic reports whether token is a bare port of some tracked manifest.
// It panics when called before the watcher has published anything.
func (idx *PortIndex) IsPublic(token string) bool {
	return idx.mustDirectory().IsPublic(token)
}

func (idx *PortIndex) mustDirectory() *Directory {
	dir := idx.current.Load()
	if dir == nil {
		panic("index: port directory queried before the manifest watcher was started")
	}
	return dir
}
