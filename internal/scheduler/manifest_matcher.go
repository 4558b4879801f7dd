package scheduler

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

const (
	DefaultManifestPattern = "**/.portal/ports.yaml"
	DefaultManifestIgnore  = "**/{node_modules,.git}/**"
	DefaultMaxDepth        = 5
)

// manifestMatcher decides which workspace paths the watcher looks at.
// All paths are relative to the workspace root and slash separated.
type manifestMatcher struct {
	include  glob.Glob
	ignore   glob.Glob
	maxDepth int
}

func newManifestMatcher(pattern, ignore string, maxDepth int) (*manifestMatcher, error) {
	if pattern == "" {
		pattern = DefaultManifestPattern
	}
	inc, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid manifest pattern %q: %w", pattern, err)
	}

	m := &manifestMatcher{include: inc, maxDepth: maxDepth}
	if ignore != "" {
		ign, err := glob.Compile(ignore, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid manifest ignore pattern %q: %w", ignore, err)
		}
		m.ignore = ign
	}
	return m, nil
}

// matchFile reports whether rel names a manifest. A leading "**/" also
// matches files sitting directly under the root.
func (m *manifestMatcher) matchFile(rel string) bool {
	if m.ignored(rel) {
		return false
	}
	return m.include.Match(rel) || m.include.Match("/"+rel)
}

// skipDir reports whether the walk must not descend into rel.
func (m *manifestMatcher) skipDir(rel string) bool {
	if rel == "." || rel == "" {
		return false
	}
	if m.maxDepth >= 0 && depth(rel) > m.maxDepth {
		return true
	}
	return m.ignored(rel + "/")
}

func (m *manifestMatcher) ignored(rel string) bool {
	if m.ignore == nil {
		return false
	}
	return m.ignore.Match(rel) || m.ignore.Match("/"+rel)
}

func depth(rel string) int {
	return strings.Count(strings.Trim(rel, "/"), "/") + 1
}
