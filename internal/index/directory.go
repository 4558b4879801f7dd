package index

import (
	"fmt"
	"sort"
	"time"

	"github.com/MrSnakeDoc/portal/internal/sources/manifest"
)

// Route is one published mapping of the directory.
type Route struct {
	Token  string `json:"token"`
	Port   string `json:"port"`
	Public bool   `json:"public"`
	Source string `json:"source"`
}

// Dropped is a manifest entry left out of the directory, either because it
// failed validation or because it lost an alias conflict.
type Dropped struct {
	Path   string
	Raw    string
	Reason string
}

// Directory is the merged, read-only view of every tracked manifest.
// A Directory is never modified after Build returns it.
type Directory struct {
	routes  map[string]string
	public  map[string]struct{}
	sources map[string]string
	builtAt time.Time
}

// Build merges a snapshot of tracked documents keyed by relative path.
//
// Paths are processed in lexicographic order. For duplicate aliases the
// first binding wins, so the smallest path is authoritative. Bare ports are
// applied after every alias and always map to themselves.
func Build(docs map[string]manifest.Document) (*Directory, []Dropped) {
	paths := make([]string, 0, len(docs))
	for p := range docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	dir := &Directory{
		routes:  make(map[string]string),
		public:  make(map[string]struct{}),
		sources: make(map[string]string),
		builtAt: time.Now(),
	}

	var (
		dropped []Dropped
		bare    []manifest.Entry
		bareSrc []string
	)

	for _, p := range paths {
		for _, raw := range docs[p].Entries {
			e := manifest.ParseEntry(raw)
			switch e.Kind {
			case manifest.EntryInvalid:
				dropped = append(dropped, Dropped{Path: p, Raw: raw, Reason: e.Reason})
			case manifest.EntryPort:
				bare = append(bare, e)
				bareSrc = append(bareSrc, p)
			case manifest.EntryAlias:
				if prev, ok := dir.routes[e.Alias]; ok && prev != e.Port {
					dropped = append(dropped, Dropped{
						Path:   p,
						Raw:    raw,
						Reason: fmt.Sprintf("alias %q already bound to %s by %s", e.Alias, prev, dir.sources[e.Alias]),
					})
					continue
				}
				if _, ok := dir.routes[e.Alias]; !ok {
					dir.routes[e.Alias] = e.Port
					dir.sources[e.Alias] = p
				}
			}
		}
	}

	for i, e := range bare {
		if _, ok := dir.public[e.Port]; ok {
			continue
		}
		dir.routes[e.Port] = e.Port
		dir.sources[e.Port] = bareSrc[i]
		dir.public[e.Port] = struct{}{}
	}

	return dir, dropped
}

// Resolve looks token up case-sensitively. ok is false when the token is
// not declared anywhere; callers then use the token as a literal port.
func (d *Directory) Resolve(token string) (port string, ok bool) {
	port, ok = d.routes[token]
	return port, ok
}

// IsPublic reports whether token is declared as a bare port. Being the
// target of an alias does not make a port public.
func (d *Directory) IsPublic(token string) bool {
	_, ok := d.public[token]
	return ok
}

// Len returns the number of resolvable tokens.
func (d *Directory) Len() int {
	return len(d.routes)
}

// BuiltAt returns when the directory was merged.
func (d *Directory) BuiltAt() time.Time {
	return d.builtAt
}

// Routes returns every mapping sorted by token.
func (d *Directory) Routes() []Route {
	routes := make([]Route, 0, len(d.routes))
	for token, port := range d.routes {
		_, public := d.public[token]
		routes = append(routes, Route{
			Token:  token,
			Port:   port,
			Public: public,
			Source: d.sources[token],
		})
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].Token < routes[j].Token })
	return routes
}

// PublicPorts returns the bare ports in sorted order.
func (d *Directory) PublicPorts() []string {
	ports := make([]string, 0, len(d.public))
	for p := range d.public {
		ports = append(ports, p)
	}
	sort.Strings(ports)
	return ports
}
