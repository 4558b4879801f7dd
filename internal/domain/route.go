package domain

import (
	"net"
	"strings"
)

// HostRouter recognises Host headers of the form <token><sep><suffix>.
type HostRouter struct {
	Suffixes  []string
	Separator byte
}

// NewHostRouter normalises suffixes and defaults the separator to '.'.
func NewHostRouter(suffixes []string, sep byte) HostRouter {
	if sep == 0 {
		sep = '.'
	}
	return HostRouter{Suffixes: NormalizeProxyDomains(suffixes), Separator: sep}
}

// Enabled reports whether any proxy domain is configured.
func (r HostRouter) Enabled() bool {
	return len(r.Suffixes) > 0
}

// Match extracts the port or alias token from host.
func (r HostRouter) Match(host string) (string, bool) {
	return ExtractPort(host, r.Suffixes, r.Separator)
}

// ExtractPort returns the token encoded in host, or false when host is not
// a proxy host. Only a single leading segment is accepted:
//   - "8080.example.com"      -> "8080"
//   - "8080.sub.example.com"  -> no match
//   - "api-example.com" (sep '-') -> "api"
func ExtractPort(host string, suffixes []string, sep byte) (string, bool) {
	name := strings.ToLower(hostname(host))
	if name == "" {
		return "", false
	}

	token, rest, ok := strings.Cut(name, string(sep))
	if !ok || token == "" || rest == "" {
		return "", false
	}

	for _, s := range suffixes {
		if rest == s {
			return token, true
		}
	}
	return "", false
}

// hostname strips an optional :port and a trailing root dot.
func hostname(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	} else {
		host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	}
	return strings.TrimSuffix(host, ".")
}

// NormalizeProxyDomains lower-cases domains, drops wildcard and port
// template prefixes ("*.", "{{port}}.", "{{port}}-") and removes duplicates.
func NormalizeProxyDomains(domains []string) []string {
	seen := make(map[string]struct{}, len(domains))
	out := make([]string, 0, len(domains))

	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		for _, prefix := range []string{"*.", "{{port}}.", "{{port}}-"} {
			d = strings.TrimPrefix(d, prefix)
		}
		d = strings.TrimSuffix(d, ".")
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
