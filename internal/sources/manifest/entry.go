package manifest

import (
	"regexp"
	"strings"
)

var (
	aliasPattern = regexp.MustCompile(`^[a-z0-9]+$`)
	portPattern  = regexp.MustCompile(`^[0-9]+$`)
)

// EntryKind tags the validation outcome of a single manifest entry.
type EntryKind int

const (
	EntryInvalid EntryKind = iota
	EntryPort
	EntryAlias
)

func (k EntryKind) String() string {
	switch k {
	case EntryPort:
		return "port"
	case EntryAlias:
		return "alias"
	default:
		return "invalid"
	}
}

// Entry is one validated manifest line.
type Entry struct {
	Kind   EntryKind
	Raw    string
	Alias  string // set for EntryAlias
	Port   string // set for EntryPort and EntryAlias
	Reason string // set for EntryInvalid
}

// ParseEntry classifies a raw entry. Anything containing ':' is an
// alias mapping split at the first ':'; everything else is a bare port.
// The raw text is validated as is, so surrounding whitespace is invalid.
func ParseEntry(raw string) Entry {
	e := Entry{Raw: raw}

	if alias, port, ok := strings.Cut(raw, ":"); ok {
		switch {
		case !aliasPattern.MatchString(alias):
			e.Reason = "alias must match " + aliasPattern.String()
		case !portPattern.MatchString(port):
			e.Reason = "port must match " + portPattern.String()
		default:
			e.Kind, e.Alias, e.Port = EntryAlias, alias, port
		}
		return e
	}

	if !portPattern.MatchString(raw) {
		e.Reason = "port must match " + portPattern.String()
		return e
	}
	e.Kind, e.Port = EntryPort, raw
	return e
}

// ValidPort reports whether s is a syntactically valid port token.
func ValidPort(s string) bool {
	return portPattern.MatchString(s)
}
