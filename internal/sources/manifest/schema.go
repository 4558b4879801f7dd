package manifest

import "gopkg.in/yaml.v3"

// DefaultFileName is the manifest file name looked up under the .portal
// directory of any workspace folder.
const DefaultFileName = "ports.yaml"

// file is the raw on-disk shape of a manifest:
//
//	version: "1"
//	ports:
//	  - "8000"
//	  - "api:8080"
//
// Both fields are decoded as nodes so type mismatches can be reported
// instead of failing the whole decode.
type file struct {
	Version yaml.Node `yaml:"version"`
	Ports   yaml.Node `yaml:"ports"`
}

// Document is the parsed content of one manifest file. It is never mutated
// once built; a change on disk produces a new Document.
type Document struct {
	Version string
	Entries []string
}

// Empty reports whether the document declares nothing.
func (d Document) Empty() bool {
	return len(d.Entries) == 0
}

// Equal reports whether two documents declare the same entries in the same order.
func (d Document) Equal(other Document) bool {
	if d.Version != other.Version || len(d.Entries) != len(other.Entries) {
		return false
	}
	for i := range d.Entries {
		if d.Entries[i] != other.Entries[i] {
			return false
		}
	}
	return true
}
