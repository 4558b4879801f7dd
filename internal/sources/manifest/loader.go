package manifest

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrSchema marks a manifest that is valid YAML but not a manifest.
var ErrSchema = errors.New("manifest schema mismatch")

// Result is the outcome of parsing one manifest. Document is always usable;
// Problem is non-nil when the content was rejected and Document is empty.
type Result struct {
	Document Document
	Problem  error
}

// Parse decodes one manifest document. It never fails: malformed YAML or a
// schema mismatch yields an empty Document and a Problem for the caller to log.
func Parse(data []byte) Result {
	var raw file
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Result{Problem: fmt.Errorf("invalid manifest yaml: %w", err)}
	}

	version, err := scalarValue(&raw.Version)
	if err != nil {
		return Result{Problem: fmt.Errorf("%w: version %v", ErrSchema, err)}
	}

	entries, err := portEntries(&raw.Ports)
	if err != nil {
		return Result{Problem: fmt.Errorf("%w: ports %v", ErrSchema, err)}
	}

	return Result{Document: Document{Version: version, Entries: entries}}
}

// Load reads and parses a manifest file. The returned error only covers
// reading; parse problems are reported through Result.Problem.
func Load(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read manifest file: %w", err)
	}
	return Parse(data), nil
}

func isAbsent(n *yaml.Node) bool {
	return n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

func scalarValue(n *yaml.Node) (string, error) {
	if isAbsent(n) {
		return "", nil
	}
	if n.Kind != yaml.ScalarNode {
		return "", errors.New("must be a scalar")
	}
	return n.Value, nil
}

func portEntries(n *yaml.Node) ([]string, error) {
	if isAbsent(n) {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("must be a sequence, got %s", n.ShortTag())
	}

	entries := make([]string, 0, len(n.Content))
	for i, item := range n.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("item %d must be a string", i)
		}
		switch item.ShortTag() {
		case "!!str", "!!int":
			entries = append(entries, item.Value)
		default:
			return nil, fmt.Errorf("item %d must be a string, got %s", i, item.ShortTag())
		}
	}
	return entries, nil
}
