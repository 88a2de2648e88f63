// Package file loads flow graphs from YAML flow files and keeps the
// context store on disk.
package file

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/registry"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// flowFile is the on-disk layout of a flow file.
type flowFile struct {
	Containers []domain.Container `yaml:"containers"`
	Nodes      []map[string]any   `yaml:"nodes"`
}

// Loader serves the nodes and containers of one flow file.
// It implements ports.GraphLoader and, through its registry, ports.ContainerResolver.
type Loader struct {
	*registry.Registry
	nodes map[string][]byte
}

// Load reads and decodes a flow file from disk.
func Load(path string) (*Loader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow file: %w", err)
	}
	l, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// Parse decodes a flow file. Edge targets may be written as a single ID
// or as a list of IDs.
func Parse(data []byte) (*Loader, error) {
	var ff flowFile
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("failed to parse flow file: %w", err)
	}

	reg, err := registry.NewRegistry(ff.Containers...)
	if err != nil {
		return nil, err
	}

	l := &Loader{Registry: reg, nodes: make(map[string][]byte, len(ff.Nodes))}
	for i, raw := range ff.Nodes {
		node, err := decodeNode(raw)
		if err != nil {
			return nil, fmt.Errorf("node #%d: %w", i+1, err)
		}
		if node.ID == "" {
			return nil, fmt.Errorf("node #%d: missing id", i+1)
		}
		if _, dup := l.nodes[node.ID]; dup {
			return nil, fmt.Errorf("duplicate node ID %s", node.ID)
		}
		encoded, err := json.Marshal(node)
		if err != nil {
			return nil, fmt.Errorf("failed to encode node %s: %w", node.ID, err)
		}
		l.nodes[node.ID] = encoded
	}
	return l, nil
}

func decodeNode(raw map[string]any) (domain.Node, error) {
	if edges, ok := raw["edges"].(map[string]any); ok {
		normalized := make(map[string]any, len(edges))
		for name, target := range edges {
			if s, isString := target.(string); isString {
				normalized[name] = []string{s}
				continue
			}
			normalized[name] = target
		}
		raw["edges"] = normalized
	}

	var node domain.Node
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &node,
		ErrorUnused: true,
	})
	if err != nil {
		return node, err
	}
	if err := dec.Decode(raw); err != nil {
		return node, err
	}
	return node, nil
}

// GetNode retrieves the definition of a node by ID, JSON encoded.
func (l *Loader) GetNode(id string) ([]byte, error) {
	content, ok := l.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
	}
	return content, nil
}

// ListNodes returns all node IDs in lexical order.
func (l *Loader) ListNodes() ([]string, error) {
	ids := make([]string, 0, len(l.nodes))
	for id := range l.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
