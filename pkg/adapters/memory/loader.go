package memory

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aretw0/tendril/pkg/domain"
)

// Loader is a ports.GraphLoader over node records held in memory, keyed by node ID.
// Records are kept as JSON, the form the compiler parses.
type Loader struct {
	records map[string][]byte
}

// NewLoader wraps raw JSON node records keyed by node ID.
func NewLoader(records map[string]string) *Loader {
	l := &Loader{records: make(map[string][]byte, len(records))}
	for id, raw := range records {
		l.records[id] = []byte(raw)
	}
	return l
}

// NewFromNodes builds a Loader from node values. IDs must be set and unique.
func NewFromNodes(nodes ...domain.Node) (*Loader, error) {
	l := &Loader{records: make(map[string][]byte, len(nodes))}
	for _, n := range nodes {
		if err := l.Add(n); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Add encodes n and registers it under its ID.
func (l *Loader) Add(n domain.Node) error {
	if n.ID == "" {
		return fmt.Errorf("%s node has no id", n.Kind)
	}
	if _, dup := l.records[n.ID]; dup {
		return fmt.Errorf("node '%s' is defined twice", n.ID)
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encoding node '%s': %w", n.ID, err)
	}
	l.records[n.ID] = raw
	return nil
}

func (l *Loader) GetNode(id string) ([]byte, error) {
	raw, ok := l.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
	}
	return raw, nil
}

func (l *Loader) ListNodes() ([]string, error) {
	ids := make([]string, 0, len(l.records))
	for id := range l.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
